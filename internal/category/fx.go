package category

import (
	"github.com/kiranalabs/kirana/internal/category/repository"
	"github.com/kiranalabs/kirana/internal/category/service"
	"go.uber.org/fx"
)

var Module = fx.Module("category.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
