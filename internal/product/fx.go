package product

import (
	"github.com/kiranalabs/kirana/internal/product/repository"
	"github.com/kiranalabs/kirana/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
