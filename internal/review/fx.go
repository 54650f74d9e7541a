package review

import (
	"github.com/kiranalabs/kirana/internal/review/repository"
	"github.com/kiranalabs/kirana/internal/review/service"
	"go.uber.org/fx"
)

var Module = fx.Module("review.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
