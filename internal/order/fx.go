package order

import (
	"github.com/kiranalabs/kirana/internal/order/repository"
	"github.com/kiranalabs/kirana/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
