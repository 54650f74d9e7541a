package gateway

import (
	"github.com/kiranalabs/kirana/internal/gateway/clients"
	"github.com/kiranalabs/kirana/internal/gateway/repository"
	"github.com/kiranalabs/kirana/internal/gateway/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(clients.NewRegistry),
)
