package user

import (
	"github.com/kiranalabs/kirana/internal/user/repository"
	"github.com/kiranalabs/kirana/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
