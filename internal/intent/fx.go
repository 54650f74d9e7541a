package intent

import (
	"github.com/kiranalabs/kirana/internal/intent/repository"
	"github.com/kiranalabs/kirana/internal/intent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("intent.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
