package payment

import (
	"github.com/kiranalabs/kirana/internal/payment/domain"
	"github.com/kiranalabs/kirana/internal/payment/repository"
	"github.com/kiranalabs/kirana/internal/payment/service"
	"github.com/kiranalabs/kirana/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
	fx.Provide(webhook.New),
)
