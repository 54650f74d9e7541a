package clients

import (
	"net/http"

	"go.uber.org/fx"

	"github.com/kiranalabs/kirana/internal/config"
	"github.com/kiranalabs/kirana/internal/gateway/domain"
)

type Params struct {
	fx.In

	Reconcile *config.ReconcileConfigHolder
}

type registry struct {
	reconcile *config.ReconcileConfigHolder
}

func NewRegistry(p Params) domain.Registry {
	return &registry{reconcile: p.Reconcile}
}

// ClientFor builds a provider client from the gateway's stored credentials.
// A fresh http.Client is cheap here because the transport is shared by the
// process-wide default.
func (r *registry) ClientFor(gateway *domain.Gateway) (domain.Client, error) {
	if gateway == nil || !domain.Supported(gateway.Name) {
		return nil, domain.ErrUnsupportedGateway
	}

	httpClient := &http.Client{Timeout: r.reconcile.Get().GatewayTimeout}

	switch gateway.Name {
	case domain.Razorpay:
		return newRazorpayClient(
			gateway.ConfigValue("key_id"),
			gateway.ConfigValue("key_secret"),
			httpClient,
		), nil
	case domain.HDFC:
		return newHDFCClient(
			gateway.ConfigValue("merchant_id"),
			gateway.ConfigValue("access_code"),
			gateway.ConfigValue("working_key"),
			httpClient,
		), nil
	}
	return nil, domain.ErrUnsupportedGateway
}
