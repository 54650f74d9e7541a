package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/config"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
	obsmetrics "github.com/kiranalabs/kirana/internal/observability/metrics"
	"github.com/kiranalabs/kirana/internal/payment/domain"
	paymentservice "github.com/kiranalabs/kirana/internal/payment/service"
)

// handledEvents are the webhook event types that mutate local state. Anything
// else is recorded and acknowledged without processing.
var handledEvents = map[string]bool{
	"payment.captured": true,
	"payment.failed":   true,
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Reconcile *config.ReconcileConfigHolder
	Metrics   *obsmetrics.Metrics
	Repo      domain.Repository
	Gateways  gatewaydomain.Repository
	Payments  *paymentservice.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	reconcile *config.ReconcileConfigHolder
	metrics   *obsmetrics.Metrics
	repo      domain.Repository
	gateways  gatewaydomain.Repository
	payments  *paymentservice.Service
}

func New(p Params) domain.WebhookService {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.webhook"),
		genID:     p.GenID,
		clock:     p.Clock,
		reconcile: p.Reconcile,
		metrics:   p.Metrics,
		repo:      p.Repo,
		gateways:  p.Gateways,
		payments:  p.Payments,
	}
}

func (s *Service) HandleWebhook(ctx context.Context, gatewayName string, payload []byte, signature string) (domain.WebhookResult, error) {
	gatewayName = strings.ToLower(strings.TrimSpace(gatewayName))
	if !gatewaydomain.Supported(gatewayName) {
		return domain.WebhookResult{}, domain.ErrGatewayNotFound
	}

	gateway, err := s.gateways.FindByName(ctx, s.db, gatewayName)
	if err != nil {
		return domain.WebhookResult{}, err
	}
	if gateway == nil {
		return domain.WebhookResult{}, domain.ErrGatewayNotFound
	}

	// Fail closed: no secret or a bad signature both reject the delivery.
	secret := webhookSecret(gateway)
	if secret == "" || !domain.VerifyWebhookSignature(payload, signature, secret) {
		return domain.WebhookResult{}, domain.ErrInvalidSignature
	}

	eventType, remote, err := parseEvent(gatewayName, payload)
	if err != nil {
		return domain.WebhookResult{}, err
	}

	s.metrics.RecordWebhookEvent(ctx, gatewayName, eventType)

	inserted, err := s.repo.InsertEventIfNew(ctx, s.db, &domain.PaymentEvent{
		ID:               s.genID.Generate(),
		GatewayName:      gatewayName,
		EventType:        eventType,
		GatewayPaymentID: remote.ID,
		Payload:          payload,
		ReceivedAt:       s.clock.Now(),
	})
	if err != nil {
		return domain.WebhookResult{}, err
	}
	if !inserted {
		s.log.Debug("duplicate webhook delivery",
			zap.String("gateway", gatewayName),
			zap.String("event_type", eventType),
			zap.String("gateway_payment_id", remote.ID),
		)
		return domain.WebhookResult{Received: true, Duplicate: true}, nil
	}

	if !handledEvents[eventType] {
		return domain.WebhookResult{Received: true}, nil
	}

	if _, err := s.payments.IngestGatewayPayment(ctx, gateway, remote); err != nil {
		if s.reconcile.Get().WebhookAckOnError {
			// The event row is already persisted, so the sweep can
			// recover; acknowledging avoids an endless redelivery loop.
			s.log.Warn("webhook processing failed, acknowledged anyway",
				zap.String("gateway", gatewayName),
				zap.String("event_type", eventType),
				zap.String("gateway_payment_id", remote.ID),
				zap.Error(err),
			)
			return domain.WebhookResult{Received: true}, nil
		}
		return domain.WebhookResult{}, err
	}

	return domain.WebhookResult{Received: true}, nil
}

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID        string `json:"id"`
				OrderID   string `json:"order_id"`
				Status    string `json:"status"`
				Amount    int64  `json:"amount"`
				Currency  string `json:"currency"`
				Method    string `json:"method"`
				Email     string `json:"email"`
				Contact   string `json:"contact"`
				CreatedAt int64  `json:"created_at"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type hdfcEvent struct {
	EventType string `json:"event_type"`
	Payment   struct {
		TrackingID string `json:"tracking_id"`
		OrderID    string `json:"order_id"`
		Status     string `json:"payment_status"`
		Amount     int64  `json:"amount"`
		Currency   string `json:"currency"`
		PayMode    string `json:"payment_mode"`
		Email      string `json:"billing_email"`
		Phone      string `json:"billing_tel"`
	} `json:"payment"`
}

func parseEvent(gatewayName string, payload []byte) (string, *gatewaydomain.GatewayPayment, error) {
	if !json.Valid(payload) {
		return "", nil, domain.ErrInvalidPayload
	}

	var rawMap map[string]interface{}
	_ = json.Unmarshal(payload, &rawMap)

	switch gatewayName {
	case gatewaydomain.Razorpay:
		var event razorpayEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return "", nil, domain.ErrInvalidPayload
		}
		entity := event.Payload.Payment.Entity
		if event.Event == "" || entity.ID == "" {
			return "", nil, domain.ErrInvalidPayload
		}
		return event.Event, &gatewaydomain.GatewayPayment{
			ID:          entity.ID,
			OrderID:     entity.OrderID,
			Status:      entity.Status,
			AmountCents: entity.Amount,
			Currency:    entity.Currency,
			Method:      entity.Method,
			Email:       entity.Email,
			Contact:     entity.Contact,
			CreatedAt:   time.Unix(entity.CreatedAt, 0).UTC(),
			Raw:         rawMap,
		}, nil

	case gatewaydomain.HDFC:
		var event hdfcEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return "", nil, domain.ErrInvalidPayload
		}
		if event.EventType == "" || event.Payment.TrackingID == "" {
			return "", nil, domain.ErrInvalidPayload
		}
		return event.EventType, &gatewaydomain.GatewayPayment{
			ID:          event.Payment.TrackingID,
			OrderID:     event.Payment.OrderID,
			Status:      event.Payment.Status,
			AmountCents: event.Payment.Amount,
			Currency:    event.Payment.Currency,
			Method:      event.Payment.PayMode,
			Email:       event.Payment.Email,
			Contact:     event.Payment.Phone,
			Raw:         rawMap,
		}, nil
	}
	return "", nil, domain.ErrGatewayNotFound
}

// webhookSecret is the per-provider secret used to sign webhook bodies.
func webhookSecret(gateway *gatewaydomain.Gateway) string {
	switch gateway.Name {
	case gatewaydomain.Razorpay:
		return gateway.ConfigValue("webhook_secret")
	case gatewaydomain.HDFC:
		return gateway.ConfigValue("working_key")
	}
	return ""
}
