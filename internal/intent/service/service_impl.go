package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/authorization"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/config"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
	"github.com/kiranalabs/kirana/internal/intent/domain"
	obsmetrics "github.com/kiranalabs/kirana/internal/observability/metrics"
	orderdomain "github.com/kiranalabs/kirana/internal/order/domain"
	"github.com/kiranalabs/kirana/pkg/db"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Reconcile *config.ReconcileConfigHolder
	Metrics   *obsmetrics.Metrics
	Repo      domain.Repository
	Orders    orderdomain.Repository
	Gateways  gatewaydomain.Repository
	Registry  gatewaydomain.Registry
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	reconcile *config.ReconcileConfigHolder
	metrics   *obsmetrics.Metrics
	repo      domain.Repository
	orders    orderdomain.Repository
	gateways  gatewaydomain.Repository
	registry  gatewaydomain.Registry
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("intent.service"),
		clock:     p.Clock,
		reconcile: p.Reconcile,
		metrics:   p.Metrics,
		repo:      p.Repo,
		orders:    p.Orders,
		gateways:  p.Gateways,
		registry:  p.Registry,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateIntentRequest) (domain.CheckoutIntent, error) {
	current, ok := actor.FromContext(ctx)
	if !ok || current.UserID == 0 {
		return domain.CheckoutIntent{}, domain.ErrUnauthorized
	}

	orderID, err := snowflake.ParseString(strings.TrimSpace(req.OrderID))
	if err != nil || orderID == 0 {
		return domain.CheckoutIntent{}, domain.ErrInvalidID
	}

	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.CheckoutIntent{}, err
	}
	if order == nil {
		return domain.CheckoutIntent{}, domain.ErrOrderNotFound
	}
	if !authorization.CanAccessResource(current, order.UserEmail) {
		return domain.CheckoutIntent{}, domain.ErrNotOwner
	}
	if order.Status != orderdomain.StatusPending {
		return domain.CheckoutIntent{}, domain.ErrOrderNotPayable
	}

	now := s.clock.Now()
	window := s.reconcile.Get().IdempotencyWindow

	existing, err := s.repo.FindOpenByOrder(ctx, s.db, order.ID, order.UserEmail)
	if err != nil {
		return domain.CheckoutIntent{}, err
	}
	if existing != nil && now.Sub(existing.CreatedAt) <= window {
		return s.checkout(ctx, *existing)
	}

	gateway, err := s.resolveGateway(ctx, req.GatewayID)
	if err != nil {
		return domain.CheckoutIntent{}, err
	}

	client, err := s.registry.ClientFor(gateway)
	if err != nil {
		if errors.Is(err, gatewaydomain.ErrUnsupportedGateway) {
			return domain.CheckoutIntent{}, domain.ErrGatewayUnsupported
		}
		return domain.CheckoutIntent{}, err
	}

	gatewayOrder, err := client.CreateOrder(ctx, gatewaydomain.CreateOrderParams{
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		Receipt:     order.ID.String(),
		Notes: map[string]string{
			"order_id":   order.ID.String(),
			"user_email": order.UserEmail,
		},
	})
	if err != nil {
		return domain.CheckoutIntent{}, err
	}

	intent := domain.PaymentIntent{
		ID:             ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		OrderID:        order.ID,
		UserEmail:      order.UserEmail,
		GatewayID:      gateway.ID,
		GatewayOrderID: gatewayOrder.ID,
		AmountCents:    order.TotalCents,
		Currency:       order.Currency,
		Status:         domain.StatusCreated,
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// A stale open intent is superseded, not reused: mark it abandoned and
	// insert the replacement in one transaction so the partial unique index
	// on open intents holds.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if existing != nil {
			if _, err := s.repo.AbandonOpen(ctx, tx, order.ID, order.UserEmail, now); err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, &intent)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost a race with a concurrent create. The surviving open
			// intent is the one to hand back.
			winner, findErr := s.repo.FindOpenByOrder(ctx, s.db, order.ID, order.UserEmail)
			if findErr == nil && winner != nil {
				return s.checkout(ctx, *winner)
			}
		}
		return domain.CheckoutIntent{}, err
	}

	s.metrics.RecordIntentOpened(ctx, gateway.Name)
	s.log.Info("payment intent opened",
		zap.String("intent_id", intent.ID),
		zap.String("order_id", order.ID.String()),
		zap.String("gateway", gateway.Name),
		zap.Int64("amount_cents", intent.AmountCents),
	)

	return domain.CheckoutIntent{
		PaymentIntent: intent,
		GatewayName:   gateway.Name,
		GatewayKey:    publicKey(gateway),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.PaymentIntent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PaymentIntent{}, domain.ErrInvalidID
	}

	intent, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	if intent == nil {
		return domain.PaymentIntent{}, domain.ErrNotFound
	}
	if err := s.authorize(ctx, intent); err != nil {
		return domain.PaymentIntent{}, err
	}
	return *intent, nil
}

func (s *Service) ListByOrder(ctx context.Context, rawOrderID string) ([]domain.PaymentIntent, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(rawOrderID))
	if err != nil || orderID == 0 {
		return nil, domain.ErrInvalidID
	}

	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	current, ok := actor.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	// Strangers learn nothing about the order, not even that it exists.
	if !authorization.CanAccessResource(current, order.UserEmail) {
		return nil, domain.ErrOrderNotFound
	}

	items, err := s.repo.ListByOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}

	intents := make([]domain.PaymentIntent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		intents = append(intents, *item)
	}
	return intents, nil
}

// resolveGateway loads the caller's gateway choice, falling back to the
// active gateway when none was named. A named gateway must still be active.
func (s *Service) resolveGateway(ctx context.Context, rawID string) (*gatewaydomain.Gateway, error) {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		gateway, err := s.gateways.FindActive(ctx, s.db)
		if err != nil {
			return nil, err
		}
		if gateway == nil {
			return nil, gatewaydomain.ErrNoActiveGateway
		}
		return gateway, nil
	}

	id, err := snowflake.ParseString(rawID)
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}
	gateway, err := s.gateways.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if gateway == nil {
		return nil, domain.ErrGatewayNotFound
	}
	if !gateway.IsActive {
		return nil, domain.ErrGatewayInactive
	}
	return gateway, nil
}

// checkout re-resolves the gateway so a reused intent still carries the
// public checkout fields.
func (s *Service) checkout(ctx context.Context, intent domain.PaymentIntent) (domain.CheckoutIntent, error) {
	gateway, err := s.gateways.FindByID(ctx, s.db, intent.GatewayID)
	if err != nil {
		return domain.CheckoutIntent{}, err
	}

	result := domain.CheckoutIntent{PaymentIntent: intent}
	if gateway != nil {
		result.GatewayName = gateway.Name
		result.GatewayKey = publicKey(gateway)
	}
	return result, nil
}

func (s *Service) authorize(ctx context.Context, intent *domain.PaymentIntent) error {
	current, ok := actor.FromContext(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	// Report a miss rather than a denial so the lookup does not confirm
	// the intent exists.
	if !authorization.CanAccessResource(current, intent.UserEmail) {
		return domain.ErrNotFound
	}
	return nil
}

// publicKey picks the credential a browser checkout is allowed to see.
func publicKey(gateway *gatewaydomain.Gateway) string {
	switch gateway.Name {
	case gatewaydomain.Razorpay:
		return gateway.ConfigValue("key_id")
	case gatewaydomain.HDFC:
		return gateway.ConfigValue("access_code")
	}
	return ""
}
