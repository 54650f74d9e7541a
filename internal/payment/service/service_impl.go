package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/authorization"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/config"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
	intentdomain "github.com/kiranalabs/kirana/internal/intent/domain"
	obsmetrics "github.com/kiranalabs/kirana/internal/observability/metrics"
	orderdomain "github.com/kiranalabs/kirana/internal/order/domain"
	"github.com/kiranalabs/kirana/internal/payment/domain"
	"github.com/kiranalabs/kirana/pkg/db"
)

// pendingStatuses are the payment statuses a sweep re-checks against the
// gateway. Provider statuses that slipped through unmapped count as pending
// until the gateway reports a terminal state.
var pendingStatuses = []string{gatewaydomain.StatusPending, "created", "authorized"}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Reconcile *config.ReconcileConfigHolder
	Metrics   *obsmetrics.Metrics
	Repo      domain.Repository
	Intents   intentdomain.Repository
	Orders    orderdomain.Repository
	Gateways  gatewaydomain.Repository
	Registry  gatewaydomain.Registry
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	reconcile *config.ReconcileConfigHolder
	metrics   *obsmetrics.Metrics
	repo      domain.Repository
	intents   intentdomain.Repository
	orders    orderdomain.Repository
	gateways  gatewaydomain.Repository
	registry  gatewaydomain.Registry
}

func NewService(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		reconcile: p.Reconcile,
		metrics:   p.Metrics,
		repo:      p.Repo,
		intents:   p.Intents,
		orders:    p.Orders,
		gateways:  p.Gateways,
		registry:  p.Registry,
	}
}

func (s *Service) SyncPayment(ctx context.Context, rawID string) (domain.SyncResult, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.SyncResult{}, domain.ErrInvalidID
	}

	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if payment == nil {
		return domain.SyncResult{}, domain.ErrNotFound
	}
	if err := s.authorizeOrder(ctx, payment.OrderID); err != nil {
		return domain.SyncResult{}, err
	}

	client, gateway, err := s.clientForGateway(ctx, payment.GatewayID)
	if err != nil {
		return domain.SyncResult{}, err
	}

	return s.syncOne(ctx, payment, gateway, client)
}

func (s *Service) SyncPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (domain.SyncResult, error) {
	gatewayPaymentID = strings.TrimSpace(gatewayPaymentID)
	if gatewayPaymentID == "" {
		return domain.SyncResult{}, domain.ErrInvalidID
	}

	payment, err := s.repo.FindByGatewayPaymentID(ctx, s.db, gatewayPaymentID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if payment != nil {
		if err := s.authorizeOrder(ctx, payment.OrderID); err != nil {
			return domain.SyncResult{}, err
		}
		client, gateway, err := s.clientForGateway(ctx, payment.GatewayID)
		if err != nil {
			return domain.SyncResult{}, err
		}
		return s.syncOne(ctx, payment, gateway, client)
	}

	// Unknown locally: pull it from the active gateway and attach it to the
	// intent that opened the gateway order.
	gateway, err := s.gateways.FindActive(ctx, s.db)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if gateway == nil {
		return domain.SyncResult{}, domain.ErrGatewayNotFound
	}
	client, err := s.registry.ClientFor(gateway)
	if err != nil {
		return domain.SyncResult{}, err
	}

	remote, err := client.FetchPayment(ctx, gatewayPaymentID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if remote == nil {
		return domain.SyncResult{}, domain.ErrNotFound
	}

	intent, err := s.intents.FindByGatewayOrderID(ctx, s.db, remote.OrderID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if intent == nil {
		return domain.SyncResult{}, domain.ErrIntentNotFound
	}
	if err := s.authorizeOrder(ctx, intent.OrderID); err != nil {
		return domain.SyncResult{}, err
	}

	created, err := s.createFromRemote(ctx, intent, gateway, remote)
	if err != nil {
		return domain.SyncResult{}, err
	}
	return domain.SyncResult{
		Payment:        *created,
		StatusChanged:  true,
		PreviousStatus: "",
		CurrentStatus:  created.Status,
	}, nil
}

func (s *Service) SyncOrderPayments(ctx context.Context, rawOrderID string) (domain.OrderSyncResult, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(rawOrderID))
	if err != nil || orderID == 0 {
		return domain.OrderSyncResult{}, domain.ErrInvalidID
	}

	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.OrderSyncResult{}, err
	}
	if order == nil {
		return domain.OrderSyncResult{}, domain.ErrOrderNotFound
	}
	if err := s.authorizeOrderRecord(ctx, order); err != nil {
		return domain.OrderSyncResult{}, err
	}

	result := domain.OrderSyncResult{OrderID: order.ID.String()}

	intents, err := s.intents.ListByOrder(ctx, s.db, order.ID)
	if err != nil {
		return domain.OrderSyncResult{}, err
	}

	seen := map[string]bool{}
	for _, intent := range intents {
		if intent == nil {
			continue
		}

		client, gateway, err := s.clientForGateway(ctx, intent.GatewayID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("intent %s: %v", intent.ID, err))
			continue
		}

		remotes, err := client.FetchOrderPayments(ctx, intent.GatewayOrderID)
		if err != nil {
			// Gateway unreachable: fall back to what we already hold
			// locally and report the failure per intent.
			result.Errors = append(result.Errors, fmt.Sprintf("intent %s: %v", intent.ID, err))
			continue
		}

		for i := range remotes {
			remote := remotes[i]
			seen[remote.ID] = true

			local, err := s.repo.FindByGatewayPaymentID(ctx, s.db, remote.ID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("payment %s: %v", remote.ID, err))
				continue
			}
			if local == nil {
				created, err := s.createFromRemote(ctx, intent, gateway, &remote)
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("payment %s: %v", remote.ID, err))
					continue
				}
				result.Created++
				result.Results = append(result.Results, domain.SyncResult{
					Payment:       *created,
					StatusChanged: true,
					CurrentStatus: created.Status,
				})
				continue
			}

			synced, err := s.applyRemote(ctx, local, gateway, &remote)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("payment %s: %v", remote.ID, err))
				continue
			}
			result.Results = append(result.Results, synced)
		}
	}

	// Local payments the gateway did not return are still part of the
	// order's payment history.
	locals, err := s.repo.ListByOrder(ctx, s.db, order.ID)
	if err != nil {
		return domain.OrderSyncResult{}, err
	}
	for _, local := range locals {
		if local == nil || seen[local.GatewayPaymentID] {
			continue
		}
		result.Results = append(result.Results, domain.SyncResult{
			Payment:        *local,
			PreviousStatus: local.Status,
			CurrentStatus:  local.Status,
		})
	}

	return result, nil
}

func (s *Service) SyncAllPending(ctx context.Context) (domain.SweepResult, error) {
	current, ok := actor.FromContext(ctx)
	if !ok || (!current.IsAdmin() && !current.IsSystem()) {
		return domain.SweepResult{}, domain.ErrUnauthorized
	}

	batch := s.reconcile.Get().SweepBatchSize
	payments, err := s.repo.ListByStatuses(ctx, s.db, pendingStatuses, batch)
	if err != nil {
		return domain.SweepResult{}, err
	}

	var result domain.SweepResult
	clients := map[snowflake.ID]gatewayClient{}

	for _, payment := range payments {
		if payment == nil {
			continue
		}
		result.Checked++

		entry, ok := clients[payment.GatewayID]
		if !ok {
			client, gateway, err := s.clientForGateway(ctx, payment.GatewayID)
			entry = gatewayClient{client: client, gateway: gateway, err: err}
			clients[payment.GatewayID] = entry
		}
		if entry.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("payment %s: %v", payment.ID, entry.err))
			continue
		}

		synced, err := s.syncOne(ctx, payment, entry.gateway, entry.client)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("payment %s: %v", payment.ID, err))
			s.log.Warn("pending payment sync failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Results = append(result.Results, synced)
		if synced.StatusChanged {
			result.Updated++
		}
	}

	s.log.Info("pending payment sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) VerifyPayment(ctx context.Context, req domain.VerifyPaymentRequest) (domain.SyncResult, error) {
	orderRef := strings.TrimSpace(req.OrderRef)
	paymentRef := strings.TrimSpace(req.PaymentRef)
	if orderRef == "" || paymentRef == "" || strings.TrimSpace(req.Signature) == "" {
		return domain.SyncResult{}, domain.ErrInvalidPayload
	}

	intent, err := s.intents.FindByGatewayOrderID(ctx, s.db, orderRef)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if intent == nil {
		return domain.SyncResult{}, domain.ErrIntentNotFound
	}

	gateway, err := s.gateways.FindByID(ctx, s.db, intent.GatewayID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if gateway == nil {
		return domain.SyncResult{}, domain.ErrGatewayNotFound
	}

	// Fail closed: a gateway with no signing secret rejects every callback.
	secret := signingSecret(gateway)
	if secret == "" || !domain.VerifyPaymentSignature(orderRef, paymentRef, req.Signature, secret) {
		return domain.SyncResult{}, domain.ErrInvalidSignature
	}

	// The signature proves the callback came from the gateway; the payment
	// state itself still comes from the gateway API.
	return s.SyncPaymentByGatewayID(ctx, paymentRef)
}

func (s *Service) ListByOrder(ctx context.Context, rawOrderID string) ([]domain.Payment, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(rawOrderID))
	if err != nil || orderID == 0 {
		return nil, domain.ErrInvalidID
	}
	if err := s.authorizeOrder(ctx, orderID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListByOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return payments, nil
}

func (s *Service) CreateRefund(ctx context.Context, req domain.CreateRefundRequest) (domain.Refund, error) {
	current, ok := actor.FromContext(ctx)
	if !ok || (!current.IsAdmin() && !current.IsSystem()) {
		return domain.Refund{}, domain.ErrUnauthorized
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.PaymentID))
	if err != nil || id == 0 {
		return domain.Refund{}, domain.ErrInvalidID
	}

	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Refund{}, err
	}
	if payment == nil {
		return domain.Refund{}, domain.ErrNotFound
	}
	if payment.Status != gatewaydomain.StatusSuccess {
		return domain.Refund{}, domain.ErrNotRefundable
	}
	if req.AmountCents < 0 {
		return domain.Refund{}, domain.ErrInvalidAmount
	}

	remaining := payment.AmountCents - payment.AmountRefundedCents
	amount := req.AmountCents
	if amount == 0 {
		amount = remaining
	}
	if remaining <= 0 || amount > remaining {
		return domain.Refund{}, domain.ErrRefundExceeded
	}

	client, _, err := s.clientForGateway(ctx, payment.GatewayID)
	if err != nil {
		return domain.Refund{}, err
	}

	remote, err := client.CreateRefund(ctx, payment.GatewayPaymentID, amount)
	if err != nil {
		return domain.Refund{}, err
	}

	now := s.clock.Now()
	refund := domain.Refund{
		ID:              s.genID.Generate(),
		PaymentID:       payment.ID,
		GatewayID:       payment.GatewayID,
		GatewayRefundID: remote.ID,
		AmountCents:     remote.AmountCents,
		Currency:        payment.Currency,
		Status:          gatewaydomain.MapStatus(remote.Status),
		Reason:          strings.TrimSpace(req.Reason),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if refund.AmountCents == 0 {
		refund.AmountCents = amount
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertRefund(ctx, tx, &refund); err != nil {
			return err
		}
		bumped, err := s.repo.AddRefundedAmount(ctx, tx, payment.ID, refund.AmountCents)
		if err != nil {
			return err
		}
		if !bumped {
			return domain.ErrRefundExceeded
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindRefundByGatewayRefundID(ctx, s.db, remote.ID)
			if findErr == nil && existing != nil {
				return *existing, nil
			}
		}
		return domain.Refund{}, err
	}

	return refund, nil
}

// IngestGatewayPayment applies a payment state pushed by a gateway, creating
// the local payment if this is the first time the gateway mentioned it.
func (s *Service) IngestGatewayPayment(ctx context.Context, gateway *gatewaydomain.Gateway, remote *gatewaydomain.GatewayPayment) (domain.SyncResult, error) {
	local, err := s.repo.FindByGatewayPaymentID(ctx, s.db, remote.ID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if local != nil {
		return s.applyRemote(ctx, local, gateway, remote)
	}

	intent, err := s.intents.FindByGatewayOrderID(ctx, s.db, remote.OrderID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if intent == nil {
		return domain.SyncResult{}, domain.ErrIntentNotFound
	}

	created, err := s.createFromRemote(ctx, intent, gateway, remote)
	if err != nil {
		return domain.SyncResult{}, err
	}
	return domain.SyncResult{
		Payment:       *created,
		StatusChanged: true,
		CurrentStatus: created.Status,
	}, nil
}

type gatewayClient struct {
	client  gatewaydomain.Client
	gateway *gatewaydomain.Gateway
	err     error
}

func (s *Service) clientForGateway(ctx context.Context, gatewayID snowflake.ID) (gatewaydomain.Client, *gatewaydomain.Gateway, error) {
	gateway, err := s.gateways.FindByID(ctx, s.db, gatewayID)
	if err != nil {
		return nil, nil, err
	}
	if gateway == nil {
		return nil, nil, domain.ErrGatewayNotFound
	}
	client, err := s.registry.ClientFor(gateway)
	if err != nil {
		return nil, nil, err
	}
	return client, gateway, nil
}

// syncOne refreshes a single payment from the gateway and cascades terminal
// outcomes onto the intent and order.
func (s *Service) syncOne(ctx context.Context, payment *domain.Payment, gateway *gatewaydomain.Gateway, client gatewaydomain.Client) (domain.SyncResult, error) {
	remote, err := client.FetchPayment(ctx, payment.GatewayPaymentID)
	if err != nil {
		s.metrics.RecordPaymentSync(ctx, gateway.Name, "error")
		return domain.SyncResult{}, err
	}
	if remote == nil {
		return domain.SyncResult{
			Payment:        *payment,
			PreviousStatus: payment.Status,
			CurrentStatus:  payment.Status,
		}, nil
	}
	return s.applyRemote(ctx, payment, gateway, remote)
}

// applyRemote persists the gateway's view of a payment. The cascade and the
// payment update share one transaction so a crash cannot leave a paid order
// pending.
func (s *Service) applyRemote(ctx context.Context, payment *domain.Payment, gateway *gatewaydomain.Gateway, remote *gatewaydomain.GatewayPayment) (domain.SyncResult, error) {
	previous := payment.Status
	next := gatewaydomain.MapStatus(remote.Status)

	if next == previous {
		s.metrics.RecordPaymentSync(ctx, gateway.Name, "unchanged")
		return domain.SyncResult{
			Payment:        *payment,
			PreviousStatus: previous,
			CurrentStatus:  previous,
		}, nil
	}

	now := s.clock.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		payment.Status = next
		if remote.Method != "" {
			payment.Method = remote.Method
		}
		if remote.Raw != nil {
			payment.Raw = remote.Raw
		}
		payment.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}
		return s.cascade(ctx, tx, payment, next, now)
	})
	if err != nil {
		s.metrics.RecordPaymentSync(ctx, gateway.Name, "error")
		return domain.SyncResult{}, err
	}

	s.metrics.RecordPaymentSync(ctx, gateway.Name, "updated")
	s.log.Info("payment status updated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", gateway.Name),
		zap.String("previous_status", previous),
		zap.String("current_status", next),
	)

	return domain.SyncResult{
		Payment:        *payment,
		StatusChanged:  true,
		PreviousStatus: previous,
		CurrentStatus:  next,
	}, nil
}

// cascade moves the intent and order forward on terminal payment outcomes.
// The compare-and-swap updates keep the transitions monotonic: an order that
// already left PENDING is never pulled back.
func (s *Service) cascade(ctx context.Context, tx *gorm.DB, payment *domain.Payment, status string, now time.Time) error {
	switch status {
	case gatewaydomain.StatusSuccess:
		if _, err := s.intents.UpdateStatusIfCurrent(ctx, tx, payment.IntentID, intentdomain.StatusCreated, intentdomain.StatusPaid, now); err != nil {
			return err
		}
		if _, err := s.orders.UpdateStatusIfCurrent(ctx, tx, payment.OrderID, orderdomain.StatusPending, orderdomain.StatusProcessing, now); err != nil {
			return err
		}
	case gatewaydomain.StatusFailed:
		if _, err := s.intents.UpdateStatusIfCurrent(ctx, tx, payment.IntentID, intentdomain.StatusCreated, intentdomain.StatusFailed, now); err != nil {
			return err
		}
		if _, err := s.orders.UpdateStatusIfCurrent(ctx, tx, payment.OrderID, orderdomain.StatusPending, orderdomain.StatusCancelled, now); err != nil {
			return err
		}
	}
	return nil
}

// createFromRemote materializes a gateway payment locally, applying the
// cascade when it arrives already terminal. A duplicate-key insert means a
// concurrent sync won; the winner's row is returned.
func (s *Service) createFromRemote(ctx context.Context, intent *intentdomain.PaymentIntent, gateway *gatewaydomain.Gateway, remote *gatewaydomain.GatewayPayment) (*domain.Payment, error) {
	now := s.clock.Now()
	payment := domain.Payment{
		ID:               s.genID.Generate(),
		IntentID:         intent.ID,
		OrderID:          intent.OrderID,
		GatewayID:        gateway.ID,
		GatewayPaymentID: remote.ID,
		UserEmail:        intent.UserEmail,
		AmountCents:      remote.AmountCents,
		Currency:         remote.Currency,
		Status:           gatewaydomain.MapStatus(remote.Status),
		Method:           remote.Method,
		Raw:              remote.Raw,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if payment.Currency == "" {
		payment.Currency = intent.Currency
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}
		return s.cascade(ctx, tx, &payment, payment.Status, now)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindByGatewayPaymentID(ctx, s.db, remote.ID)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	return &payment, nil
}

func (s *Service) authorizeOrder(ctx context.Context, orderID snowflake.ID) error {
	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrOrderNotFound
	}
	return s.authorizeOrderRecord(ctx, order)
}

func (s *Service) authorizeOrderRecord(ctx context.Context, order *orderdomain.Order) error {
	current, ok := actor.FromContext(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if !authorization.CanAccessResource(current, order.UserEmail) {
		return domain.ErrUnauthorized
	}
	return nil
}

// signingSecret is the per-provider secret used for checkout callback
// signatures.
func signingSecret(gateway *gatewaydomain.Gateway) string {
	switch gateway.Name {
	case gatewaydomain.Razorpay:
		return gateway.ConfigValue("key_secret")
	case gatewaydomain.HDFC:
		return gateway.ConfigValue("working_key")
	}
	return ""
}
