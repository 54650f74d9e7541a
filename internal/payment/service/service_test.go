package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/config"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
	gatewayrepository "github.com/kiranalabs/kirana/internal/gateway/repository"
	intentdomain "github.com/kiranalabs/kirana/internal/intent/domain"
	intentrepository "github.com/kiranalabs/kirana/internal/intent/repository"
	orderdomain "github.com/kiranalabs/kirana/internal/order/domain"
	orderrepository "github.com/kiranalabs/kirana/internal/order/repository"
	"github.com/kiranalabs/kirana/internal/payment/domain"
	"github.com/kiranalabs/kirana/internal/payment/repository"
	"gorm.io/datatypes"
)

type stubClient struct {
	payments      map[string]*gatewaydomain.GatewayPayment
	orderPayments map[string][]gatewaydomain.GatewayPayment
	refund        *gatewaydomain.GatewayRefund
	fetchErr      error
	listErr       error
}

func (c *stubClient) CreateOrder(ctx context.Context, params gatewaydomain.CreateOrderParams) (*gatewaydomain.GatewayOrder, error) {
	return nil, errors.New("not implemented")
}

func (c *stubClient) FetchPayment(ctx context.Context, gatewayPaymentID string) (*gatewaydomain.GatewayPayment, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.payments[gatewayPaymentID], nil
}

func (c *stubClient) FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]gatewaydomain.GatewayPayment, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.orderPayments[gatewayOrderID], nil
}

func (c *stubClient) CreateRefund(ctx context.Context, gatewayPaymentID string, amountCents int64) (*gatewaydomain.GatewayRefund, error) {
	if c.refund == nil {
		return nil, errors.New("not implemented")
	}
	return c.refund, nil
}

type stubRegistry struct {
	client gatewaydomain.Client
	err    error
}

func (r *stubRegistry) ClientFor(gateway *gatewaydomain.Gateway) (gatewaydomain.Client, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.client, nil
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	client  *stubClient
	clock   *clock.FakeClock
	node    *snowflake.Node
	gateway gatewaydomain.Gateway
	order   orderdomain.Order
	intent  intentdomain.PaymentIntent
	payment domain.Payment
}

const ownerEmail = "buyer@example.com"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&gatewaydomain.Gateway{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&intentdomain.PaymentIntent{},
		&domain.Payment{},
		&domain.Refund{},
		&domain.PaymentEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	client := &stubClient{
		payments:      map[string]*gatewaydomain.GatewayPayment{},
		orderPayments: map[string][]gatewaydomain.GatewayPayment{},
	}

	f := &fixture{
		db:     conn,
		client: client,
		clock:  fakeClock,
		node:   node,
	}

	f.gateway = gatewaydomain.Gateway{
		ID:          node.Generate(),
		Name:        gatewaydomain.Razorpay,
		DisplayName: "Razorpay",
		IsActive:    true,
		Config: datatypes.JSONMap{
			"key_id":         "rzp_test_key",
			"key_secret":     "secret",
			"webhook_secret": "whsec",
		},
	}
	require.NoError(t, conn.Create(&f.gateway).Error)

	f.order = orderdomain.Order{
		ID:         node.Generate(),
		UserID:     node.Generate(),
		UserEmail:  ownerEmail,
		Status:     orderdomain.StatusPending,
		TotalCents: 49900,
		Currency:   "INR",
	}
	require.NoError(t, conn.Create(&f.order).Error)

	f.intent = intentdomain.PaymentIntent{
		ID:             "01HTESTINTENT0000000000001",
		OrderID:        f.order.ID,
		UserEmail:      ownerEmail,
		GatewayID:      f.gateway.ID,
		GatewayOrderID: "order_rcv123",
		AmountCents:    49900,
		Currency:       "INR",
		Status:         intentdomain.StatusCreated,
	}
	require.NoError(t, conn.Create(&f.intent).Error)

	f.payment = domain.Payment{
		ID:               node.Generate(),
		IntentID:         f.intent.ID,
		OrderID:          f.order.ID,
		GatewayID:        f.gateway.ID,
		GatewayPaymentID: "pay_abc123",
		AmountCents:      49900,
		Currency:         "INR",
		Status:           gatewaydomain.StatusPending,
	}
	require.NoError(t, conn.Create(&f.payment).Error)

	f.svc = NewService(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Reconcile: config.NewStaticReconcileConfigHolder(config.ReconcileConfig{
			IdempotencyWindow: 5 * time.Minute,
			SweepBatchSize:    100,
			GatewayTimeout:    10 * time.Second,
			WebhookAckOnError: true,
		}),
		Repo:     repository.Provide(),
		Intents:  intentrepository.Provide(),
		Orders:   orderrepository.Provide(),
		Gateways: gatewayrepository.Provide(),
		Registry: &stubRegistry{client: client},
	})
	return f
}

func ownerCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{UserID: 7, Email: ownerEmail, Role: actor.RoleCustomer})
}

func adminCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{UserID: 1, Email: "ops@example.com", Role: actor.RoleAdmin})
}

func (f *fixture) orderStatus(t *testing.T) string {
	t.Helper()
	var order orderdomain.Order
	require.NoError(t, f.db.First(&order, "id = ?", f.order.ID).Error)
	return order.Status
}

func (f *fixture) intentStatus(t *testing.T) string {
	t.Helper()
	var intent intentdomain.PaymentIntent
	require.NoError(t, f.db.First(&intent, "id = ?", f.intent.ID).Error)
	return intent.Status
}

func TestSyncPaymentUnchanged(t *testing.T) {
	f := newFixture(t)
	f.client.payments["pay_abc123"] = &gatewaydomain.GatewayPayment{
		ID:      "pay_abc123",
		OrderID: "order_rcv123",
		Status:  "created",
	}

	result, err := f.svc.SyncPayment(ownerCtx(), f.payment.ID.String())
	require.NoError(t, err)

	assert.False(t, result.StatusChanged)
	assert.Equal(t, gatewaydomain.StatusPending, result.CurrentStatus)
	assert.Equal(t, orderdomain.StatusPending, f.orderStatus(t))
	assert.Equal(t, intentdomain.StatusCreated, f.intentStatus(t))
}

func TestSyncPaymentCapturedCascades(t *testing.T) {
	f := newFixture(t)
	f.client.payments["pay_abc123"] = &gatewaydomain.GatewayPayment{
		ID:      "pay_abc123",
		OrderID: "order_rcv123",
		Status:  "captured",
		Method:  "upi",
	}

	result, err := f.svc.SyncPayment(ownerCtx(), f.payment.ID.String())
	require.NoError(t, err)

	assert.True(t, result.StatusChanged)
	assert.Equal(t, gatewaydomain.StatusPending, result.PreviousStatus)
	assert.Equal(t, gatewaydomain.StatusSuccess, result.CurrentStatus)
	assert.Equal(t, "upi", result.Payment.Method)

	assert.Equal(t, orderdomain.StatusProcessing, f.orderStatus(t))
	assert.Equal(t, intentdomain.StatusPaid, f.intentStatus(t))
}

func TestSyncPaymentFailedCancelsOrder(t *testing.T) {
	f := newFixture(t)
	f.client.payments["pay_abc123"] = &gatewaydomain.GatewayPayment{
		ID:      "pay_abc123",
		OrderID: "order_rcv123",
		Status:  "failed",
	}

	result, err := f.svc.SyncPayment(ownerCtx(), f.payment.ID.String())
	require.NoError(t, err)

	assert.Equal(t, gatewaydomain.StatusFailed, result.CurrentStatus)
	assert.Equal(t, orderdomain.StatusCancelled, f.orderStatus(t))
	assert.Equal(t, intentdomain.StatusFailed, f.intentStatus(t))
}

func TestSyncDoesNotRegressShippedOrder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&orderdomain.Order{}).
		Where("id = ?", f.order.ID).
		Update("status", orderdomain.StatusShipped).Error)

	f.client.payments["pay_abc123"] = &gatewaydomain.GatewayPayment{
		ID:      "pay_abc123",
		OrderID: "order_rcv123",
		Status:  "failed",
	}

	result, err := f.svc.SyncPayment(ownerCtx(), f.payment.ID.String())
	require.NoError(t, err)

	assert.Equal(t, gatewaydomain.StatusFailed, result.CurrentStatus)
	assert.Equal(t, orderdomain.StatusShipped, f.orderStatus(t))
}

func TestSyncPaymentDeniesStranger(t *testing.T) {
	f := newFixture(t)

	ctx := actor.WithActor(context.Background(), actor.Actor{UserID: 99, Email: "other@example.com", Role: actor.RoleCustomer})
	_, err := f.svc.SyncPayment(ctx, f.payment.ID.String())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSyncOrderPaymentsCreatesMissing(t *testing.T) {
	f := newFixture(t)
	f.client.orderPayments["order_rcv123"] = []gatewaydomain.GatewayPayment{
		{ID: "pay_abc123", OrderID: "order_rcv123", Status: "created"},
		{ID: "pay_new456", OrderID: "order_rcv123", Status: "captured", AmountCents: 49900, Currency: "INR"},
	}

	result, err := f.svc.SyncOrderPayments(ownerCtx(), f.order.ID.String())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Results, 2)

	var created domain.Payment
	require.NoError(t, f.db.First(&created, "gateway_payment_id = ?", "pay_new456").Error)
	assert.Equal(t, gatewaydomain.StatusSuccess, created.Status)
	assert.Equal(t, ownerEmail, created.UserEmail)
	assert.Equal(t, orderdomain.StatusProcessing, f.orderStatus(t))
}

func TestSyncOrderPaymentsGatewayDownFallsBack(t *testing.T) {
	f := newFixture(t)
	f.client.listErr = gatewaydomain.ErrGatewayUnavailable

	result, err := f.svc.SyncOrderPayments(ownerCtx(), f.order.ID.String())
	require.NoError(t, err)

	assert.Len(t, result.Errors, 1)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "pay_abc123", result.Results[0].Payment.GatewayPaymentID)
	assert.False(t, result.Results[0].StatusChanged)
}

func TestSyncAllPendingAggregates(t *testing.T) {
	f := newFixture(t)

	second := domain.Payment{
		ID:               f.node.Generate(),
		IntentID:         f.intent.ID,
		OrderID:          f.order.ID,
		GatewayID:        f.gateway.ID,
		GatewayPaymentID: "pay_other789",
		AmountCents:      49900,
		Currency:         "INR",
		Status:           gatewaydomain.StatusPending,
	}
	require.NoError(t, f.db.Create(&second).Error)

	f.client.payments["pay_abc123"] = &gatewaydomain.GatewayPayment{
		ID:      "pay_abc123",
		OrderID: "order_rcv123",
		Status:  "captured",
	}
	// pay_other789 missing from the stub: FetchPayment returns nil, which
	// counts as checked but unchanged.

	result, err := f.svc.SyncAllPending(adminCtx())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Results, 2)
	byGatewayID := map[string]domain.SyncResult{}
	for _, r := range result.Results {
		byGatewayID[r.Payment.GatewayPaymentID] = r
	}
	assert.True(t, byGatewayID["pay_abc123"].StatusChanged)
	assert.False(t, byGatewayID["pay_other789"].StatusChanged)
}

func TestSyncAllPendingRequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SyncAllPending(ownerCtx())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyPayment(t *testing.T) {
	f := newFixture(t)
	f.client.payments["pay_abc123"] = &gatewaydomain.GatewayPayment{
		ID:      "pay_abc123",
		OrderID: "order_rcv123",
		Status:  "captured",
	}

	signature := domain.SignPayment("order_rcv123", "pay_abc123", "secret")

	result, err := f.svc.VerifyPayment(ownerCtx(), domain.VerifyPaymentRequest{
		OrderRef:   "order_rcv123",
		PaymentRef: "pay_abc123",
		Signature:  signature,
	})
	require.NoError(t, err)
	assert.Equal(t, gatewaydomain.StatusSuccess, result.CurrentStatus)

	_, err = f.svc.VerifyPayment(ownerCtx(), domain.VerifyPaymentRequest{
		OrderRef:   "order_rcv123",
		PaymentRef: "pay_abc123",
		Signature:  "deadbeef",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyPaymentFailsClosedWithoutSecret(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&gatewaydomain.Gateway{}).
		Where("id = ?", f.gateway.ID).
		Update("config", datatypes.JSONMap{"key_id": "rzp_test_key"}).Error)

	signature := domain.SignPayment("order_rcv123", "pay_abc123", "")
	_, err := f.svc.VerifyPayment(ownerCtx(), domain.VerifyPaymentRequest{
		OrderRef:   "order_rcv123",
		PaymentRef: "pay_abc123",
		Signature:  signature,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestCreateRefund(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&domain.Payment{}).
		Where("id = ?", f.payment.ID).
		Update("status", gatewaydomain.StatusSuccess).Error)

	f.client.refund = &gatewaydomain.GatewayRefund{
		ID:          "rfnd_001",
		PaymentID:   "pay_abc123",
		AmountCents: 49900,
		Status:      "refunded",
	}

	refund, err := f.svc.CreateRefund(adminCtx(), domain.CreateRefundRequest{
		PaymentID: f.payment.ID.String(),
		Reason:    "customer request",
	})
	require.NoError(t, err)
	assert.Equal(t, "rfnd_001", refund.GatewayRefundID)
	assert.Equal(t, int64(49900), refund.AmountCents)
	assert.Equal(t, "INR", refund.Currency)
	assert.Equal(t, f.gateway.ID, refund.GatewayID)

	var paid domain.Payment
	require.NoError(t, f.db.First(&paid, "id = ?", f.payment.ID).Error)
	assert.Equal(t, int64(49900), paid.AmountRefundedCents)

	// a fully refunded payment has nothing left to refund
	_, err = f.svc.CreateRefund(adminCtx(), domain.CreateRefundRequest{
		PaymentID: f.payment.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrRefundExceeded)
}

func TestCreateRefundTracksCumulativeAmount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&domain.Payment{}).
		Where("id = ?", f.payment.ID).
		Update("status", gatewaydomain.StatusSuccess).Error)

	f.client.refund = &gatewaydomain.GatewayRefund{
		ID:          "rfnd_p1",
		PaymentID:   "pay_abc123",
		AmountCents: 20000,
		Status:      "refunded",
	}
	first, err := f.svc.CreateRefund(adminCtx(), domain.CreateRefundRequest{
		PaymentID:   f.payment.ID.String(),
		AmountCents: 20000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), first.AmountCents)

	var paid domain.Payment
	require.NoError(t, f.db.First(&paid, "id = ?", f.payment.ID).Error)
	assert.Equal(t, int64(20000), paid.AmountRefundedCents)

	// more than the 29900 still refundable
	_, err = f.svc.CreateRefund(adminCtx(), domain.CreateRefundRequest{
		PaymentID:   f.payment.ID.String(),
		AmountCents: 30000,
	})
	assert.ErrorIs(t, err, domain.ErrRefundExceeded)

	// zero amount refunds exactly what is left
	f.client.refund = &gatewaydomain.GatewayRefund{
		ID:        "rfnd_p2",
		PaymentID: "pay_abc123",
		Status:    "refunded",
	}
	rest, err := f.svc.CreateRefund(adminCtx(), domain.CreateRefundRequest{
		PaymentID: f.payment.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(29900), rest.AmountCents)

	require.NoError(t, f.db.First(&paid, "id = ?", f.payment.ID).Error)
	assert.Equal(t, int64(49900), paid.AmountRefundedCents)
}

func TestCreateRefundRejectsNegativeAmount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&domain.Payment{}).
		Where("id = ?", f.payment.ID).
		Update("status", gatewaydomain.StatusSuccess).Error)

	_, err := f.svc.CreateRefund(adminCtx(), domain.CreateRefundRequest{
		PaymentID:   f.payment.ID.String(),
		AmountCents: -100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateRefundRejectsPending(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRefund(adminCtx(), domain.CreateRefundRequest{
		PaymentID: f.payment.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotRefundable)
}
