package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/config"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
	gatewayrepository "github.com/kiranalabs/kirana/internal/gateway/repository"
	"github.com/kiranalabs/kirana/internal/intent/domain"
	"github.com/kiranalabs/kirana/internal/intent/repository"
	orderdomain "github.com/kiranalabs/kirana/internal/order/domain"
	orderrepository "github.com/kiranalabs/kirana/internal/order/repository"
)

type stubClient struct {
	createOrderCalls int
	createOrderErr   error
}

func (c *stubClient) CreateOrder(ctx context.Context, params gatewaydomain.CreateOrderParams) (*gatewaydomain.GatewayOrder, error) {
	c.createOrderCalls++
	if c.createOrderErr != nil {
		return nil, c.createOrderErr
	}
	return &gatewaydomain.GatewayOrder{
		ID:          fmt.Sprintf("order_gen%d", c.createOrderCalls),
		Status:      "created",
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
	}, nil
}

func (c *stubClient) FetchPayment(ctx context.Context, paymentID string) (*gatewaydomain.GatewayPayment, error) {
	return nil, nil
}

func (c *stubClient) FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]gatewaydomain.GatewayPayment, error) {
	return nil, nil
}

func (c *stubClient) CreateRefund(ctx context.Context, paymentID string, amountCents int64) (*gatewaydomain.GatewayRefund, error) {
	return nil, nil
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
	db       *gorm.DB
	svc      domain.Service
	clock    *clock.FakeClock
	client   *stubClient
	registry *stubRegistry
	gateway  gatewaydomain.Gateway
	order    orderdomain.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&gatewaydomain.Gateway{},
		&orderdomain.Order{},
		&domain.PaymentIntent{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	f := &fixture{db: conn, clock: fakeClock, client: &stubClient{}}
	f.registry = &stubRegistry{client: f.client}

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
		UserID:     42,
		UserEmail:  "buyer@example.com",
		Status:     orderdomain.StatusPending,
		TotalCents: 49900,
		Currency:   "INR",
	}
	require.NoError(t, conn.Create(&f.order).Error)

	f.svc = New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Clock: fakeClock,
		Reconcile: config.NewStaticReconcileConfigHolder(config.ReconcileConfig{
			IdempotencyWindow: 5 * time.Minute,
			SweepBatchSize:    100,
			GatewayTimeout:    10 * time.Second,
			WebhookAckOnError: true,
		}),
		Repo:     repository.Provide(),
		Orders:   orderrepository.Provide(),
		Gateways: gatewayrepository.Provide(),
		Registry: f.registry,
	})
	return f
}

func buyerCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{
		UserID: 42,
		Email:  "buyer@example.com",
		Role:   actor.RoleCustomer,
	})
}

func TestCreateIntentOpensAndExposesCheckoutKey(t *testing.T) {
	f := newFixture(t)

	checkout, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCreated, checkout.Status)
	assert.Equal(t, "order_gen1", checkout.GatewayOrderID)
	assert.Equal(t, int64(49900), checkout.AmountCents)
	assert.Equal(t, gatewaydomain.Razorpay, checkout.GatewayName)
	assert.Equal(t, "rzp_test_key", checkout.GatewayKey)
	assert.Equal(t, 1, f.client.createOrderCalls)
}

func TestCreateIntentReusesOpenWithinWindow(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)

	second, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "rzp_test_key", second.GatewayKey)
	assert.Equal(t, 1, f.client.createOrderCalls)
}

func TestCreateIntentSupersedesStaleOpen(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	require.NoError(t, err)

	f.clock.Advance(6 * time.Minute)

	second, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, f.client.createOrderCalls)

	var stale domain.PaymentIntent
	require.NoError(t, f.db.First(&stale, "id = ?", first.ID).Error)
	assert.Equal(t, domain.StatusAbandoned, stale.Status)
}

func TestCreateIntentRejectsStranger(t *testing.T) {
	f := newFixture(t)

	ctx := actor.WithActor(context.Background(), actor.Actor{
		UserID: 99,
		Email:  "other@example.com",
		Role:   actor.RoleCustomer,
	})

	_, err := f.svc.Create(ctx, domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestCreateIntentRejectsNonPendingOrder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&orderdomain.Order{}).
		Where("id = ?", f.order.ID).
		Update("status", orderdomain.StatusCancelled).Error)

	_, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	assert.ErrorIs(t, err, domain.ErrOrderNotPayable)
}

func TestCreateIntentWithoutActiveGateway(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&gatewaydomain.Gateway{}).
		Where("id = ?", f.gateway.ID).
		Update("is_active", false).Error)

	_, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	assert.ErrorIs(t, err, gatewaydomain.ErrNoActiveGateway)
}

func TestCreateIntentWithPinnedGateway(t *testing.T) {
	f := newFixture(t)

	checkout, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{
		OrderID:   f.order.ID.String(),
		GatewayID: f.gateway.ID.String(),
		Metadata:  map[string]any{"channel": "app"},
	})
	require.NoError(t, err)
	assert.Equal(t, f.gateway.ID, checkout.GatewayID)

	var stored domain.PaymentIntent
	require.NoError(t, f.db.First(&stored, "id = ?", checkout.ID).Error)
	assert.Equal(t, "app", stored.Metadata["channel"])
}

func TestCreateIntentRejectsInactivePinnedGateway(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&gatewaydomain.Gateway{}).
		Where("id = ?", f.gateway.ID).
		Update("is_active", false).Error)

	_, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{
		OrderID:   f.order.ID.String(),
		GatewayID: f.gateway.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrGatewayInactive)
}

func TestCreateIntentRejectsUnknownPinnedGateway(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{
		OrderID:   f.order.ID.String(),
		GatewayID: "424242",
	})
	assert.ErrorIs(t, err, domain.ErrGatewayNotFound)
}

func TestCreateIntentRejectsUnsupportedGatewayName(t *testing.T) {
	f := newFixture(t)
	f.registry.err = gatewaydomain.ErrUnsupportedGateway

	_, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	assert.ErrorIs(t, err, domain.ErrGatewayUnsupported)
}

func TestGetByIDEnforcesOwnership(t *testing.T) {
	f := newFixture(t)

	checkout, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	require.NoError(t, err)

	got, err := f.svc.GetByID(buyerCtx(), checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.ID, got.ID)

	// a stranger gets a miss, not a denial that leaks existence
	stranger := actor.WithActor(context.Background(), actor.Actor{
		UserID: 99,
		Email:  "other@example.com",
		Role:   actor.RoleCustomer,
	})
	_, err = f.svc.GetByID(stranger, checkout.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByOrderHidesStrangersOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	require.NoError(t, err)

	stranger := actor.WithActor(context.Background(), actor.Actor{
		UserID: 99,
		Email:  "other@example.com",
		Role:   actor.RoleCustomer,
	})
	_, err = f.svc.ListByOrder(stranger, f.order.ID.String())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListByOrderAllowsAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(buyerCtx(), domain.CreateIntentRequest{OrderID: f.order.ID.String()})
	require.NoError(t, err)

	admin := actor.WithActor(context.Background(), actor.Actor{
		UserID: 1,
		Email:  "ops@example.com",
		Role:   actor.RoleAdmin,
	})

	intents, err := f.svc.ListByOrder(admin, f.order.ID.String())
	require.NoError(t, err)
	assert.Len(t, intents, 1)
}
