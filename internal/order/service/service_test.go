package service

import (
	"context"
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
	"github.com/kiranalabs/kirana/internal/order/domain"
	"github.com/kiranalabs/kirana/internal/order/repository"
	productdomain "github.com/kiranalabs/kirana/internal/product/domain"
	productrepository "github.com/kiranalabs/kirana/internal/product/repository"
	"github.com/kiranalabs/kirana/internal/providers/email"
	"github.com/kiranalabs/kirana/internal/providers/pdf"
)

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	product productdomain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&productdomain.Product{},
		&domain.Order{},
		&domain.OrderItem{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	f := &fixture{db: conn}

	f.product = productdomain.Product{
		ID:         node.Generate(),
		Name:       "Filter Coffee Powder 500g",
		Slug:       "filter-coffee-powder-500g",
		PriceCents: 42500,
		Currency:   "INR",
		Stock:      3,
		Active:     true,
	}
	require.NoError(t, conn.Create(&f.product).Error)

	f.svc = New(Params{
		Cfg:      config.Config{AppName: "kirana", AdminEmail: "ops@example.com"},
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		Repo:     repository.Provide(),
		Products: productrepository.Provide(),
		PDF:      &pdf.NoOpProvider{},
		Email:    &email.NoOpProvider{},
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

func adminCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{
		UserID: 1,
		Email:  "ops@example.com",
		Role:   actor.RoleAdmin,
	})
}

func shippingAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:       "Buyer",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	var product productdomain.Product
	require.NoError(t, f.db.First(&product, "id = ?", f.product.ID).Error)
	return product.Stock
}

func TestCreateOrderDecrementsStock(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items:           []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 2}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(85000), order.TotalCents)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "buyer@example.com", order.UserEmail)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 1, f.stock(t))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items:           []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 5}},
		ShippingAddress: shippingAddress(),
	})
	assert.ErrorIs(t, err, domain.ErrOutOfStock)

	// the transaction rolled back, stock untouched
	assert.Equal(t, 3, f.stock(t))
}

func TestCreateOrderInactiveProduct(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&productdomain.Product{}).
		Where("id = ?", f.product.ID).
		Update("active", false).Error)

	_, err := f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items:           []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestCreateOrderValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		ShippingAddress: shippingAddress(),
	})
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)

	_, err = f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items:           []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 0}},
		ShippingAddress: shippingAddress(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items: []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestCancelRestocks(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items:           []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 2}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.stock(t))

	cancelled, err := f.svc.Cancel(buyerCtx(), order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 3, f.stock(t))
}

func TestCancelRejectsNonPending(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items:           []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(adminCtx(), domain.UpdateOrderStatusRequest{
		ID:     order.ID.String(),
		Status: domain.StatusProcessing,
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(buyerCtx(), order.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items:           []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(adminCtx(), domain.UpdateOrderStatusRequest{
		ID:     order.ID.String(),
		Status: domain.StatusDelivered,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(buyerCtx(), domain.UpdateOrderStatusRequest{
		ID:     order.ID.String(),
		Status: domain.StatusProcessing,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	updated, err := f.svc.UpdateStatus(adminCtx(), domain.UpdateOrderStatusRequest{
		ID:     order.ID.String(),
		Status: "processing",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, updated.Status)
}

func TestGetByIDEnforcesOwnership(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(buyerCtx(), domain.CreateOrderRequest{
		Items:           []domain.OrderItemRequest{{ProductID: f.product.ID.String(), Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	got, err := f.svc.GetByID(buyerCtx(), order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)

	stranger := actor.WithActor(context.Background(), actor.Actor{
		UserID: 99,
		Email:  "other@example.com",
		Role:   actor.RoleCustomer,
	})
	_, err = f.svc.GetByID(stranger, order.ID.String())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.GetByID(adminCtx(), order.ID.String())
	assert.NoError(t, err)
}
