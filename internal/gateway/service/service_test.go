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

	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/gateway/domain"
	"github.com/kiranalabs/kirana/internal/gateway/repository"
	intentdomain "github.com/kiranalabs/kirana/internal/intent/domain"
)

func newService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Gateway{}, &intentdomain.PaymentIntent{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, conn
}

func razorpayConfig() map[string]interface{} {
	return map[string]interface{}{
		"key_id":         "rzp_test_key",
		"key_secret":     "secret",
		"webhook_secret": "whsec",
	}
}

func TestCreateGateway(t *testing.T) {
	svc, _ := newService(t)

	gateway, err := svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:     " Razorpay ",
		IsActive: true,
		Config:   razorpayConfig(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Razorpay, gateway.Name)
	assert.Equal(t, domain.Razorpay, gateway.DisplayName)
	assert.True(t, gateway.IsActive)
	assert.NotZero(t, gateway.ID)
}

func TestCreateGatewayRejectsUnsupportedName(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:   "paytm",
		Config: razorpayConfig(),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedGateway)
}

func TestCreateGatewayRejectsMissingConfigKey(t *testing.T) {
	svc, _ := newService(t)

	config := razorpayConfig()
	delete(config, "key_secret")

	_, err := svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:   domain.Razorpay,
		Config: config,
	})
	assert.ErrorIs(t, err, domain.ErrMissingConfigKey)

	config["key_secret"] = "   "
	_, err = svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:   domain.Razorpay,
		Config: config,
	})
	assert.ErrorIs(t, err, domain.ErrMissingConfigKey)
}

func TestCreateGatewayRejectsDuplicateName(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:   domain.Razorpay,
		Config: razorpayConfig(),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:   domain.Razorpay,
		Config: razorpayConfig(),
	})
	assert.ErrorIs(t, err, domain.ErrNameTaken)
}

func TestUpdateGatewayValidatesNewConfig(t *testing.T) {
	svc, _ := newService(t)

	gateway, err := svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:   domain.HDFC,
		Config: map[string]interface{}{"merchant_id": "m1", "access_code": "ac1", "working_key": "wk1"},
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), domain.UpdateGatewayRequest{
		ID:     gateway.ID.String(),
		Config: map[string]interface{}{"merchant_id": "m1"},
	})
	assert.ErrorIs(t, err, domain.ErrMissingConfigKey)

	active := true
	updated, err := svc.Update(context.Background(), domain.UpdateGatewayRequest{
		ID:       gateway.ID.String(),
		IsActive: &active,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
}

func TestDeleteGatewayBlockedWhileReferenced(t *testing.T) {
	svc, conn := newService(t)

	gateway, err := svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:   domain.Razorpay,
		Config: razorpayConfig(),
	})
	require.NoError(t, err)

	intent := intentdomain.PaymentIntent{
		ID:             "01HTESTGWDELETE00000000001",
		OrderID:        1,
		UserEmail:      "buyer@example.com",
		GatewayID:      gateway.ID,
		GatewayOrderID: "order_ref1",
		AmountCents:    1000,
		Currency:       "INR",
		Status:         intentdomain.StatusCreated,
	}
	require.NoError(t, conn.Create(&intent).Error)

	err = svc.Delete(context.Background(), gateway.ID.String())
	assert.ErrorIs(t, err, domain.ErrInUse)

	require.NoError(t, conn.Delete(&intentdomain.PaymentIntent{}, "id = ?", intent.ID).Error)
	require.NoError(t, svc.Delete(context.Background(), gateway.ID.String()))

	_, err = svc.GetByID(context.Background(), gateway.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindActivePicksNewest(t *testing.T) {
	svc, conn := newService(t)

	_, err := svc.FindActive(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveGateway)

	gateway, err := svc.Create(context.Background(), domain.CreateGatewayRequest{
		Name:     domain.Razorpay,
		IsActive: true,
		Config:   razorpayConfig(),
	})
	require.NoError(t, err)

	active, err := svc.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gateway.ID, active.ID)

	require.NoError(t, conn.Model(&domain.Gateway{}).
		Where("id = ?", gateway.ID).
		Update("is_active", false).Error)

	_, err = svc.FindActive(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveGateway)
}
