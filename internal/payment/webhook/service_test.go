package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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
	paymentservice "github.com/kiranalabs/kirana/internal/payment/service"
)

const webhookSecretValue = "whsec_test"

type fixture struct {
	db     *gorm.DB
	svc    domain.WebhookService
	order  orderdomain.Order
	intent intentdomain.PaymentIntent
}

func newFixture(t *testing.T, ackOnError bool) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&gatewaydomain.Gateway{},
		&orderdomain.Order{},
		&intentdomain.PaymentIntent{},
		&domain.Payment{},
		&domain.Refund{},
		&domain.PaymentEvent{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	holder := config.NewStaticReconcileConfigHolder(config.ReconcileConfig{
		IdempotencyWindow: 5 * time.Minute,
		SweepBatchSize:    100,
		GatewayTimeout:    10 * time.Second,
		WebhookAckOnError: ackOnError,
	})

	gateway := gatewaydomain.Gateway{
		ID:          node.Generate(),
		Name:        gatewaydomain.Razorpay,
		DisplayName: "Razorpay",
		IsActive:    true,
		Config: datatypes.JSONMap{
			"key_id":         "rzp_test_key",
			"key_secret":     "secret",
			"webhook_secret": webhookSecretValue,
		},
	}
	require.NoError(t, conn.Create(&gateway).Error)

	f := &fixture{db: conn}

	f.order = orderdomain.Order{
		ID:         node.Generate(),
		UserID:     node.Generate(),
		UserEmail:  "buyer@example.com",
		Status:     orderdomain.StatusPending,
		TotalCents: 49900,
		Currency:   "INR",
	}
	require.NoError(t, conn.Create(&f.order).Error)

	f.intent = intentdomain.PaymentIntent{
		ID:             "01HTESTWEBHOOK000000000001",
		OrderID:        f.order.ID,
		UserEmail:      "buyer@example.com",
		GatewayID:      gateway.ID,
		GatewayOrderID: "order_hook1",
		AmountCents:    49900,
		Currency:       "INR",
		Status:         intentdomain.StatusCreated,
	}
	require.NoError(t, conn.Create(&f.intent).Error)

	payments := paymentservice.NewService(paymentservice.Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Reconcile: holder,
		Repo:      repository.Provide(),
		Intents:   intentrepository.Provide(),
		Orders:    orderrepository.Provide(),
		Gateways:  gatewayrepository.Provide(),
		Registry:  nil,
	})

	f.svc = New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Reconcile: holder,
		Repo:      repository.Provide(),
		Gateways:  gatewayrepository.Provide(),
		Payments:  payments,
	})
	return f
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecretValue))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedPayload(paymentID, orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": %q,
			"order_id": %q,
			"status": "captured",
			"amount": 49900,
			"currency": "INR",
			"method": "upi",
			"email": "buyer@example.com",
			"created_at": 1709287200
		}}}
	}`, paymentID, orderID))
}

func TestHandleWebhookCapturedCreatesAndCascades(t *testing.T) {
	f := newFixture(t, true)
	payload := capturedPayload("pay_hook1", "order_hook1")

	result, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, sign(payload))
	require.NoError(t, err)
	assert.True(t, result.Received)
	assert.False(t, result.Duplicate)

	var payment domain.Payment
	require.NoError(t, f.db.First(&payment, "gateway_payment_id = ?", "pay_hook1").Error)
	assert.Equal(t, gatewaydomain.StatusSuccess, payment.Status)

	var order orderdomain.Order
	require.NoError(t, f.db.First(&order, "id = ?", f.order.ID).Error)
	assert.Equal(t, orderdomain.StatusProcessing, order.Status)
}

func TestHandleWebhookReplayIsNoOp(t *testing.T) {
	f := newFixture(t, true)
	payload := capturedPayload("pay_hook1", "order_hook1")

	_, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, sign(payload))
	require.NoError(t, err)

	result, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, sign(payload))
	require.NoError(t, err)
	assert.True(t, result.Received)
	assert.True(t, result.Duplicate)

	var count int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t, true)
	payload := capturedPayload("pay_hook1", "order_hook1")

	_, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, "deadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestHandleWebhookFailsClosedWithoutSecret(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.db.Model(&gatewaydomain.Gateway{}).
		Where("name = ?", gatewaydomain.Razorpay).
		Update("config", datatypes.JSONMap{"key_id": "rzp_test_key"}).Error)

	payload := capturedPayload("pay_hook1", "order_hook1")
	mac := hmac.New(sha256.New, []byte(""))
	mac.Write(payload)

	_, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, hex.EncodeToString(mac.Sum(nil)))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestHandleWebhookUnknownGateway(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.HandleWebhook(context.Background(), "paytm", []byte("{}"), "sig")
	assert.ErrorIs(t, err, domain.ErrGatewayNotFound)
}

func TestHandleWebhookUnhandledEventAcked(t *testing.T) {
	f := newFixture(t, true)
	payload := []byte(`{
		"event": "payment.authorized",
		"payload": {"payment": {"entity": {"id": "pay_auth1", "order_id": "order_hook1", "status": "authorized"}}}
	}`)

	result, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, sign(payload))
	require.NoError(t, err)
	assert.True(t, result.Received)

	// recorded but not applied
	var count int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestHandleWebhookAckOnProcessingError(t *testing.T) {
	f := newFixture(t, true)
	// order reference the intent table does not know
	payload := capturedPayload("pay_orphan", "order_unknown")

	result, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, sign(payload))
	require.NoError(t, err)
	assert.True(t, result.Received)

	var count int64
	require.NoError(t, f.db.Model(&domain.PaymentEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandleWebhookErrorWithoutAckPolicy(t *testing.T) {
	f := newFixture(t, false)
	payload := capturedPayload("pay_orphan", "order_unknown")

	_, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, sign(payload))
	assert.ErrorIs(t, err, domain.ErrIntentNotFound)
}

func TestHandleWebhookRejectsGarbagePayload(t *testing.T) {
	f := newFixture(t, true)
	payload := []byte("not json")

	_, err := f.svc.HandleWebhook(context.Background(), "razorpay", payload, sign(payload))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}
