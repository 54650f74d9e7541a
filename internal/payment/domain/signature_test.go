package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignPayment(t *testing.T) {
	sig := SignPayment("order_rcv123", "pay_abc123", "secret")

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("order_rcv123|pay_abc123"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)

	assert.NotEqual(t, sig, SignPayment("order_rcv123", "pay_abc124", "secret"))
	assert.NotEqual(t, sig, SignPayment("order_rcv123", "pay_abc123", "other"))
}

func TestVerifyPaymentSignature(t *testing.T) {
	sig := SignPayment("order_rcv123", "pay_abc123", "secret")

	assert.True(t, VerifyPaymentSignature("order_rcv123", "pay_abc123", sig, "secret"))
	assert.False(t, VerifyPaymentSignature("order_rcv123", "pay_abc123", sig, "wrong"))
	assert.False(t, VerifyPaymentSignature("order_other", "pay_abc123", sig, "secret"))
	assert.False(t, VerifyPaymentSignature("order_rcv123", "pay_abc123", "deadbeef", "secret"))
	assert.False(t, VerifyPaymentSignature("order_rcv123", "pay_abc123", "", "secret"))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)

	mac := hmac.New(sha256.New, []byte("whsec"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyWebhookSignature(body, sig, "whsec"))
	assert.False(t, VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), sig, "whsec"))
	assert.False(t, VerifyWebhookSignature(body, sig, "other"))
	assert.False(t, VerifyWebhookSignature(body, "", "whsec"))
}
