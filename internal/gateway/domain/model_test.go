package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"created", StatusPending},
		{"authorized", StatusPending},
		{"captured", StatusSuccess},
		{"CAPTURED", StatusSuccess},
		{" failed ", StatusFailed},
		{"refunded", StatusRefunded},
		{"Disputed", "disputed"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MapStatus(tc.raw), "raw=%q", tc.raw)
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(Razorpay))
	assert.True(t, Supported(HDFC))
	assert.False(t, Supported("paytm"))
	assert.False(t, Supported(""))
}

func TestRequiredKeys(t *testing.T) {
	assert.ElementsMatch(t, []string{"key_id", "key_secret", "webhook_secret"}, RequiredKeys(Razorpay))
	assert.ElementsMatch(t, []string{"merchant_id", "access_code", "working_key"}, RequiredKeys(HDFC))
	assert.Empty(t, RequiredKeys("paytm"))
}

func TestConfigValue(t *testing.T) {
	gateway := &Gateway{Config: map[string]interface{}{
		"key_id":  "rzp_test_key",
		"attempt": 3,
	}}
	assert.Equal(t, "rzp_test_key", gateway.ConfigValue("key_id"))
	assert.Equal(t, "", gateway.ConfigValue("attempt"))
	assert.Equal(t, "", gateway.ConfigValue("missing"))
}
