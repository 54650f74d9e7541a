package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	intentdomain "github.com/kiranalabs/kirana/internal/intent/domain"
	paymentdomain "github.com/kiranalabs/kirana/internal/payment/domain"
)

func TestMapErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad callback signature", paymentdomain.ErrInvalidSignature, http.StatusBadRequest},
		{"negative refund amount", paymentdomain.ErrInvalidAmount, http.StatusBadRequest},
		{"refund past captured amount", paymentdomain.ErrRefundExceeded, http.StatusConflict},
		{"inactive pinned gateway", intentdomain.ErrGatewayInactive, http.StatusConflict},
		{"unsupported pinned gateway", intentdomain.ErrGatewayUnsupported, http.StatusConflict},
		{"unknown pinned gateway", intentdomain.ErrGatewayNotFound, http.StatusNotFound},
		{"hidden intent reads as missing", intentdomain.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := mapError(tc.err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestMapErrorSignatureIsNotAuthFailure(t *testing.T) {
	status, payload := mapError(paymentdomain.ErrInvalidSignature)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
}
