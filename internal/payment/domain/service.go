package domain

import (
	"context"
	"errors"
)

type SyncResult struct {
	Payment        Payment `json:"payment"`
	StatusChanged  bool    `json:"status_changed"`
	PreviousStatus string  `json:"previous_status"`
	CurrentStatus  string  `json:"current_status"`
}

type OrderSyncResult struct {
	OrderID string       `json:"order_id"`
	Results []SyncResult `json:"results"`
	Created int          `json:"created"`
	Errors  []string     `json:"errors,omitempty"`
}

type SweepResult struct {
	Checked int          `json:"checked"`
	Updated int          `json:"updated"`
	Failed  int          `json:"failed"`
	Results []SyncResult `json:"results"`
	Errors  []string     `json:"errors,omitempty"`
}

type VerifyPaymentRequest struct {
	OrderRef   string `json:"order_ref"`
	PaymentRef string `json:"payment_ref"`
	Signature  string `json:"signature"`
}

type CreateRefundRequest struct {
	PaymentID string `json:"payment_id"`
	// AmountCents of zero refunds whatever has not been refunded yet.
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

type Service interface {
	SyncPayment(ctx context.Context, paymentID string) (SyncResult, error)
	SyncPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (SyncResult, error)
	SyncOrderPayments(ctx context.Context, orderID string) (OrderSyncResult, error)
	SyncAllPending(ctx context.Context) (SweepResult, error)
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (SyncResult, error)
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
	CreateRefund(ctx context.Context, req CreateRefundRequest) (Refund, error)
}

type WebhookResult struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

type WebhookService interface {
	HandleWebhook(ctx context.Context, gatewayName string, payload []byte, signature string) (WebhookResult, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	ErrIntentNotFound   = errors.New("intent_not_found")
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrGatewayNotFound  = errors.New("gateway_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrNotRefundable    = errors.New("payment_not_refundable")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrRefundExceeded   = errors.New("refund_exceeds_amount")
	ErrUnauthorized     = errors.New("unauthorized")
)
