package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Normalized payment statuses. Provider-specific statuses are folded into
// these before anything is persisted.
const (
	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

// MapStatus folds a provider payment status into the normalized set. Unknown
// statuses pass through lowercased so they are never mistaken for success.
func MapStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "created", "authorized":
		return StatusPending
	case "captured":
		return StatusSuccess
	case "failed":
		return StatusFailed
	case "refunded":
		return StatusRefunded
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

// ErrGatewayUnavailable wraps transport failures talking to a provider so
// callers can tell them apart from domain errors.
var ErrGatewayUnavailable = errors.New("gateway_unavailable")

type CreateOrderParams struct {
	AmountCents int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type GatewayOrder struct {
	ID          string
	Status      string
	AmountCents int64
	Currency    string
}

type GatewayPayment struct {
	ID          string
	OrderID     string
	Status      string
	AmountCents int64
	Currency    string
	Method      string
	Email       string
	Contact     string
	CreatedAt   time.Time
	Raw         map[string]interface{}
}

type GatewayRefund struct {
	ID          string
	PaymentID   string
	Status      string
	AmountCents int64
}

// Client talks to one payment provider account.
type Client interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
	FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]GatewayPayment, error)
	CreateRefund(ctx context.Context, paymentID string, amountCents int64) (*GatewayRefund, error)
}

// Registry builds provider clients from stored gateway credentials.
type Registry interface {
	ClientFor(gateway *Gateway) (Client, error)
}
