package domain

import (
	"context"
	"errors"
)

type CreateIntentRequest struct {
	OrderID string `json:"order_id"`
	// GatewayID pins the intent to a specific gateway. Empty picks the
	// active one.
	GatewayID string         `json:"gateway_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CheckoutIntent is an intent plus the public fields a client needs to open
// the provider checkout. Secrets never leave the service.
type CheckoutIntent struct {
	PaymentIntent
	GatewayName string `json:"gateway_name"`
	GatewayKey  string `json:"gateway_key,omitempty"`
}

type Service interface {
	Create(context.Context, CreateIntentRequest) (CheckoutIntent, error)
	GetByID(ctx context.Context, id string) (PaymentIntent, error)
	ListByOrder(ctx context.Context, orderID string) ([]PaymentIntent, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrNotOwner           = errors.New("order_not_owned")
	ErrOrderNotPayable    = errors.New("order_not_payable")
	ErrGatewayNotFound    = errors.New("gateway_not_found")
	ErrGatewayInactive    = errors.New("gateway_inactive")
	ErrGatewayUnsupported = errors.New("gateway_unsupported")
	ErrNotFound           = errors.New("not_found")
	ErrUnauthorized       = errors.New("unauthorized")
)
