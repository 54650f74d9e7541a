package domain

import (
	"context"
	"errors"
	"io"

	"github.com/kiranalabs/kirana/pkg/db/pagination"
)

type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress ShippingAddress    `json:"shipping_address"`
}

type ListOrderRequest struct {
	Pagination pagination.Pagination
}

type UpdateOrderStatusRequest struct {
	ID     string
	Status string
}

type Service interface {
	Create(context.Context, CreateOrderRequest) (Order, error)
	GetByID(ctx context.Context, id string) (Order, error)
	List(context.Context, ListOrderRequest) ([]Order, *pagination.PageInfo, error)
	UpdateStatus(context.Context, UpdateOrderStatusRequest) (Order, error)
	Cancel(ctx context.Context, id string) (Order, error)
	Receipt(ctx context.Context, id string) (io.Reader, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrEmptyOrder         = errors.New("empty_order")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidAddress     = errors.New("invalid_address")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidTransition  = errors.New("invalid_transition")
	ErrNotFound           = errors.New("not_found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrProductUnavailable = errors.New("product_unavailable")
	ErrOutOfStock         = errors.New("out_of_stock")
	ErrNotPaid            = errors.New("order_not_paid")
)
