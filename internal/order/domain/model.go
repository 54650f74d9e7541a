package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
)

var transitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// ValidStatus reports whether value is a known order status.
func ValidStatus(value string) bool {
	switch value {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
// Delivered and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Order struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID          snowflake.ID      `json:"user_id" gorm:"index"`
	UserEmail       string            `json:"user_email" gorm:"index"`
	Status          string            `json:"status" gorm:"default:PENDING"`
	TotalCents      int64             `json:"total_cents"`
	Currency        string            `json:"currency" gorm:"default:INR"`
	ShippingAddress datatypes.JSONMap `json:"shipping_address"`
	Items           []OrderItem       `json:"items,omitempty" gorm:"-"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID        snowflake.ID `json:"order_id" gorm:"index"`
	ProductID      snowflake.ID `json:"product_id"`
	ProductName    string       `json:"product_name"`
	UnitPriceCents int64        `json:"unit_price_cents"`
	Quantity       int          `json:"quantity"`
	TotalCents     int64        `json:"total_cents"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }
