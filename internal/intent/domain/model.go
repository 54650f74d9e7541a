package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusCreated   = "created"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

type PaymentIntent struct {
	ID             string            `json:"id" gorm:"primaryKey"`
	OrderID        snowflake.ID      `json:"order_id" gorm:"index"`
	UserEmail      string            `json:"user_email"`
	GatewayID      snowflake.ID      `json:"gateway_id"`
	GatewayOrderID string            `json:"gateway_order_id" gorm:"uniqueIndex"`
	AmountCents    int64             `json:"amount_cents"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status" gorm:"default:created"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }
