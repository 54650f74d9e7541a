package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Payment invariant: AmountRefundedCents never exceeds AmountCents.
type Payment struct {
	ID                  snowflake.ID      `json:"id" gorm:"primaryKey"`
	IntentID            string            `json:"intent_id" gorm:"index"`
	OrderID             snowflake.ID      `json:"order_id" gorm:"index"`
	GatewayID           snowflake.ID      `json:"gateway_id"`
	GatewayPaymentID    string            `json:"gateway_payment_id" gorm:"uniqueIndex"`
	UserEmail           string            `json:"user_email" gorm:"index"`
	AmountCents         int64             `json:"amount_cents"`
	AmountRefundedCents int64             `json:"amount_refunded_cents"`
	Currency            string            `json:"currency"`
	Status              string            `json:"status" gorm:"default:pending"`
	Method              string            `json:"method"`
	Raw                 datatypes.JSONMap `json:"-"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

type Refund struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentID       snowflake.ID `json:"payment_id" gorm:"index"`
	GatewayID       snowflake.ID `json:"gateway_id"`
	GatewayRefundID string       `json:"gateway_refund_id" gorm:"uniqueIndex"`
	AmountCents     int64        `json:"amount_cents"`
	Currency        string       `json:"currency"`
	Status          string       `json:"status"`
	Reason          string       `json:"reason"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (Refund) TableName() string { return "refunds" }

// PaymentEvent records a received webhook delivery. The unique index on
// (gateway, event type, gateway payment id) makes replays a no-op.
type PaymentEvent struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	GatewayName      string         `json:"gateway_name" gorm:"uniqueIndex:idx_payment_events_dedup"`
	EventType        string         `json:"event_type" gorm:"uniqueIndex:idx_payment_events_dedup"`
	GatewayPaymentID string         `json:"gateway_payment_id" gorm:"uniqueIndex:idx_payment_events_dedup"`
	Payload          datatypes.JSON `json:"payload"`
	ReceivedAt       time.Time      `json:"received_at"`
}

func (PaymentEvent) TableName() string { return "payment_events" }
