package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByGatewayPaymentID(ctx context.Context, db *gorm.DB, gatewayPaymentID string) (*Payment, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*Payment, error)
	ListByStatuses(ctx context.Context, db *gorm.DB, statuses []string, limit int) ([]*Payment, error)

	InsertEventIfNew(ctx context.Context, db *gorm.DB, event *PaymentEvent) (bool, error)

	AddRefundedAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amountCents int64) (bool, error)

	InsertRefund(ctx context.Context, db *gorm.DB, refund *Refund) error
	FindRefundByGatewayRefundID(ctx context.Context, db *gorm.DB, gatewayRefundID string) (*Refund, error)
	ListRefundsByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]*Refund, error)
}
