package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, intent *PaymentIntent) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*PaymentIntent, error)
	FindByGatewayOrderID(ctx context.Context, db *gorm.DB, gatewayOrderID string) (*PaymentIntent, error)
	FindOpenByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID, userEmail string) (*PaymentIntent, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*PaymentIntent, error)
	ListOpen(ctx context.Context, db *gorm.DB, limit int) ([]*PaymentIntent, error)
	UpdateStatusIfCurrent(ctx context.Context, db *gorm.DB, id string, current, next string, updatedAt time.Time) (int64, error)
	AbandonOpen(ctx context.Context, db *gorm.DB, orderID snowflake.ID, userEmail string, updatedAt time.Time) (int64, error)
}
