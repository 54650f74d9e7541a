package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/pkg/db/option"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderItem, error)
	List(ctx context.Context, db *gorm.DB, userEmail string, opts ...option.Option) ([]*Order, error)
	UpdateStatusIfCurrent(ctx context.Context, db *gorm.DB, id snowflake.ID, current, next string, updatedAt time.Time) (int64, error)
}
