package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/order/domain"
	"github.com/kiranalabs/kirana/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).
		Omit("Items").
		Create(order).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userEmail string, opts ...option.Option) ([]*domain.Order, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Order{}).
		Order("created_at DESC, id DESC")

	if userEmail != "" {
		stmt = stmt.Where("LOWER(user_email) = LOWER(?)", userEmail)
	}

	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var orders []*domain.Order
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatusIfCurrent is a compare-and-swap on the status column. A zero
// affected count means the order is missing or no longer in the expected status.
func (r *repo) UpdateStatusIfCurrent(ctx context.Context, db *gorm.DB, id snowflake.ID, current, next string, updatedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		next, updatedAt, id, current,
	)
	return result.RowsAffected, result.Error
}
