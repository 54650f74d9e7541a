package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/intent/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, intent *domain.PaymentIntent) error {
	return db.WithContext(ctx).Create(intent).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("id = ?", id).
		Scan(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return nil, nil
	}
	return &intent, nil
}

func (r *repo) FindByGatewayOrderID(ctx context.Context, db *gorm.DB, gatewayOrderID string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("gateway_order_id = ?", gatewayOrderID).
		Scan(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return nil, nil
	}
	return &intent, nil
}

func (r *repo) FindOpenByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID, userEmail string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("order_id = ? AND LOWER(user_email) = LOWER(?) AND status = ?", orderID, userEmail, domain.StatusCreated).
		Order("created_at DESC").
		Limit(1).
		Scan(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return nil, nil
	}
	return &intent, nil
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*domain.PaymentIntent, error) {
	var intents []*domain.PaymentIntent
	err := db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&intents).Error
	if err != nil {
		return nil, err
	}
	return intents, nil
}

// ListOpen returns the oldest open intents first so sweeps make progress on
// the backlog before touching fresh intents.
func (r *repo) ListOpen(ctx context.Context, db *gorm.DB, limit int) ([]*domain.PaymentIntent, error) {
	var intents []*domain.PaymentIntent
	err := db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("status = ?", domain.StatusCreated).
		Order("created_at ASC").
		Limit(limit).
		Find(&intents).Error
	if err != nil {
		return nil, err
	}
	return intents, nil
}

func (r *repo) UpdateStatusIfCurrent(ctx context.Context, db *gorm.DB, id string, current, next string, updatedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_intents SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		next, updatedAt, id, current,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) AbandonOpen(ctx context.Context, db *gorm.DB, orderID snowflake.ID, userEmail string, updatedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_intents SET status = ?, updated_at = ?
		 WHERE order_id = ? AND LOWER(user_email) = LOWER(?) AND status = ?`,
		domain.StatusAbandoned, updatedAt, orderID, userEmail, domain.StatusCreated,
	)
	return result.RowsAffected, result.Error
}
