package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/gateway/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, gateway *domain.Gateway) error {
	return db.WithContext(ctx).Create(gateway).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, gateway *domain.Gateway) error {
	return db.WithContext(ctx).Save(gateway).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Gateway, error) {
	var gateway domain.Gateway
	err := db.WithContext(ctx).
		Model(&domain.Gateway{}).
		Where("id = ?", id).
		Scan(&gateway).Error
	if err != nil {
		return nil, err
	}
	if gateway.ID == 0 {
		return nil, nil
	}
	return &gateway, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Gateway, error) {
	var gateway domain.Gateway
	err := db.WithContext(ctx).
		Model(&domain.Gateway{}).
		Where("name = ?", name).
		Scan(&gateway).Error
	if err != nil {
		return nil, err
	}
	if gateway.ID == 0 {
		return nil, nil
	}
	return &gateway, nil
}

// FindActive returns the most recently configured active gateway, if any.
func (r *repo) FindActive(ctx context.Context, db *gorm.DB) (*domain.Gateway, error) {
	var gateway domain.Gateway
	err := db.WithContext(ctx).
		Model(&domain.Gateway{}).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(1).
		Scan(&gateway).Error
	if err != nil {
		return nil, err
	}
	if gateway.ID == 0 {
		return nil, nil
	}
	return &gateway, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Gateway, error) {
	var gateways []*domain.Gateway
	err := db.WithContext(ctx).
		Model(&domain.Gateway{}).
		Order("created_at DESC").
		Find(&gateways).Error
	if err != nil {
		return nil, err
	}
	return gateways, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM payment_gateways WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}

func (r *repo) CountIntents(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM payment_intents WHERE gateway_id = ?`,
		id,
	).Scan(&count).Error
	return count, err
}
