package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/review/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, review *domain.Review) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reviews (id, product_id, user_id, user_email, rating, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.ProductID,
		review.UserID,
		review.UserEmail,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Review, error) {
	var review domain.Review
	err := db.WithContext(ctx).Raw(
		`SELECT id, product_id, user_id, user_email, rating, comment, created_at, updated_at
		 FROM reviews WHERE id = ?`,
		id,
	).Scan(&review).Error
	if err != nil {
		return nil, err
	}
	if review.ID == 0 {
		return nil, nil
	}
	return &review, nil
}

func (r *repo) ListByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]*domain.Review, error) {
	var reviews []*domain.Review
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *repo) AverageRating(ctx context.Context, db *gorm.DB, productID snowflake.ID) (float64, int64, error) {
	var row struct {
		Average float64
		Count   int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(AVG(rating), 0) AS average, COUNT(1) AS count
		 FROM reviews WHERE product_id = ?`,
		productID,
	).Scan(&row).Error
	return row.Average, row.Count, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM reviews WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}
