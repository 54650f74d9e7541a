package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/category/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO categories (id, name, slug, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.CreatedAt,
		category.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`UPDATE categories SET name = ?, slug = ?, description = ?, updated_at = ? WHERE id = ?`,
		category.Name,
		category.Slug,
		category.Description,
		category.UpdatedAt,
		category.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Category, error) {
	var category domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, description, created_at, updated_at
		 FROM categories WHERE id = ?`,
		id,
	).Scan(&category).Error
	if err != nil {
		return nil, err
	}
	if category.ID == 0 {
		return nil, nil
	}
	return &category, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	var category domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, description, created_at, updated_at
		 FROM categories WHERE slug = ?`,
		slug,
	).Scan(&category).Error
	if err != nil {
		return nil, err
	}
	if category.ID == 0 {
		return nil, nil
	}
	return &category, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Category, error) {
	var categories []*domain.Category
	err := db.WithContext(ctx).
		Model(&domain.Category{}).
		Order("name asc").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM categories WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}

func (r *repo) CountProducts(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM products WHERE category_id = ?`,
		id,
	).Scan(&count).Error
	return count, err
}
