package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/product/domain"
	"github.com/kiranalabs/kirana/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Save(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("slug = ?", slug).
		Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter, opts ...option.Option) ([]*domain.Product, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Order("created_at DESC, id DESC")

	if filter.CategoryID != nil {
		stmt = stmt.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		stmt = stmt.Where("active = ?", true)
	}
	if filter.MinPriceCents != nil {
		stmt = stmt.Where("price_cents >= ?", *filter.MinPriceCents)
	}
	if filter.MaxPriceCents != nil {
		stmt = stmt.Where("price_cents <= ?", *filter.MaxPriceCents)
	}
	if filter.Search != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Search+"%")
	}

	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var products []*domain.Product
	if err := stmt.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// AdjustStock applies delta atomically and refuses to go negative. The
// returned count is zero when the product is missing or has too little stock.
func (r *repo) AdjustStock(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND stock + ? >= 0`,
		delta, id, delta,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM products WHERE id = ?`, id).Error
}
