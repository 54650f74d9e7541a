package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/pkg/db/option"
)

type ListProductFilter struct {
	CategoryID    *snowflake.ID
	ActiveOnly    bool
	MinPriceCents *int64
	MaxPriceCents *int64
	Search        string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListProductFilter, opts ...option.Option) ([]*Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	AdjustStock(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
