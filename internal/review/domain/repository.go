package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, review *Review) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Review, error)
	ListByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]*Review, error)
	AverageRating(ctx context.Context, db *gorm.DB, productID snowflake.ID) (float64, int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
