package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, gateway *Gateway) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Gateway, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Gateway, error)
	FindActive(ctx context.Context, db *gorm.DB) (*Gateway, error)
	List(ctx context.Context, db *gorm.DB) ([]*Gateway, error)
	Update(ctx context.Context, db *gorm.DB, gateway *Gateway) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	CountIntents(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
