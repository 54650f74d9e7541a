package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Product struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	CategoryID  *snowflake.ID     `json:"category_id" gorm:"index"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug" gorm:"uniqueIndex"`
	Description string            `json:"description"`
	PriceCents  int64             `json:"price_cents"`
	Currency    string            `json:"currency" gorm:"default:INR"`
	Stock       int               `json:"stock"`
	Active      bool              `json:"active" gorm:"default:true"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (Product) TableName() string { return "products" }
