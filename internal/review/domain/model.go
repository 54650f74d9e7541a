package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Review struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	ProductID snowflake.ID `json:"product_id" gorm:"index"`
	UserID    snowflake.ID `json:"user_id"`
	UserEmail string       `json:"user_email"`
	Rating    int          `json:"rating"`
	Comment   string       `json:"comment"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }
