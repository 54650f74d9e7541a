package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*User, *Session, error)
	InsertSession(ctx context.Context, db *gorm.DB, session *Session) error
	DeleteExpiredSessions(ctx context.Context, db *gorm.DB) (int64, error)

	InsertAddress(ctx context.Context, db *gorm.DB, address *Address) error
	ListAddresses(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*Address, error)
	FindAddress(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Address, error)
	ClearDefaultAddress(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
	SetDefaultAddress(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) error
	DeleteAddress(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)
}
