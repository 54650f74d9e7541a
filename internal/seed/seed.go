package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/actor"
	userdomain "github.com/kiranalabs/kirana/internal/user/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultAdminName     = "Kirana Admin"
	defaultAdminPassword = "admin"

	adminSessionTTL = 365 * 24 * time.Hour
)

// EnsureAdmin seeds the bootstrap admin user, and a long-lived session
// for it when an operator token is configured.
func EnsureAdmin(db *gorm.DB, email, token string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin, err := ensureAdminUserTx(ctx, tx, node, email)
		if err != nil {
			return err
		}

		token = strings.TrimSpace(token)
		if token == "" {
			return nil
		}
		return ensureAdminSessionTx(ctx, tx, node, admin.ID, token)
	})
}

func ensureAdminUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, email string) (*userdomain.User, error) {
	var user userdomain.User
	err := tx.WithContext(ctx).
		Where("lower(email) = lower(?)", email).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user = userdomain.User{
		ID:           node.Generate(),
		Email:        email,
		Name:         defaultAdminName,
		Role:         actor.RoleAdmin,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ensureAdminSessionTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, userID snowflake.ID, token string) error {
	var session userdomain.Session
	err := tx.WithContext(ctx).
		Where("token = ?", token).
		First(&session).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	session = userdomain.Session{
		ID:        node.Generate(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(adminSessionTTL),
		CreatedAt: now,
	}
	return tx.WithContext(ctx).Create(&session).Error
}
