package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, email, name, role, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, name, role, password_hash, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, name, role, password_hash, created_at, updated_at
		 FROM users WHERE lower(email) = lower(?)`,
		email,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.User, *domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, token, expires_at, created_at
		 FROM sessions WHERE token = ?`,
		token,
	).Scan(&session).Error
	if err != nil {
		return nil, nil, err
	}
	if session.ID == 0 {
		return nil, nil, nil
	}

	user, err := r.FindByID(ctx, db, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, &session, nil
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt,
		session.CreatedAt,
	).Error
}

func (r *repo) DeleteExpiredSessions(ctx context.Context, db *gorm.DB) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP`)
	return result.RowsAffected, result.Error
}

func (r *repo) InsertAddress(ctx context.Context, db *gorm.DB, address *domain.Address) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO addresses (id, user_id, line1, line2, city, state, postal_code, country, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		address.ID,
		address.UserID,
		address.Line1,
		address.Line2,
		address.City,
		address.State,
		address.PostalCode,
		address.Country,
		address.IsDefault,
		address.CreatedAt,
		address.UpdatedAt,
	).Error
}

func (r *repo) ListAddresses(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*domain.Address, error) {
	var addresses []*domain.Address
	err := db.WithContext(ctx).
		Model(&domain.Address{}).
		Where("user_id = ?", userID).
		Order("is_default desc, created_at desc").
		Find(&addresses).Error
	if err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *repo) FindAddress(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Address, error) {
	var address domain.Address
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, line1, line2, city, state, postal_code, country, is_default, created_at, updated_at
		 FROM addresses WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&address).Error
	if err != nil {
		return nil, err
	}
	if address.ID == 0 {
		return nil, nil
	}
	return &address, nil
}

func (r *repo) ClearDefaultAddress(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE addresses SET is_default = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND is_default = ?`,
		false, userID, true,
	).Error
}

func (r *repo) SetDefaultAddress(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE addresses SET is_default = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND id = ?`,
		true, userID, id,
	).Error
}

func (r *repo) DeleteAddress(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM addresses WHERE user_id = ? AND id = ?`,
		userID, id,
	)
	return result.RowsAffected, result.Error
}
