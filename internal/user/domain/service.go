package domain

import (
	"context"
	"errors"
)

type CreateUserRequest struct {
	Email string
	Name  string
	Role  string
}

type GetUserRequest struct {
	ID string
}

type AddAddressRequest struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

type Service interface {
	Create(context.Context, CreateUserRequest) (User, error)
	GetByID(context.Context, GetUserRequest) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	FindByToken(ctx context.Context, token string) (User, error)

	AddAddress(ctx context.Context, req AddAddressRequest) (Address, error)
	ListAddresses(ctx context.Context) ([]Address, error)
	SetDefaultAddress(ctx context.Context, id string) error
	DeleteAddress(ctx context.Context, id string) error
}

var (
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidAddress = errors.New("invalid_address")
	ErrEmailTaken     = errors.New("email_taken")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidToken   = errors.New("invalid_token")
	ErrSessionExpired = errors.New("session_expired")
	ErrUnauthorized   = errors.New("unauthorized")
)
