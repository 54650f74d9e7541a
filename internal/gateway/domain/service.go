package domain

import (
	"context"
	"errors"
)

type CreateGatewayRequest struct {
	Name        string
	DisplayName string
	IsActive    bool
	Config      map[string]interface{}
}

type UpdateGatewayRequest struct {
	ID          string
	DisplayName *string
	IsActive    *bool
	Config      map[string]interface{}
}

type Service interface {
	Create(context.Context, CreateGatewayRequest) (Gateway, error)
	Update(context.Context, UpdateGatewayRequest) (Gateway, error)
	GetByID(ctx context.Context, id string) (Gateway, error)
	GetByName(ctx context.Context, name string) (Gateway, error)
	List(context.Context) ([]Gateway, error)
	Delete(ctx context.Context, id string) error
	FindActive(context.Context) (Gateway, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrUnsupportedGateway = errors.New("unsupported_gateway")
	ErrMissingConfigKey   = errors.New("missing_config_key")
	ErrNameTaken          = errors.New("gateway_name_taken")
	ErrNotFound           = errors.New("not_found")
	ErrInUse              = errors.New("gateway_in_use")
	ErrNoActiveGateway    = errors.New("no_active_gateway")
)
