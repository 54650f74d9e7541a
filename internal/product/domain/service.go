package domain

import (
	"context"
	"errors"

	"github.com/kiranalabs/kirana/pkg/db/pagination"
)

type CreateProductRequest struct {
	Name        string
	CategoryID  string
	Description string
	PriceCents  int64
	Currency    string
	Stock       int
	Metadata    map[string]interface{}
}

type UpdateProductRequest struct {
	ID          string
	Name        *string
	CategoryID  *string
	Description *string
	PriceCents  *int64
	Currency    *string
	Stock       *int
	Active      *bool
	Metadata    map[string]interface{}
}

type ListProductRequest struct {
	CategoryID    string
	ActiveOnly    bool
	MinPriceCents *int64
	MaxPriceCents *int64
	Search        string
	Pagination    pagination.Pagination
}

type Service interface {
	Create(context.Context, CreateProductRequest) (Product, error)
	Update(context.Context, UpdateProductRequest) (Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	List(context.Context, ListProductRequest) ([]Product, *pagination.PageInfo, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStock    = errors.New("invalid_stock")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrSlugTaken       = errors.New("slug_taken")
	ErrNotFound        = errors.New("not_found")
	ErrOutOfStock      = errors.New("out_of_stock")
)
