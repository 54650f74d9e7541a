package domain

import (
	"context"
	"errors"
)

type CreateCategoryRequest struct {
	Name        string
	Description string
}

type UpdateCategoryRequest struct {
	ID          string
	Name        *string
	Description *string
}

type GetCategoryRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCategoryRequest) (Category, error)
	Update(context.Context, UpdateCategoryRequest) (Category, error)
	GetByID(context.Context, GetCategoryRequest) (Category, error)
	GetBySlug(ctx context.Context, slug string) (Category, error)
	List(context.Context) ([]Category, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrSlugTaken   = errors.New("slug_taken")
	ErrNotFound    = errors.New("not_found")
	ErrInUse       = errors.New("category_in_use")
)
