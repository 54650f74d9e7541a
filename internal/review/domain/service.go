package domain

import (
	"context"
	"errors"
)

type CreateReviewRequest struct {
	ProductID string
	Rating    int
	Comment   string
}

type ReviewSummary struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

type Service interface {
	Create(context.Context, CreateReviewRequest) (Review, error)
	ListByProduct(ctx context.Context, productID string) ([]Review, ReviewSummary, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidRating   = errors.New("invalid_rating")
	ErrProductNotFound = errors.New("product_not_found")
	ErrAlreadyReviewed = errors.New("already_reviewed")
	ErrNotFound        = errors.New("not_found")
	ErrUnauthorized    = errors.New("unauthorized")
)
