package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/clock"
	productdomain "github.com/kiranalabs/kirana/internal/product/domain"
	"github.com/kiranalabs/kirana/internal/review/domain"
	"github.com/kiranalabs/kirana/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Products productdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	products productdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("review.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		products: p.Products,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateReviewRequest) (domain.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return domain.Review{}, domain.ErrInvalidRating
	}

	current, ok := actor.FromContext(ctx)
	if !ok || current.UserID == 0 {
		return domain.Review{}, domain.ErrUnauthorized
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, productdomain.ErrNotFound) || errors.Is(err, productdomain.ErrInvalidID) {
			return domain.Review{}, domain.ErrProductNotFound
		}
		return domain.Review{}, err
	}

	now := s.clock.Now()
	review := domain.Review{
		ID:        s.genID.Generate(),
		ProductID: product.ID,
		UserID:    snowflake.ID(current.UserID),
		UserEmail: current.Email,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &review); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Review{}, domain.ErrAlreadyReviewed
		}
		return domain.Review{}, err
	}

	return review, nil
}

func (s *Service) ListByProduct(ctx context.Context, rawProductID string) ([]domain.Review, domain.ReviewSummary, error) {
	productID, err := s.parseID(rawProductID)
	if err != nil {
		return nil, domain.ReviewSummary{}, err
	}

	items, err := s.repo.ListByProduct(ctx, s.db, productID)
	if err != nil {
		return nil, domain.ReviewSummary{}, err
	}

	average, count, err := s.repo.AverageRating(ctx, s.db, productID)
	if err != nil {
		return nil, domain.ReviewSummary{}, err
	}

	reviews := make([]domain.Review, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		reviews = append(reviews, *item)
	}
	return reviews, domain.ReviewSummary{AverageRating: average, ReviewCount: count}, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	review, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if review == nil {
		return domain.ErrNotFound
	}

	current, ok := actor.FromContext(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if !current.IsAdmin() && snowflake.ID(current.UserID) != review.UserID {
		return domain.ErrUnauthorized
	}

	affected, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
