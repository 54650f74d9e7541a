package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/kiranalabs/kirana/internal/category/domain"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("category.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	category := domain.Category{
		ID:          s.genID.Generate(),
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &category); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Category{}, domain.ErrSlugTaken
		}
		return domain.Category{}, err
	}

	return category, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCategoryRequest) (domain.Category, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Category{}, err
	}

	category, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Category{}, err
	}
	if category == nil {
		return domain.Category{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Category{}, domain.ErrInvalidName
		}
		category.Name = name
		category.Slug = slug.Make(name)
	}
	if req.Description != nil {
		category.Description = strings.TrimSpace(*req.Description)
	}
	category.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, category); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Category{}, domain.ErrSlugTaken
		}
		return domain.Category{}, err
	}

	return *category, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCategoryRequest) (domain.Category, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Category{}, err
	}

	category, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Category{}, err
	}
	if category == nil {
		return domain.Category{}, domain.ErrNotFound
	}
	return *category, nil
}

func (s *Service) GetBySlug(ctx context.Context, value string) (domain.Category, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Category{}, domain.ErrInvalidID
	}

	category, err := s.repo.FindBySlug(ctx, s.db, value)
	if err != nil {
		return domain.Category{}, err
	}
	if category == nil {
		return domain.Category{}, domain.ErrNotFound
	}
	return *category, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		categories = append(categories, *item)
	}
	return categories, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	count, err := s.repo.CountProducts(ctx, s.db, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrInUse
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
