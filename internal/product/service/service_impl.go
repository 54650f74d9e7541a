package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/product/domain"
	"github.com/kiranalabs/kirana/pkg/db"
	"github.com/kiranalabs/kirana/pkg/db/option"
	"github.com/kiranalabs/kirana/pkg/db/pagination"
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
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.PriceCents < 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}
	if req.Stock < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}

	var categoryID *snowflake.ID
	if strings.TrimSpace(req.CategoryID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.CategoryID))
		if err != nil || id == 0 {
			return domain.Product{}, domain.ErrInvalidCategory
		}
		categoryID = &id
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "INR"
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:          s.genID.Generate(),
		CategoryID:  categoryID,
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(req.Description),
		PriceCents:  req.PriceCents,
		Currency:    currency,
		Stock:       req.Stock,
		Active:      true,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Product{}, domain.ErrSlugTaken
		}
		return domain.Product{}, err
	}

	return product, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateProductRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product.Name = name
		product.Slug = slug.Make(name)
	}
	if req.CategoryID != nil {
		if strings.TrimSpace(*req.CategoryID) == "" {
			product.CategoryID = nil
		} else {
			categoryID, err := snowflake.ParseString(strings.TrimSpace(*req.CategoryID))
			if err != nil || categoryID == 0 {
				return domain.Product{}, domain.ErrInvalidCategory
			}
			product.CategoryID = &categoryID
		}
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.PriceCents = *req.PriceCents
	}
	if req.Currency != nil {
		product.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, domain.ErrInvalidStock
		}
		product.Stock = *req.Stock
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if req.Metadata != nil {
		product.Metadata = req.Metadata
	}
	product.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Product{}, domain.ErrSlugTaken
		}
		return domain.Product{}, err
	}

	return *product, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Product, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) GetBySlug(ctx context.Context, value string) (domain.Product, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Product{}, domain.ErrInvalidID
	}

	product, err := s.repo.FindBySlug(ctx, s.db, value)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) ([]domain.Product, *pagination.PageInfo, error) {
	filter := domain.ListProductFilter{
		ActiveOnly:    req.ActiveOnly,
		MinPriceCents: req.MinPriceCents,
		MaxPriceCents: req.MaxPriceCents,
		Search:        strings.TrimSpace(req.Search),
	}
	if strings.TrimSpace(req.CategoryID) != "" {
		categoryID, err := snowflake.ParseString(strings.TrimSpace(req.CategoryID))
		if err != nil || categoryID == 0 {
			return nil, nil, domain.ErrInvalidCategory
		}
		filter.CategoryID = &categoryID
	}

	pageSize := req.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	items, err := s.repo.List(ctx, s.db, filter, option.ApplyPagination(req.Pagination))
	if err != nil {
		return nil, nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(p *domain.Product) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        p.ID.String(),
			CreatedAt: p.CreatedAt.Format("2006-01-02 15:04:05.999999999-07:00"),
		})
		return token
	})

	if len(items) > pageSize {
		items = items[:pageSize]
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}
	return products, pageInfo, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, id)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
