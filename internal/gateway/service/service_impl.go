package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/gateway/domain"
	"github.com/kiranalabs/kirana/pkg/db"
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
		log:   p.Log.Named("gateway.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateGatewayRequest) (domain.Gateway, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !domain.Supported(name) {
		return domain.Gateway{}, domain.ErrUnsupportedGateway
	}
	if err := validateConfig(name, req.Config); err != nil {
		return domain.Gateway{}, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = name
	}

	now := s.clock.Now()
	gateway := domain.Gateway{
		ID:          s.genID.Generate(),
		Name:        name,
		DisplayName: displayName,
		IsActive:    req.IsActive,
		Config:      req.Config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &gateway); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Gateway{}, domain.ErrNameTaken
		}
		return domain.Gateway{}, err
	}

	return gateway, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateGatewayRequest) (domain.Gateway, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Gateway{}, err
	}

	gateway, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Gateway{}, err
	}
	if gateway == nil {
		return domain.Gateway{}, domain.ErrNotFound
	}

	if req.DisplayName != nil {
		gateway.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Config != nil {
		if err := validateConfig(gateway.Name, req.Config); err != nil {
			return domain.Gateway{}, err
		}
		gateway.Config = req.Config
	}
	if req.IsActive != nil {
		gateway.IsActive = *req.IsActive
	}
	gateway.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, gateway); err != nil {
		return domain.Gateway{}, err
	}

	return *gateway, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Gateway, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Gateway{}, err
	}

	gateway, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Gateway{}, err
	}
	if gateway == nil {
		return domain.Gateway{}, domain.ErrNotFound
	}
	return *gateway, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (domain.Gateway, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return domain.Gateway{}, domain.ErrInvalidID
	}

	gateway, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return domain.Gateway{}, err
	}
	if gateway == nil {
		return domain.Gateway{}, domain.ErrNotFound
	}
	return *gateway, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Gateway, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	gateways := make([]domain.Gateway, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		gateways = append(gateways, *item)
	}
	return gateways, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	gateway, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if gateway == nil {
		return domain.ErrNotFound
	}

	count, err := s.repo.CountIntents(ctx, s.db, gateway.ID)
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

func (s *Service) FindActive(ctx context.Context) (domain.Gateway, error) {
	gateway, err := s.repo.FindActive(ctx, s.db)
	if err != nil {
		return domain.Gateway{}, err
	}
	if gateway == nil {
		return domain.Gateway{}, domain.ErrNoActiveGateway
	}
	return *gateway, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validateConfig(name string, config map[string]interface{}) error {
	for _, key := range domain.RequiredKeys(name) {
		value, _ := config[key].(string)
		if strings.TrimSpace(value) == "" {
			return domain.ErrMissingConfigKey
		}
	}
	return nil
}
