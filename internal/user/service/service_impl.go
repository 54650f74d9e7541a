package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/user/domain"
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
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = actor.RoleCustomer
	}
	if role != actor.RoleCustomer && role != actor.RoleAdmin {
		return domain.User{}, domain.ErrInvalidRole
	}

	now := s.clock.Now()
	user := domain.User{
		ID:        s.genID.Generate(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetUserRequest) (domain.User, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, domain.ErrInvalidEmail
	}

	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) FindByToken(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, domain.ErrInvalidToken
	}

	user, session, err := s.repo.FindByToken(ctx, s.db, token)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil || session == nil {
		return domain.User{}, domain.ErrInvalidToken
	}
	if session.ExpiresAt.Before(s.clock.Now()) {
		return domain.User{}, domain.ErrSessionExpired
	}
	return *user, nil
}

func (s *Service) AddAddress(ctx context.Context, req domain.AddAddressRequest) (domain.Address, error) {
	act, ok := actor.FromContext(ctx)
	if !ok || act.UserID == 0 {
		return domain.Address{}, domain.ErrUnauthorized
	}

	line1 := strings.TrimSpace(req.Line1)
	city := strings.TrimSpace(req.City)
	postalCode := strings.TrimSpace(req.PostalCode)
	if line1 == "" || city == "" || postalCode == "" {
		return domain.Address{}, domain.ErrInvalidAddress
	}

	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if country == "" {
		country = "IN"
	}

	now := s.clock.Now()
	address := domain.Address{
		ID:         s.genID.Generate(),
		UserID:     snowflake.ID(act.UserID),
		Line1:      line1,
		Line2:      strings.TrimSpace(req.Line2),
		City:       city,
		State:      strings.TrimSpace(req.State),
		PostalCode: postalCode,
		Country:    country,
		IsDefault:  req.IsDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := s.repo.ClearDefaultAddress(ctx, tx, address.UserID); err != nil {
				return err
			}
		}
		return s.repo.InsertAddress(ctx, tx, &address)
	})
	if err != nil {
		return domain.Address{}, err
	}

	return address, nil
}

func (s *Service) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	act, ok := actor.FromContext(ctx)
	if !ok || act.UserID == 0 {
		return nil, domain.ErrUnauthorized
	}

	items, err := s.repo.ListAddresses(ctx, s.db, snowflake.ID(act.UserID))
	if err != nil {
		return nil, err
	}

	addresses := make([]domain.Address, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		addresses = append(addresses, *item)
	}
	return addresses, nil
}

func (s *Service) SetDefaultAddress(ctx context.Context, id string) error {
	act, ok := actor.FromContext(ctx)
	if !ok || act.UserID == 0 {
		return domain.ErrUnauthorized
	}

	addressID, err := s.parseID(id)
	if err != nil {
		return err
	}
	userID := snowflake.ID(act.UserID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		address, err := s.repo.FindAddress(ctx, tx, userID, addressID)
		if err != nil {
			return err
		}
		if address == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.ClearDefaultAddress(ctx, tx, userID); err != nil {
			return err
		}
		return s.repo.SetDefaultAddress(ctx, tx, userID, addressID)
	})
}

func (s *Service) DeleteAddress(ctx context.Context, id string) error {
	act, ok := actor.FromContext(ctx)
	if !ok || act.UserID == 0 {
		return domain.ErrUnauthorized
	}

	addressID, err := s.parseID(id)
	if err != nil {
		return err
	}

	affected, err := s.repo.DeleteAddress(ctx, s.db, snowflake.ID(act.UserID), addressID)
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
