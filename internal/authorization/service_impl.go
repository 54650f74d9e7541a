package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/kiranalabs/kirana/internal/actor"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCategory = "category"
	ObjectProduct  = "product"
	ObjectReview   = "review"
	ObjectOrder    = "order"
	ObjectGateway  = "payment_gateway"
	ObjectIntent   = "payment_intent"
	ObjectPayment  = "payment"
	ObjectUser     = "user"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionGatewayManage = "payment_gateway.manage"
	ActionPaymentSync   = "payment.sync"
	ActionPaymentSweep  = "payment.sweep"
	ActionOrderManage   = "order.manage"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, act actor.Actor, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := resolveActor(act)
	if err != nil {
		return err
	}

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func resolveActor(act actor.Actor) (string, string, error) {
	if act.IsSystem() {
		return "system", "role:system", nil
	}
	if act.UserID == 0 {
		return "", "", ErrInvalidActor
	}
	role := strings.ToLower(strings.TrimSpace(act.Role))
	if role == "" {
		return "", "", ErrInvalidActor
	}
	return fmt.Sprintf("user:%d", act.UserID), fmt.Sprintf("role:%s", role), nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

// CanAccessResource reports whether act may read a resource owned by ownerEmail.
// Admins may read anything, other actors only their own resources.
func CanAccessResource(act actor.Actor, ownerEmail string) bool {
	if act.IsAdmin() || act.IsSystem() {
		return true
	}
	owner := strings.TrimSpace(ownerEmail)
	if owner == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(act.Email), owner)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Customer permissions
		{"role:customer", ObjectCategory, ActionView},
		{"role:customer", ObjectProduct, ActionView},
		{"role:customer", ObjectReview, ActionView},
		{"role:customer", ObjectReview, ActionCreate},
		{"role:customer", ObjectOrder, ActionView},
		{"role:customer", ObjectOrder, ActionCreate},
		{"role:customer", ObjectIntent, ActionView},
		{"role:customer", ObjectIntent, ActionCreate},
		{"role:customer", ObjectPayment, ActionView},
		{"role:customer", ObjectPayment, ActionPaymentSync},

		// Admin permissions
		{"role:admin", ObjectCategory, ActionView},
		{"role:admin", ObjectCategory, ActionCreate},
		{"role:admin", ObjectCategory, ActionUpdate},
		{"role:admin", ObjectCategory, ActionDelete},
		{"role:admin", ObjectProduct, ActionView},
		{"role:admin", ObjectProduct, ActionCreate},
		{"role:admin", ObjectProduct, ActionUpdate},
		{"role:admin", ObjectProduct, ActionDelete},
		{"role:admin", ObjectReview, ActionView},
		{"role:admin", ObjectReview, ActionDelete},
		{"role:admin", ObjectOrder, ActionView},
		{"role:admin", ObjectOrder, ActionOrderManage},
		{"role:admin", ObjectGateway, ActionGatewayManage},
		{"role:admin", ObjectIntent, ActionView},
		{"role:admin", ObjectPayment, ActionView},
		{"role:admin", ObjectPayment, ActionPaymentSync},
		{"role:admin", ObjectPayment, ActionPaymentSweep},
		{"role:admin", ObjectUser, ActionView},
		{"role:admin", ObjectUser, ActionCreate},

		// System permissions (background sweeps)
		{"role:system", ObjectPayment, ActionPaymentSync},
		{"role:system", ObjectPayment, ActionPaymentSweep},
		{"role:system", ObjectIntent, ActionView},
		{"role:system", ObjectOrder, ActionOrderManage},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
