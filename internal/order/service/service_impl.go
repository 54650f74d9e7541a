package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/authorization"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/config"
	"github.com/kiranalabs/kirana/internal/order/domain"
	productdomain "github.com/kiranalabs/kirana/internal/product/domain"
	"github.com/kiranalabs/kirana/internal/providers/email"
	"github.com/kiranalabs/kirana/internal/providers/pdf"
	"github.com/kiranalabs/kirana/pkg/db/option"
	"github.com/kiranalabs/kirana/pkg/db/pagination"
)

type Params struct {
	fx.In

	Cfg      config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Products productdomain.Repository
	PDF      pdf.Provider
	Email    email.Provider
}

type Service struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	products productdomain.Repository
	pdf      pdf.Provider
	email    email.Provider
}

func New(p Params) domain.Service {
	return &Service{
		cfg:      p.Cfg,
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		products: p.Products,
		pdf:      p.PDF,
		email:    p.Email,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	current, ok := actor.FromContext(ctx)
	if !ok || current.UserID == 0 {
		return domain.Order{}, domain.ErrUnauthorized
	}

	if len(req.Items) == 0 {
		return domain.Order{}, domain.ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return domain.Order{}, domain.ErrInvalidQuantity
		}
	}
	if strings.TrimSpace(req.ShippingAddress.Line1) == "" ||
		strings.TrimSpace(req.ShippingAddress.City) == "" ||
		strings.TrimSpace(req.ShippingAddress.PostalCode) == "" {
		return domain.Order{}, domain.ErrInvalidAddress
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:              s.genID.Generate(),
		UserID:          snowflake.ID(current.UserID),
		UserEmail:       current.Email,
		Status:          domain.StatusPending,
		Currency:        "INR",
		ShippingAddress: addressToMap(req.ShippingAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var items []domain.OrderItem
		var total int64

		for _, line := range req.Items {
			productID, err := snowflake.ParseString(strings.TrimSpace(line.ProductID))
			if err != nil || productID == 0 {
				return domain.ErrInvalidID
			}

			product, err := s.products.FindByID(ctx, tx, productID)
			if err != nil {
				return err
			}
			if product == nil || !product.Active {
				return domain.ErrProductUnavailable
			}

			affected, err := s.products.AdjustStock(ctx, tx, product.ID, -line.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return domain.ErrOutOfStock
			}

			lineTotal := product.PriceCents * int64(line.Quantity)
			total += lineTotal
			items = append(items, domain.OrderItem{
				ID:             s.genID.Generate(),
				OrderID:        order.ID,
				ProductID:      product.ID,
				ProductName:    product.Name,
				UnitPriceCents: product.PriceCents,
				Quantity:       line.Quantity,
				TotalCents:     lineTotal,
				CreatedAt:      now,
			})
			if product.Currency != "" {
				order.Currency = product.Currency
			}
		}

		order.TotalCents = total
		order.Items = items

		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.sendConfirmation(ctx, order)

	return order, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Order, error) {
	order, err := s.load(ctx, rawID)
	if err != nil {
		return domain.Order{}, err
	}

	items, err := s.repo.ListItems(ctx, s.db, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return *order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) ([]domain.Order, *pagination.PageInfo, error) {
	current, ok := actor.FromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrUnauthorized
	}

	userEmail := current.Email
	if current.IsAdmin() || current.IsSystem() {
		userEmail = ""
	}

	pageSize := req.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	items, err := s.repo.List(ctx, s.db, userEmail, option.ApplyPagination(req.Pagination))
	if err != nil {
		return nil, nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(o *domain.Order) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        o.ID.String(),
			CreatedAt: o.CreatedAt.Format("2006-01-02 15:04:05.999999999-07:00"),
		})
		return token
	})

	if len(items) > pageSize {
		items = items[:pageSize]
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}
	return orders, pageInfo, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateOrderStatusRequest) (domain.Order, error) {
	current, ok := actor.FromContext(ctx)
	if !ok || (!current.IsAdmin() && !current.IsSystem()) {
		return domain.Order{}, domain.ErrUnauthorized
	}

	next := strings.ToUpper(strings.TrimSpace(req.Status))
	if !domain.ValidStatus(next) {
		return domain.Order{}, domain.ErrInvalidStatus
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	if !domain.CanTransition(order.Status, next) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	affected, err := s.repo.UpdateStatusIfCurrent(ctx, s.db, order.ID, order.Status, next, now)
	if err != nil {
		return domain.Order{}, err
	}
	if affected == 0 {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	order.Status = next
	order.UpdatedAt = now
	return *order, nil
}

func (s *Service) Cancel(ctx context.Context, rawID string) (domain.Order, error) {
	order, err := s.load(ctx, rawID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != domain.StatusPending {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatusIfCurrent(ctx, tx, order.ID, domain.StatusPending, domain.StatusCancelled, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrInvalidTransition
		}

		items, err := s.repo.ListItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, err := s.products.AdjustStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.StatusCancelled
	order.UpdatedAt = now
	return *order, nil
}

func (s *Service) Receipt(ctx context.Context, rawID string) (io.Reader, error) {
	order, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.StatusPending || order.Status == domain.StatusCancelled {
		return nil, domain.ErrNotPaid
	}

	items, err := s.repo.ListItems(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}

	receiptItems := make([]pdf.ReceiptItem, 0, len(items))
	for _, item := range items {
		receiptItems = append(receiptItems, pdf.ReceiptItem{
			Name:      item.ProductName,
			Qty:       item.Quantity,
			UnitPrice: formatAmount(item.UnitPriceCents, order.Currency),
			Amount:    formatAmount(item.TotalCents, order.Currency),
		})
	}

	return s.pdf.GenerateReceipt(ctx, pdf.ReceiptData{
		StoreName:   s.cfg.AppName,
		StoreEmail:  s.cfg.AdminEmail,
		OrderNumber: order.ID.String(),
		OrderDate:   order.CreatedAt.Format("Jan 2, 2006"),
		DatePaid:    order.UpdatedAt.Format("Jan 2, 2006"),
		BillToName:  order.UserEmail,
		BillToEmail: order.UserEmail,
		ShipTo:      formatAddress(order.ShippingAddress),
		Items:       receiptItems,
		Total:       formatAmount(order.TotalCents, order.Currency),
	})
}

// load fetches an order and enforces ownership. Admins and background jobs can
// read any order.
func (s *Service) load(ctx context.Context, rawID string) (*domain.Order, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	current, ok := actor.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if !authorization.CanAccessResource(current, order.UserEmail) {
		return nil, domain.ErrUnauthorized
	}
	return order, nil
}

func (s *Service) sendConfirmation(ctx context.Context, order domain.Order) {
	if order.UserEmail == "" {
		return
	}

	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"name":   item.ProductName,
			"qty":    item.Quantity,
			"amount": formatAmount(item.TotalCents, order.Currency),
		})
	}

	err := s.email.SendTemplate(ctx, []string{order.UserEmail}, "order_confirmation", map[string]interface{}{
		"subject":       fmt.Sprintf("Order #%s confirmed", order.ID.String()),
		"customer_name": order.UserEmail,
		"order_number":  order.ID.String(),
		"items":         items,
		"total":         formatAmount(order.TotalCents, order.Currency),
	})
	if err != nil {
		s.log.Warn("order confirmation email failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func addressToMap(addr domain.ShippingAddress) map[string]interface{} {
	return map[string]interface{}{
		"name":        addr.Name,
		"line1":       addr.Line1,
		"line2":       addr.Line2,
		"city":        addr.City,
		"state":       addr.State,
		"postal_code": addr.PostalCode,
		"country":     addr.Country,
		"phone":       addr.Phone,
	}
}

func formatAddress(addr map[string]interface{}) string {
	parts := make([]string, 0, 4)
	for _, key := range []string{"name", "line1", "line2", "city", "state", "postal_code", "country"} {
		if value, ok := addr[key].(string); ok && value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, ", ")
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}
