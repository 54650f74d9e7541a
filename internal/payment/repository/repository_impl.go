package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Save(payment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) FindByGatewayPaymentID(ctx context.Context, db *gorm.DB, gatewayPaymentID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListByStatuses(ctx context.Context, db *gorm.DB, statuses []string, limit int) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// InsertEventIfNew inserts a webhook event, relying on the dedup index to
// swallow replays. It reports whether the row was actually inserted.
func (r *repo) InsertEventIfNew(ctx context.Context, db *gorm.DB, event *domain.PaymentEvent) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway_name"}, {Name: "event_type"}, {Name: "gateway_payment_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddRefundedAmount bumps the refunded counter. The guard keeps the counter
// from passing the payment amount when refunds race.
func (r *repo) AddRefundedAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amountCents int64) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND amount_refunded_cents + ? <= amount_cents", id, amountCents).
		Update("amount_refunded_cents", gorm.Expr("amount_refunded_cents + ?", amountCents))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertRefund(ctx context.Context, db *gorm.DB, refund *domain.Refund) error {
	return db.WithContext(ctx).Create(refund).Error
}

func (r *repo) FindRefundByGatewayRefundID(ctx context.Context, db *gorm.DB, gatewayRefundID string) (*domain.Refund, error) {
	var refund domain.Refund
	err := db.WithContext(ctx).
		Model(&domain.Refund{}).
		Where("gateway_refund_id = ?", gatewayRefundID).
		Scan(&refund).Error
	if err != nil {
		return nil, err
	}
	if refund.ID == 0 {
		return nil, nil
	}
	return &refund, nil
}

func (r *repo) ListRefundsByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]*domain.Refund, error) {
	var refunds []*domain.Refund
	err := db.WithContext(ctx).
		Model(&domain.Refund{}).
		Where("payment_id = ?", paymentID).
		Order("created_at DESC").
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}
