package repository

import (
	"context"

	"github.com/smallsites/sitebill/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, event *domain.PaymentEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (id, provider, event, action, provider_payment_id, subscription_ref, payer_email, raw_status, amount, currency, occurred_at, raw_payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Provider,
		event.Event,
		event.Action,
		event.ProviderPaymentID,
		event.SubscriptionRef,
		event.PayerEmail,
		event.RawStatus,
		event.Amount,
		event.Currency,
		event.OccurredAt,
		event.RawPayload,
		event.CreatedAt,
	).Error
}

// Snowflake ids are generated monotonically by the single writer, so id
// order equals append order.
func (r *repo) ScanAll(ctx context.Context, db *gorm.DB) ([]domain.PaymentEvent, error) {
	var events []domain.PaymentEvent
	err := db.WithContext(ctx).
		Model(&domain.PaymentEvent{}).
		Order("id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) ScanBySubscriptionRef(ctx context.Context, db *gorm.DB, subscriptionRef string) ([]domain.PaymentEvent, error) {
	var events []domain.PaymentEvent
	err := db.WithContext(ctx).
		Model(&domain.PaymentEvent{}).
		Where("subscription_ref = ?", subscriptionRef).
		Order("id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) ScanByPayerEmail(ctx context.Context, db *gorm.DB, payerEmail string) ([]domain.PaymentEvent, error) {
	var events []domain.PaymentEvent
	err := db.WithContext(ctx).
		Model(&domain.PaymentEvent{}).
		Where("payer_email = ?", payerEmail).
		Order("id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
