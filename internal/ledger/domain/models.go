// Package domain contains the append-only payment event ledger.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentEvent is one raw payment-provider webhook delivery. Rows are never
// mutated or deleted, and duplicates are not filtered: reconciliation is
// idempotent, so replaying an event is harmless.
type PaymentEvent struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider          string         `json:"provider" gorm:"type:text"`
	Event             string         `json:"event" gorm:"type:text;not null"`
	Action            string         `json:"action" gorm:"type:text"`
	ProviderPaymentID string         `json:"provider_payment_id" gorm:"type:text"`
	SubscriptionRef   string         `json:"subscription_ref" gorm:"type:text;index"`
	PayerEmail        string         `json:"payer_email" gorm:"type:text;index"`
	RawStatus         string         `json:"raw_status" gorm:"type:text"`
	Amount            float64        `json:"amount"`
	Currency          string         `json:"currency" gorm:"type:text"`
	OccurredAt        time.Time      `json:"occurred_at" gorm:"not null"`
	RawPayload        datatypes.JSON `json:"raw_payload" gorm:"type:jsonb"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (PaymentEvent) TableName() string { return "payment_events" }

// Repository is the ledger contract: append plus ordered scans. Every scan
// returns rows in append order, the only ordering guarantee the ledger gives.
type Repository interface {
	Append(ctx context.Context, db *gorm.DB, event *PaymentEvent) error
	ScanAll(ctx context.Context, db *gorm.DB) ([]PaymentEvent, error)
	ScanBySubscriptionRef(ctx context.Context, db *gorm.DB, subscriptionRef string) ([]PaymentEvent, error)
	ScanByPayerEmail(ctx context.Context, db *gorm.DB, payerEmail string) ([]PaymentEvent, error)
}
