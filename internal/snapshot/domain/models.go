// Package domain contains the derived per-account billing snapshot cache.
package domain

import (
	"context"
	"time"

	"github.com/smallsites/sitebill/pkg/db/pagination"
	"gorm.io/gorm"
)

// AccountSnapshot is the derived billing state for one subscription. It is a
// performance cache rebuilt wholesale by reconciliation and lazily patched by
// the status resolver; it is never a primary source of truth.
type AccountSnapshot struct {
	SubscriptionRef string     `json:"subscription_ref" gorm:"primaryKey;type:text"`
	Email           string     `json:"email" gorm:"type:text;index"`
	SiteID          string     `json:"site_id" gorm:"type:text;index"`
	Plan            string     `json:"plan" gorm:"type:text"`
	Status          string     `json:"status" gorm:"type:text"`
	Amount          float64    `json:"amount"`
	Currency        string     `json:"currency" gorm:"type:text"`
	Provider        string     `json:"provider" gorm:"type:text"`
	LastPaymentDate *time.Time `json:"last_payment_date"`
	NextRenewalDate *time.Time `json:"next_renewal_date"`
	Overdue         bool       `json:"overdue" gorm:"not null;default:false"`
	DaysOverdue     int        `json:"days_overdue" gorm:"not null;default:0"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (AccountSnapshot) TableName() string { return "account_snapshots" }

type Repository interface {
	// ReplaceAll clears the table and writes rows in one transaction so a
	// rebuild never leaves half-old/half-new state.
	ReplaceAll(ctx context.Context, db *gorm.DB, rows []AccountSnapshot) error
	Upsert(ctx context.Context, db *gorm.DB, row *AccountSnapshot) error
	FindBySubscriptionRef(ctx context.Context, db *gorm.DB, subscriptionRef string) (*AccountSnapshot, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*AccountSnapshot, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*AccountSnapshot, error)
}
