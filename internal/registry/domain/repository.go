package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository reads and writes registrations. Site ids passed in must already
// be normalized; repositories compare them verbatim.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, registration *Registration) error
	FindBySiteID(ctx context.Context, db *gorm.DB, siteID string) (*Registration, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Registration, error)
	FindBySubscriptionRef(ctx context.Context, db *gorm.DB, subscriptionRef string) (*Registration, error)
	// ListLinked returns registrations with a non-empty subscription_ref,
	// the join population for reconciliation.
	ListLinked(ctx context.Context, db *gorm.DB) ([]Registration, error)
	UpdateManualBlock(ctx context.Context, db *gorm.DB, siteID string, blocked bool) (int64, error)
	UpdateSubscriptionRef(ctx context.Context, db *gorm.DB, siteID, subscriptionRef string) (int64, error)
}
