// Package seed bootstraps demo data for local development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallsites/sitebill/internal/billing"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	"gorm.io/gorm"
)

type demoRegistration struct {
	email           string
	siteID          string
	plan            billing.Plan
	subscriptionRef string
}

var demoRegistrations = []demoRegistration{
	{email: "ana@example.com", siteID: "ANA-FLORES", plan: billing.PlanEssential, subscriptionRef: "sub-demo-ana"},
	{email: "bruno@example.com", siteID: "BRUNO-FOTOS", plan: billing.PlanVIP, subscriptionRef: "sub-demo-bruno"},
	{email: "carla@example.com", siteID: "CARLA-DOCES", plan: billing.PlanEssential, subscriptionRef: ""},
}

// EnsureDemoRegistrations writes the demo registration set, skipping sites
// that already exist. Dev mode only.
func EnsureDemoRegistrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, demo := range demoRegistrations {
			if err := ensureRegistrationTx(ctx, tx, node, demo); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureRegistrationTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, demo demoRegistration) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&registrydomain.Registration{}).
		Where("site_id = ?", demo.siteID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	registration := registrydomain.Registration{
		ID:              node.Generate(),
		Email:           demo.email,
		SiteID:          demo.siteID,
		Plan:            string(demo.plan),
		SubscriptionRef: demo.subscriptionRef,
		Status:          string(billing.StatusPending),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return tx.WithContext(ctx).Create(&registration).Error
}
