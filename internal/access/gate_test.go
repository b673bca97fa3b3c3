package access

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallsites/sitebill/internal/config"
	ledgerdomain "github.com/smallsites/sitebill/internal/ledger/domain"
	ledgerrepo "github.com/smallsites/sitebill/internal/ledger/repository"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	registryrepo "github.com/smallsites/sitebill/internal/registry/repository"
	"github.com/smallsites/sitebill/internal/resolver"
	snapshotdomain "github.com/smallsites/sitebill/internal/snapshot/domain"
	snapshotrepo "github.com/smallsites/sitebill/internal/snapshot/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupGateTest(t *testing.T) (*gorm.DB, Gate) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&registrydomain.Registration{},
		&ledgerdomain.PaymentEvent{},
		&snapshotdomain.AccountSnapshot{},
	)
	require.NoError(t, err)

	registryRepo := registryrepo.Provide()
	resolverSvc := resolver.New(resolver.Params{
		DB:           db,
		Log:          zap.NewNop(),
		Billing:      config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		RegistryRepo: registryRepo,
		LedgerRepo:   ledgerrepo.Provide(),
		SnapshotRepo: snapshotrepo.Provide(),
	})

	gate := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		RegistryRepo: registryRepo,
		Resolver:     resolverSvc,
	})

	return db, gate
}

func seedAccount(t *testing.T, db *gorm.DB, siteID, status string, blocked bool) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	reg := registrydomain.Registration{
		ID:              node.Generate(),
		Email:           "ana@example.com",
		SiteID:          siteID,
		Plan:            "essential",
		SubscriptionRef: "sub-1",
		Status:          "cancelled",
		ManualBlock:     blocked,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, db.Create(&reg).Error)

	snap := snapshotdomain.AccountSnapshot{
		SubscriptionRef: "sub-1",
		Email:           "ana@example.com",
		SiteID:          siteID,
		Status:          status,
		Amount:          39.90,
		UpdatedAt:       now,
	}
	require.NoError(t, db.Create(&snap).Error)
}

func TestFeaturesEnabled_ActiveAccount(t *testing.T) {
	db, gate := setupGateTest(t)
	seedAccount(t, db, "ANA-FLORES", "approved", false)

	enabled, err := gate.FeaturesEnabled(context.Background(), "ana-flores")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestFeaturesEnabled_ManualBlockWins(t *testing.T) {
	db, gate := setupGateTest(t)
	// Paid and blocked: the block wins.
	seedAccount(t, db, "ANA-FLORES", "approved", true)

	enabled, err := gate.FeaturesEnabled(context.Background(), "ANA-FLORES")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestFeaturesEnabled_InactiveAccount(t *testing.T) {
	db, gate := setupGateTest(t)
	seedAccount(t, db, "ANA-FLORES", "pending", false)

	enabled, err := gate.FeaturesEnabled(context.Background(), "ANA-FLORES")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestFeaturesEnabled_UnknownSite(t *testing.T) {
	_, gate := setupGateTest(t)

	enabled, err := gate.FeaturesEnabled(context.Background(), "GHOST-SITE")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestFeaturesEnabled_InvalidSiteID(t *testing.T) {
	_, gate := setupGateTest(t)

	enabled, err := gate.FeaturesEnabled(context.Background(), "!!")
	require.NoError(t, err)
	assert.False(t, enabled)
}
