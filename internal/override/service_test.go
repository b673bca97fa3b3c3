package override

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallsites/sitebill/internal/config"
	"github.com/smallsites/sitebill/internal/notify"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	registryrepo "github.com/smallsites/sitebill/internal/registry/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminSecret = "test-admin-secret"

func setupOverrideTest(t *testing.T) (*gorm.DB, Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&registrydomain.Registration{}))

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Config:       config.Config{AdminSecret: testAdminSecret},
		RegistryRepo: registryrepo.Provide(),
		Notifier:     &notify.NoOpProvider{},
	})

	return db, svc
}

func seedSite(t *testing.T, db *gorm.DB, siteID string) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := registrydomain.Registration{
		ID:        node.Generate(),
		Email:     "ana@example.com",
		SiteID:    siteID,
		Plan:      "essential",
		Status:    "pending",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&reg).Error)
}

func TestSetManualBlock_Success(t *testing.T) {
	db, svc := setupOverrideTest(t)
	seedSite(t, db, "ANA-FLORES")

	result, err := svc.SetManualBlock(context.Background(), Request{
		SiteID:     "ana-flores",
		Blocked:    true,
		AdminToken: testAdminSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, "ANA-FLORES", result.SiteID)
	assert.True(t, result.ManualBlock)

	var reg registrydomain.Registration
	require.NoError(t, db.Where("site_id = ?", "ANA-FLORES").First(&reg).Error)
	assert.True(t, reg.ManualBlock)
}

func TestSetManualBlock_Unblock(t *testing.T) {
	db, svc := setupOverrideTest(t)
	seedSite(t, db, "ANA-FLORES")

	_, err := svc.SetManualBlock(context.Background(), Request{
		SiteID:     "ANA-FLORES",
		Blocked:    true,
		AdminToken: testAdminSecret,
	})
	require.NoError(t, err)

	result, err := svc.SetManualBlock(context.Background(), Request{
		SiteID:     "ANA-FLORES",
		Blocked:    false,
		AdminToken: testAdminSecret,
	})
	require.NoError(t, err)
	assert.False(t, result.ManualBlock)

	var reg registrydomain.Registration
	require.NoError(t, db.Where("site_id = ?", "ANA-FLORES").First(&reg).Error)
	assert.False(t, reg.ManualBlock)
}

func TestSetManualBlock_WrongTokenLeavesRegistryUntouched(t *testing.T) {
	db, svc := setupOverrideTest(t)
	seedSite(t, db, "ANA-FLORES")

	_, err := svc.SetManualBlock(context.Background(), Request{
		SiteID:     "ANA-FLORES",
		Blocked:    true,
		AdminToken: "wrong",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)

	var reg registrydomain.Registration
	require.NoError(t, db.Where("site_id = ?", "ANA-FLORES").First(&reg).Error)
	assert.False(t, reg.ManualBlock)
}

func TestSetManualBlock_EmptySecretRejectsAll(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&registrydomain.Registration{}))

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Config:       config.Config{},
		RegistryRepo: registryrepo.Provide(),
		Notifier:     &notify.NoOpProvider{},
	})

	_, err = svc.SetManualBlock(context.Background(), Request{
		SiteID:     "ANA-FLORES",
		Blocked:    true,
		AdminToken: "",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSetManualBlock_MissingSite(t *testing.T) {
	_, svc := setupOverrideTest(t)

	_, err := svc.SetManualBlock(context.Background(), Request{
		SiteID:     "  !!  ",
		Blocked:    true,
		AdminToken: testAdminSecret,
	})
	assert.ErrorIs(t, err, ErrMissingSite)
}

func TestSetManualBlock_SiteNotFound(t *testing.T) {
	_, svc := setupOverrideTest(t)

	_, err := svc.SetManualBlock(context.Background(), Request{
		SiteID:     "GHOST-SITE",
		Blocked:    true,
		AdminToken: testAdminSecret,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetManualBlock_MissingStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	// Registrations table deliberately not migrated.

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Config:       config.Config{AdminSecret: testAdminSecret},
		RegistryRepo: registryrepo.Provide(),
		Notifier:     &notify.NoOpProvider{},
	})

	_, err = svc.SetManualBlock(context.Background(), Request{
		SiteID:     "ANA-FLORES",
		Blocked:    true,
		AdminToken: testAdminSecret,
	})
	assert.ErrorIs(t, err, ErrMissingStore)
}
