package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallsites/sitebill/internal/registry/domain"
	"github.com/smallsites/sitebill/internal/registry/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupServiceTest(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Registration{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestSignup_NormalizesInput(t *testing.T) {
	svc := setupServiceTest(t)

	reg, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:  "  Ana@Example.COM ",
		SiteID: "ana flores!",
		Plan:   "VIP",
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", reg.Email)
	assert.Equal(t, "ANAFLORES", reg.SiteID)
	assert.Equal(t, "vip", reg.Plan)
	assert.Equal(t, "pending", reg.Status)
	assert.False(t, reg.ManualBlock)
}

func TestSignup_Validation(t *testing.T) {
	svc := setupServiceTest(t)

	_, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:  "not-an-email",
		SiteID: "ANA-FLORES",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Signup(context.Background(), domain.SignupRequest{
		Email:  "ana@example.com",
		SiteID: "a!",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSiteID)
}

func TestSignup_DuplicateSite(t *testing.T) {
	svc := setupServiceTest(t)

	_, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:  "ana@example.com",
		SiteID: "ANA-FLORES",
	})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), domain.SignupRequest{
		Email:  "other@example.com",
		SiteID: "ana-flores",
	})
	assert.ErrorIs(t, err, domain.ErrSiteExists)
}

func TestLinkSubscription_SetOnce(t *testing.T) {
	svc := setupServiceTest(t)

	_, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:  "ana@example.com",
		SiteID: "ANA-FLORES",
	})
	require.NoError(t, err)

	linked, err := svc.LinkSubscription(context.Background(), domain.LinkSubscriptionRequest{
		SiteID:          "ana-flores",
		SubscriptionRef: "sub-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", linked.SubscriptionRef)

	_, err = svc.LinkSubscription(context.Background(), domain.LinkSubscriptionRequest{
		SiteID:          "ANA-FLORES",
		SubscriptionRef: "sub-2",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyLinked)
}

func TestLinkSubscription_UnknownSite(t *testing.T) {
	svc := setupServiceTest(t)

	_, err := svc.LinkSubscription(context.Background(), domain.LinkSubscriptionRequest{
		SiteID:          "GHOST-SITE",
		SubscriptionRef: "sub-1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLinkSubscription_EmptyRef(t *testing.T) {
	svc := setupServiceTest(t)

	_, err := svc.LinkSubscription(context.Background(), domain.LinkSubscriptionRequest{
		SiteID:          "ANA-FLORES",
		SubscriptionRef: "   ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRef)
}
