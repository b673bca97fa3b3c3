// Package access is the question the site runtime actually asks: may this
// site serve its paid features right now.
package access

import (
	"context"

	"github.com/smallsites/sitebill/internal/billing"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	"github.com/smallsites/sitebill/internal/resolver"
	"github.com/smallsites/sitebill/internal/siteid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Gate interface {
	// FeaturesEnabled is true only when the owning account resolves to an
	// active status and the site carries no manual block. Unknown sites are
	// disabled.
	FeaturesEnabled(ctx context.Context, siteID string) (bool, error)
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	RegistryRepo registrydomain.Repository
	Resolver     resolver.Service
}

type gate struct {
	db           *gorm.DB
	log          *zap.Logger
	registryRepo registrydomain.Repository
	resolver     resolver.Service
}

func New(p Params) Gate {
	return &gate{
		db:           p.DB,
		log:          p.Log.Named("access.gate"),
		registryRepo: p.RegistryRepo,
		resolver:     p.Resolver,
	}
}

func (g *gate) FeaturesEnabled(ctx context.Context, rawSiteID string) (bool, error) {
	normalized := siteid.Normalize(rawSiteID)
	if !siteid.Valid(normalized) {
		return false, nil
	}

	registration, err := g.registryRepo.FindBySiteID(ctx, g.db, normalized)
	if err != nil {
		return false, err
	}
	if registration == nil {
		return false, nil
	}

	// A manual block short-circuits before any status work: the override
	// always wins.
	if registration.ManualBlock {
		return false, nil
	}

	res, err := g.resolver.Resolve(ctx, registration.Email)
	if err != nil {
		return false, err
	}
	return billing.IsActiveStatus(res.Status) && !res.ManualBlock, nil
}
