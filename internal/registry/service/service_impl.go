package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallsites/sitebill/internal/billing"
	"github.com/smallsites/sitebill/internal/registry/domain"
	"github.com/smallsites/sitebill/internal/siteid"
	"github.com/smallsites/sitebill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("registry.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (domain.Registration, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Registration{}, domain.ErrInvalidEmail
	}

	site := siteid.Normalize(req.SiteID)
	if !siteid.Valid(site) {
		return domain.Registration{}, domain.ErrInvalidSiteID
	}

	now := time.Now().UTC()
	registration := domain.Registration{
		ID:        s.genID.Generate(),
		Email:     email,
		SiteID:    site,
		Plan:      string(billing.NormalizePlan(req.Plan)),
		Status:    string(billing.StatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &registration); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Registration{}, domain.ErrSiteExists
		}
		return domain.Registration{}, err
	}

	return registration, nil
}

// LinkSubscription attaches a subscription reference to a registration that
// does not have one yet. The ref is set once; a second link attempt fails.
func (s *Service) LinkSubscription(ctx context.Context, req domain.LinkSubscriptionRequest) (domain.Registration, error) {
	site := siteid.Normalize(req.SiteID)
	if site == "" {
		return domain.Registration{}, domain.ErrInvalidSiteID
	}

	ref := strings.TrimSpace(req.SubscriptionRef)
	if ref == "" {
		return domain.Registration{}, domain.ErrInvalidRef
	}

	existing, err := s.repo.FindBySiteID(ctx, s.db, site)
	if err != nil {
		return domain.Registration{}, err
	}
	if existing == nil {
		return domain.Registration{}, domain.ErrNotFound
	}
	if existing.SubscriptionRef != "" {
		return domain.Registration{}, domain.ErrAlreadyLinked
	}

	rows, err := s.repo.UpdateSubscriptionRef(ctx, s.db, site, ref)
	if err != nil {
		return domain.Registration{}, err
	}
	if rows == 0 {
		// Raced with another link; re-read to report the winner.
		return domain.Registration{}, domain.ErrAlreadyLinked
	}

	updated, err := s.repo.FindBySiteID(ctx, s.db, site)
	if err != nil {
		return domain.Registration{}, err
	}
	if updated == nil {
		return domain.Registration{}, domain.ErrNotFound
	}

	s.log.Info("subscription linked",
		zap.String("site_id", site),
		zap.String("subscription_ref", ref),
	)
	return *updated, nil
}

func (s *Service) GetBySiteID(ctx context.Context, siteID string) (*domain.Registration, error) {
	site := siteid.Normalize(siteID)
	if site == "" {
		return nil, domain.ErrInvalidSiteID
	}
	return s.repo.FindBySiteID(ctx, s.db, site)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	return s.repo.FindByEmail(ctx, s.db, strings.ToLower(strings.TrimSpace(email)))
}
