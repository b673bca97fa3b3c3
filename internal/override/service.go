// Package override implements the admin kill switch. A manual block is a
// registry-level flag that wins over anything reconciliation derives, so the
// write path here touches the registry directly and leaves ledger and
// snapshots alone.
package override

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/smallsites/sitebill/internal/config"
	"github.com/smallsites/sitebill/internal/notify"
	"github.com/smallsites/sitebill/internal/observability/metrics"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	"github.com/smallsites/sitebill/internal/siteid"
	pkgdb "github.com/smallsites/sitebill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrMissingSite  = errors.New("missing_site")
	ErrMissingStore = errors.New("missing_store")
	ErrNotFound     = errors.New("site_not_found")
	ErrNoRows       = errors.New("no_rows")
)

type Request struct {
	SiteID     string
	Blocked    bool
	AdminToken string
}

type Result struct {
	SiteID      string `json:"siteId"`
	ManualBlock bool   `json:"manualBlock"`
}

type Service interface {
	SetManualBlock(ctx context.Context, req Request) (Result, error)
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Config       config.Config
	RegistryRepo registrydomain.Repository
	Notifier     notify.Provider
	Metrics      *metrics.Metrics `optional:"true"`
}

type service struct {
	db           *gorm.DB
	log          *zap.Logger
	adminSecret  string
	registryRepo registrydomain.Repository
	notifier     notify.Provider
	metrics      *metrics.Metrics
}

func New(p Params) Service {
	return &service{
		db:           p.DB,
		log:          p.Log.Named("override.service"),
		adminSecret:  p.Config.AdminSecret,
		registryRepo: p.RegistryRepo,
		notifier:     p.Notifier,
		metrics:      p.Metrics,
	}
}

func (s *service) SetManualBlock(ctx context.Context, req Request) (Result, error) {
	if !s.authorized(req.AdminToken) {
		s.metrics.RecordOverride(ctx, "unauthorized")
		return Result{}, ErrUnauthorized
	}

	normalized := siteid.Normalize(req.SiteID)
	if normalized == "" {
		s.metrics.RecordOverride(ctx, "missing_site")
		return Result{}, ErrMissingSite
	}

	registration, err := s.registryRepo.FindBySiteID(ctx, s.db, normalized)
	if err != nil {
		if pkgdb.IsMissingTableErr(err) {
			s.metrics.RecordOverride(ctx, "missing_store")
			return Result{}, ErrMissingStore
		}
		return Result{}, err
	}
	if registration == nil {
		s.metrics.RecordOverride(ctx, "site_not_found")
		return Result{}, ErrNotFound
	}

	affected, err := s.registryRepo.UpdateManualBlock(ctx, s.db, normalized, req.Blocked)
	if err != nil {
		return Result{}, err
	}
	if affected == 0 {
		// Row vanished between read and write.
		s.metrics.RecordOverride(ctx, "no_rows")
		return Result{}, ErrNoRows
	}

	s.metrics.RecordOverride(ctx, "ok")
	s.log.Info("manual block updated",
		zap.String("site_id", normalized),
		zap.Bool("blocked", req.Blocked),
	)
	s.announce(ctx, normalized, req.Blocked)

	return Result{SiteID: normalized, ManualBlock: req.Blocked}, nil
}

// authorized compares the presented token against the configured secret in
// constant time. An empty configured secret rejects everything.
func (s *service) authorized(token string) bool {
	if s.adminSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminSecret)) == 1
}

func (s *service) announce(ctx context.Context, siteID string, blocked bool) {
	message := "site " + siteID + " unblocked by admin override"
	if blocked {
		message = "site " + siteID + " blocked by admin override"
	}
	if err := s.notifier.PostMessage(ctx, "", message); err != nil {
		s.log.Warn("override notification failed", zap.Error(err))
	}
}
