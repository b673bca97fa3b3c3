// Package resolver answers "what is this account's billing state right now"
// from the freshest source available, falling back layer by layer so the
// question never hard-fails for an unknown account.
package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/smallsites/sitebill/internal/billing"
	"github.com/smallsites/sitebill/internal/config"
	ledgerdomain "github.com/smallsites/sitebill/internal/ledger/domain"
	obsmetrics "github.com/smallsites/sitebill/internal/observability/metrics"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	snapshotdomain "github.com/smallsites/sitebill/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resolution is the fully-populated billing state for one account. Every
// field is set; unknown accounts resolve to pending with plan-tier defaults.
type Resolution struct {
	Plan              string     `json:"plan"`
	Status            string     `json:"status"`
	Provider          string     `json:"provider"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	ManualBlock       bool       `json:"manual_block"`
	LastPaymentDate   *time.Time `json:"last_payment_date"`
	LastPaymentAmount float64    `json:"last_payment_amount"`
	NextRenewalDate   *time.Time `json:"next_renewal_date"`
}

type Service interface {
	Resolve(ctx context.Context, email string) (Resolution, error)
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Billing      *config.BillingConfigHolder
	RegistryRepo registrydomain.Repository
	LedgerRepo   ledgerdomain.Repository
	SnapshotRepo snapshotdomain.Repository
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	db           *gorm.DB
	log          *zap.Logger
	billing      *config.BillingConfigHolder
	registryRepo registrydomain.Repository
	ledgerRepo   ledgerdomain.Repository
	snapshotRepo snapshotdomain.Repository
	metrics      *obsmetrics.Metrics
}

func New(p Params) Service {
	return &service{
		db:           p.DB,
		log:          p.Log.Named("resolver.service"),
		billing:      p.Billing,
		registryRepo: p.RegistryRepo,
		ledgerRepo:   p.LedgerRepo,
		snapshotRepo: p.SnapshotRepo,
		metrics:      p.Metrics,
	}
}

// Resolve walks the fallback chain: snapshot, registration signal, raw
// ledger, plan-tier defaults. The first layer that yields an answer wins.
// Manual block from the registration is surfaced no matter which layer
// answered.
func (s *service) Resolve(ctx context.Context, email string) (Resolution, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	cfg := s.billing.Get()

	registration, err := s.registryRepo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		Plan:     string(billing.PlanEssential),
		Status:   string(billing.StatusPending),
		Provider: cfg.DefaultProvider,
		Currency: cfg.DefaultCurrency,
	}
	if registration != nil {
		res.ManualBlock = registration.ManualBlock
		res.Plan = string(billing.NormalizePlan(registration.Plan))
	}

	snap, err := s.snapshotRepo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return Resolution{}, err
	}
	if snap != nil {
		applySnapshot(&res, snap)
		if billing.IsActiveStatus(snap.Status) {
			canonical := billing.Canonical(snap.Status)
			res.Status = canonical
			if canonical != snap.Status {
				s.healDriftedStatus(ctx, snap, canonical)
			}
			s.applyPlanDefaults(&res, cfg)
			return res, nil
		}
	}

	if registration != nil && siteSignalPositive(registration) {
		res.Status = string(billing.StatusActive)
		s.applyPlanDefaults(&res, cfg)
		return res, nil
	}

	events, err := s.ledgerRepo.ScanByPayerEmail(ctx, s.db, email)
	if err != nil {
		return Resolution{}, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if !billing.IsActiveStatus(event.RawStatus) {
			continue
		}

		res.Status = string(billing.StatusApproved)
		last := event.OccurredAt
		res.LastPaymentDate = &last
		res.LastPaymentAmount = event.Amount
		if event.Amount > 0 {
			res.Amount = event.Amount
		}
		if event.Currency != "" {
			res.Currency = event.Currency
		}
		if event.Provider != "" {
			res.Provider = event.Provider
		}
		next := last.Add(time.Duration(cfg.RenewalIntervalDays) * 24 * time.Hour)
		res.NextRenewalDate = &next

		s.applyPlanDefaults(&res, cfg)
		s.healFromLedger(ctx, registration, &event, res)
		return res, nil
	}

	s.applyPlanDefaults(&res, cfg)
	s.persistDefaults(ctx, registration, res)
	return res, nil
}

// siteSignalPositive is the registration-level activity signal. A bare row is
// not enough: a blocked site or an explicitly non-active stored status keeps
// the signal negative.
func siteSignalPositive(registration *registrydomain.Registration) bool {
	if registration.ManualBlock {
		return false
	}
	status := billing.Canonical(registration.Status)
	return status == "" || billing.IsActiveStatus(status)
}

func applySnapshot(res *Resolution, snap *snapshotdomain.AccountSnapshot) {
	if snap.Plan != "" {
		res.Plan = snap.Plan
	}
	if snap.Status != "" {
		res.Status = billing.Canonical(snap.Status)
	}
	if snap.Provider != "" {
		res.Provider = snap.Provider
	}
	if snap.Currency != "" {
		res.Currency = snap.Currency
	}
	if snap.Amount > 0 {
		res.Amount = snap.Amount
		res.LastPaymentAmount = snap.Amount
	}
	res.LastPaymentDate = snap.LastPaymentDate
	res.NextRenewalDate = snap.NextRenewalDate
}

func (s *service) applyPlanDefaults(res *Resolution, cfg config.BillingConfig) {
	if res.Amount == 0 {
		res.Amount = cfg.AmountForPlan(res.Plan)
	}
}

// healDriftedStatus rewrites a snapshot whose stored status casing drifted
// from canonical form. Best-effort: the resolution already answered.
func (s *service) healDriftedStatus(ctx context.Context, snap *snapshotdomain.AccountSnapshot, canonical string) {
	healed := *snap
	healed.Status = canonical
	if err := s.snapshotRepo.Upsert(ctx, s.db, &healed); err != nil {
		s.log.Warn("snapshot status heal failed",
			zap.String("subscription_ref", snap.SubscriptionRef),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordSnapshotHeal(ctx, "status_drift")
}

// healFromLedger backfills a snapshot row from a ledger hit so the next
// lookup short-circuits on layer one. Skipped when no subscription ref is
// known; the snapshot store is keyed by ref.
func (s *service) healFromLedger(ctx context.Context, registration *registrydomain.Registration, event *ledgerdomain.PaymentEvent, res Resolution) {
	ref := event.SubscriptionRef
	if ref == "" && registration != nil {
		ref = registration.SubscriptionRef
	}
	if ref == "" {
		return
	}

	row := snapshotdomain.AccountSnapshot{
		SubscriptionRef: ref,
		Email:           event.PayerEmail,
		Plan:            res.Plan,
		Status:          res.Status,
		Amount:          res.Amount,
		Currency:        res.Currency,
		Provider:        res.Provider,
		LastPaymentDate: res.LastPaymentDate,
		NextRenewalDate: res.NextRenewalDate,
	}
	if registration != nil {
		row.SiteID = registration.SiteID
	}
	if err := s.snapshotRepo.Upsert(ctx, s.db, &row); err != nil {
		s.log.Warn("snapshot heal from ledger failed",
			zap.String("subscription_ref", ref),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordSnapshotHeal(ctx, "ledger_fallback")
}

// persistDefaults caches a defaulted resolution for linked accounts so
// repeated lookups of a pending subscription stay cheap.
func (s *service) persistDefaults(ctx context.Context, registration *registrydomain.Registration, res Resolution) {
	if registration == nil || registration.SubscriptionRef == "" {
		return
	}

	row := snapshotdomain.AccountSnapshot{
		SubscriptionRef: registration.SubscriptionRef,
		Email:           registration.Email,
		SiteID:          registration.SiteID,
		Plan:            res.Plan,
		Status:          res.Status,
		Amount:          res.Amount,
		Currency:        res.Currency,
		Provider:        res.Provider,
	}
	if err := s.snapshotRepo.Upsert(ctx, s.db, &row); err != nil {
		s.log.Warn("snapshot default persist failed",
			zap.String("subscription_ref", registration.SubscriptionRef),
			zap.Error(err),
		)
	}
}
