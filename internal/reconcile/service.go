// Package reconcile rebuilds the account snapshot cache from the registry
// and the payment ledger.
package reconcile

import (
	"context"
	"time"

	"github.com/smallsites/sitebill/internal/billing"
	"github.com/smallsites/sitebill/internal/clock"
	"github.com/smallsites/sitebill/internal/config"
	ledgerdomain "github.com/smallsites/sitebill/internal/ledger/domain"
	obsmetrics "github.com/smallsites/sitebill/internal/observability/metrics"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	snapshotdomain "github.com/smallsites/sitebill/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Billing      *config.BillingConfigHolder
	RegistryRepo registrydomain.Repository
	LedgerRepo   ledgerdomain.Repository
	SnapshotRepo snapshotdomain.Repository
	Metrics      *obsmetrics.Metrics          `optional:"true"`
	RunMetrics   *obsmetrics.ReconcileMetrics `optional:"true"`
}

// Engine derives account snapshots. Both entry points share the same rule
// set: the last active-vocabulary event in append order wins, renewal and
// grace arithmetic come from billing config, and writes replace rather than
// patch so repeated runs with no new events are idempotent.
type Engine struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	billing      *config.BillingConfigHolder
	registryRepo registrydomain.Repository
	ledgerRepo   ledgerdomain.Repository
	snapshotRepo snapshotdomain.Repository
	metrics      *obsmetrics.Metrics
	runMetrics   *obsmetrics.ReconcileMetrics
}

func NewEngine(p Params) *Engine {
	return &Engine{
		db:           p.DB,
		log:          p.Log.Named("reconcile.engine"),
		clock:        p.Clock,
		billing:      p.Billing,
		registryRepo: p.RegistryRepo,
		ledgerRepo:   p.LedgerRepo,
		snapshotRepo: p.SnapshotRepo,
		metrics:      p.Metrics,
		runMetrics:   p.RunMetrics,
	}
}

// ReconcileAll rebuilds every snapshot row as a full replacement of the
// store.
func (e *Engine) ReconcileAll(ctx context.Context) error {
	start := time.Now()

	registrations, err := e.registryRepo.ListLinked(ctx, e.db)
	if err != nil {
		e.observe(ctx, "all", "error", start, 0)
		return err
	}

	entries := make(map[string]*snapshotdomain.AccountSnapshot, len(registrations))
	order := make([]string, 0, len(registrations))
	for _, reg := range registrations {
		if _, ok := entries[reg.SubscriptionRef]; ok {
			continue
		}
		entries[reg.SubscriptionRef] = e.seedEntry(reg)
		order = append(order, reg.SubscriptionRef)
	}

	events, err := e.ledgerRepo.ScanAll(ctx, e.db)
	if err != nil {
		e.observe(ctx, "all", "error", start, 0)
		return err
	}
	for i := range events {
		e.applyEvent(entries[events[i].SubscriptionRef], &events[i])
	}

	now := e.clock.Now()
	rows := make([]snapshotdomain.AccountSnapshot, 0, len(order))
	for _, ref := range order {
		entry := entries[ref]
		e.finalize(entry, now)
		rows = append(rows, *entry)
	}

	if err := e.snapshotRepo.ReplaceAll(ctx, e.db, rows); err != nil {
		e.observe(ctx, "all", "error", start, 0)
		return err
	}

	e.observe(ctx, "all", "ok", start, len(rows))
	e.log.Debug("reconciliation complete",
		zap.Int("accounts", len(rows)),
		zap.Int("events", len(events)),
	)
	return nil
}

// ReconcileOne rebuilds the snapshot row for a single subscription from a
// scoped ledger scan. Unknown refs are a no-op.
func (e *Engine) ReconcileOne(ctx context.Context, subscriptionRef string) error {
	start := time.Now()

	registration, err := e.registryRepo.FindBySubscriptionRef(ctx, e.db, subscriptionRef)
	if err != nil {
		e.observe(ctx, "one", "error", start, 0)
		return err
	}
	if registration == nil {
		e.observe(ctx, "one", "skipped", start, 0)
		return nil
	}

	entry := e.seedEntry(*registration)
	events, err := e.ledgerRepo.ScanBySubscriptionRef(ctx, e.db, subscriptionRef)
	if err != nil {
		e.observe(ctx, "one", "error", start, 0)
		return err
	}
	for i := range events {
		e.applyEvent(entry, &events[i])
	}
	e.finalize(entry, e.clock.Now())

	if err := e.snapshotRepo.Upsert(ctx, e.db, entry); err != nil {
		e.observe(ctx, "one", "error", start, 0)
		return err
	}

	e.observe(ctx, "one", "ok", start, 1)
	return nil
}

func (e *Engine) seedEntry(reg registrydomain.Registration) *snapshotdomain.AccountSnapshot {
	cfg := e.billing.Get()
	status := billing.Canonical(reg.Status)
	if status == "" {
		status = string(billing.StatusPending)
	}
	return &snapshotdomain.AccountSnapshot{
		SubscriptionRef: reg.SubscriptionRef,
		Email:           reg.Email,
		SiteID:          reg.SiteID,
		Plan:            reg.Plan,
		Status:          status,
		Currency:        cfg.DefaultCurrency,
		Provider:        cfg.DefaultProvider,
	}
}

// applyEvent overwrites the entry with an active-vocabulary event. The scan
// is in append order, so the last matching active event wins; inactive
// events never touch the entry.
func (e *Engine) applyEvent(entry *snapshotdomain.AccountSnapshot, event *ledgerdomain.PaymentEvent) {
	if entry == nil || !billing.IsActiveStatus(event.RawStatus) {
		return
	}
	entry.Status = billing.Canonical(event.RawStatus)
	entry.Amount = event.Amount
	if event.Currency != "" {
		entry.Currency = event.Currency
	}
	if event.Provider != "" {
		entry.Provider = event.Provider
	}
	occurred := event.OccurredAt
	entry.LastPaymentDate = &occurred
}

func (e *Engine) finalize(entry *snapshotdomain.AccountSnapshot, now time.Time) {
	cfg := e.billing.Get()
	entry.UpdatedAt = now

	if entry.LastPaymentDate == nil {
		entry.NextRenewalDate = nil
		entry.Overdue = false
		entry.DaysOverdue = 0
		return
	}

	next := entry.LastPaymentDate.Add(time.Duration(cfg.RenewalIntervalDays) * 24 * time.Hour)
	entry.NextRenewalDate = &next
	entry.Overdue, entry.DaysOverdue = OverdueState(now, next, cfg.GraceDays)
}

// OverdueState computes the overdue flag and day count for a renewal date.
// An account is overdue strictly after the grace window closes; the day
// count measures whole days past the grace deadline, so it is zero on the
// first overdue day.
func OverdueState(now, nextRenewal time.Time, graceDays int) (bool, int) {
	deadline := nextRenewal.Add(time.Duration(graceDays) * 24 * time.Hour)
	if !now.After(deadline) {
		return false, 0
	}
	days := int(now.Sub(deadline).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return true, days
}

func (e *Engine) observe(ctx context.Context, scope, outcome string, start time.Time, rows int) {
	e.metrics.RecordReconcileRun(ctx, scope, outcome)
	e.runMetrics.ObserveRun(scope, outcome, time.Since(start), rows)
}
