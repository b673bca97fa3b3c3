package reconcile

import (
	"context"
	"time"

	obsmetrics "github.com/smallsites/sitebill/internal/observability/metrics"
	"go.uber.org/zap"
)

// Task asks for one account (SubscriptionRef set) or a full run (empty).
type Task struct {
	SubscriptionRef string
}

// Dispatcher decouples reconciliation from the request path. Enqueue never
// blocks and never fails the caller: a full queue drops the task, which the
// periodic worker later covers with a full run. Each dequeued task is
// retried with backoff before being given up on.
type Dispatcher struct {
	engine     *Engine
	log        *zap.Logger
	cfg        Config
	tasks      chan Task
	runMetrics *obsmetrics.ReconcileMetrics
}

func NewDispatcher(engine *Engine, log *zap.Logger, cfg Config, runMetrics *obsmetrics.ReconcileMetrics) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		engine:     engine,
		log:        log.Named("reconcile.dispatcher"),
		cfg:        cfg,
		tasks:      make(chan Task, cfg.QueueSize),
		runMetrics: runMetrics,
	}
}

// Enqueue submits a task best-effort.
func (d *Dispatcher) Enqueue(task Task) {
	select {
	case d.tasks <- task:
		d.runMetrics.SetQueueDepth(len(d.tasks))
	default:
		d.log.Warn("reconcile queue full, dropping task",
			zap.String("subscription_ref", task.SubscriptionRef),
		)
	}
}

// Run drains the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-d.tasks:
			d.runMetrics.SetQueueDepth(len(d.tasks))
			d.process(ctx, task)
		}
	}
}

func (d *Dispatcher) process(parent context.Context, task Task) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(parent, d.cfg.RunTimeout)
		lastErr = d.runOnce(ctx, task)
		cancel()
		if lastErr == nil {
			return
		}
		if parent.Err() != nil {
			return
		}

		select {
		case <-parent.Done():
			return
		case <-time.After(d.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}

	// Best-effort semantics: exhausting retries is logged, never surfaced
	// to the webhook sender.
	d.log.Error("reconcile task failed",
		zap.String("subscription_ref", task.SubscriptionRef),
		zap.Int("attempts", d.cfg.MaxAttempts),
		zap.Error(lastErr),
	)
}

func (d *Dispatcher) runOnce(ctx context.Context, task Task) error {
	if task.SubscriptionRef == "" {
		return d.engine.ReconcileAll(ctx)
	}
	return d.engine.ReconcileOne(ctx, task.SubscriptionRef)
}
