package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Worker runs a full reconciliation sweep on a fixed interval. The sweep is
// the safety net for anything the dispatcher dropped or the webhook never
// delivered: a full run always converges snapshots to the ledger.
type Worker struct {
	engine *Engine
	log    *zap.Logger
	cfg    Config
}

func NewWorker(engine *Engine, log *zap.Logger, cfg Config) *Worker {
	return &Worker{
		engine: engine,
		log:    log.Named("reconcile.worker"),
		cfg:    cfg.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("reconcile run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()

	return w.engine.ReconcileAll(ctx)
}
