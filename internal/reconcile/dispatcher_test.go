package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_EnqueueDropsWhenFull(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := setupEngineTest(t, now)

	d := NewDispatcher(f.engine, zap.NewNop(), Config{QueueSize: 1}, nil)

	d.Enqueue(Task{SubscriptionRef: "sub-1"})
	// Queue is full; the second enqueue drops without blocking.
	d.Enqueue(Task{SubscriptionRef: "sub-2"})

	assert.Equal(t, 1, len(d.tasks))
}

func TestDispatcher_RunOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := setupEngineTest(t, now)

	f.seedRegistration(t, "ana@example.com", "ANA-FLORES", "sub-1")
	f.seedEvent(t, "sub-1", "approved", 39.90, now.Add(-time.Hour))

	d := NewDispatcher(f.engine, zap.NewNop(), DefaultConfig(), nil)

	// Scoped task.
	require.NoError(t, d.runOnce(context.Background(), Task{SubscriptionRef: "sub-1"}))
	snap := f.snapshot(t, "sub-1")
	assert.Equal(t, "approved", snap.Status)

	// Empty ref falls back to a full run.
	require.NoError(t, d.runOnce(context.Background(), Task{}))
}
