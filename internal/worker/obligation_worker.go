// Package worker runs the periodic recurring-obligation generation loop.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/ledger"
)

// ObligationWorkerConfig holds configuration for the obligation worker
type ObligationWorkerConfig struct {
	// Interval is how often to run generation. Generation is idempotent,
	// so frequent ticks only cost reads.
	Interval time.Duration
}

// DefaultObligationWorkerConfig returns sensible defaults
func DefaultObligationWorkerConfig() ObligationWorkerConfig {
	return ObligationWorkerConfig{Interval: 6 * time.Hour}
}

// ObligationWorker periodically generates the current month's recurring
// obligations.
type ObligationWorker struct {
	engine *ledger.Engine
	config ObligationWorkerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewObligationWorker creates a new obligation worker
func NewObligationWorker(engine *ledger.Engine, config ObligationWorkerConfig) *ObligationWorker {
	return &ObligationWorker{
		engine: engine,
		config: config,
	}
}

// Start begins the generation loop. Returns an error if already running.
func (w *ObligationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("obligation worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Obligation worker started",
		"interval", w.config.Interval)
	return nil
}

// Stop gracefully stops the worker and waits for completion.
func (w *ObligationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Obligation worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Obligation worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *ObligationWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	// Generate once at startup, then on every tick.
	w.generate(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.generate(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *ObligationWorker) generate(ctx context.Context) {
	month := core.MonthYearOf(time.Now().UTC())
	created, err := w.engine.GenerateObligationsForMonth(ctx, month)
	if err != nil {
		slog.ErrorContext(ctx, "Obligation generation run failed",
			"month", month.String(),
			"error", err)
		return
	}
	slog.InfoContext(ctx, "Obligation generation run complete",
		"month", month.String(),
		"created", len(created))
}
