package worker

import (
	"context"
	"testing"
	"time"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/ledger"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/storage/memory"
)

func TestObligationWorkerLifecycle(t *testing.T) {
	engine := ledger.NewEngine(memory.New(), nil, nil, ledger.Config{})
	w := NewObligationWorker(engine, ObligationWorkerConfig{Interval: time.Hour})
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatal("second Start should fail while running")
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stopping a stopped worker is a no-op.
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	// The worker can be restarted after a clean stop.
	if err := w.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop after restart: %v", err)
	}
}

func TestObligationWorkerGeneratesAtStartup(t *testing.T) {
	store := memory.New()
	store.PutCategory(core.Category{
		ID:             "cat-maint",
		Name:           "Maintenance Fee",
		IsPaymentEvent: true,
		AutoGenerate:   true,
		MonthlyAmount:  core.Money{Cents: 25000},
	})
	store.PutApartment(core.Apartment{ID: "T1", Members: []string{"alice"}})
	engine := ledger.NewEngine(store, nil, nil, ledger.Config{})

	w := NewObligationWorker(engine, ObligationWorkerConfig{Interval: time.Hour})
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop(ctx)

	month := core.MonthYearOf(time.Now().UTC())
	deadline := time.After(2 * time.Second)
	for {
		if recs := store.ObligationsFor("T1", "cat-maint", month); len(recs) == 1 {
			if recs[0].Status != core.PaymentPending {
				t.Fatalf("status = %s", recs[0].Status)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("startup generation did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
