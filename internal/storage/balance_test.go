package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

func apply(t *testing.T, r *Repository, month core.MonthYear, deltas core.DeltaSet) {
	t.Helper()
	err := r.inTx(context.Background(), func(tx *sql.Tx) error {
		return r.applyDeltasTx(context.Background(), tx, month, deltas)
	})
	if err != nil {
		t.Fatalf("apply deltas: %v", err)
	}
}

func TestApplyDeltas_CreatesAndRecomputes(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	july := core.MonthYear{Year: 2025, Month: time.July}

	apply(t, r, july, core.DeltaSet{"T1": {IncomeCents: 1000, ExpenseCents: 300}})

	b, err := r.GetBalanceSheet(ctx, "T1", july)
	if err != nil {
		t.Fatal(err)
	}
	if b.OpeningBalance.Cents != 0 || b.TotalIncome.Cents != 1000 ||
		b.TotalExpenses.Cents != 300 || b.ClosingBalance.Cents != 700 {
		t.Fatalf("sheet = %+v", b)
	}
	if b.Version != 1 {
		t.Fatalf("version = %d, want 1", b.Version)
	}

	// Subsequent applies accumulate totals and recompute the closing
	// balance from them.
	apply(t, r, july, core.DeltaSet{"T1": {ExpenseCents: 200}})
	b, err = r.GetBalanceSheet(ctx, "T1", july)
	if err != nil {
		t.Fatal(err)
	}
	if b.TotalExpenses.Cents != 500 || b.ClosingBalance.Cents != 500 {
		t.Fatalf("sheet = %+v", b)
	}
	if b.Version != 2 {
		t.Fatalf("version = %d, want 2", b.Version)
	}
}

func TestApplyDeltas_ZeroDeltaTouchesNothing(t *testing.T) {
	r := newTestRepo(t)
	july := core.MonthYear{Year: 2025, Month: time.July}

	apply(t, r, july, core.DeltaSet{"T1": {}})

	_, err := r.GetBalanceSheet(context.Background(), "T1", july)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("zero delta should not create a row, got %v", err)
	}
}

func TestApplyDeltas_Continuity(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	july := core.MonthYear{Year: 2025, Month: time.July}

	apply(t, r, july, core.DeltaSet{"T1": {IncomeCents: 2500}})
	apply(t, r, july.Next(), core.DeltaSet{"T1": {ExpenseCents: 1000}})

	julySheet, err := r.GetBalanceSheet(ctx, "T1", july)
	if err != nil {
		t.Fatal(err)
	}
	augSheet, err := r.GetBalanceSheet(ctx, "T1", july.Next())
	if err != nil {
		t.Fatal(err)
	}
	if augSheet.OpeningBalance != julySheet.ClosingBalance {
		t.Fatalf("august opening %d != july closing %d",
			augSheet.OpeningBalance.Cents, julySheet.ClosingBalance.Cents)
	}
	if augSheet.ClosingBalance.Cents != 1500 {
		t.Fatalf("august closing = %d, want 1500", augSheet.ClosingBalance.Cents)
	}
}

func TestApplyDeltas_NoPreviousMonthOpensAtZero(t *testing.T) {
	r := newTestRepo(t)
	jan := core.MonthYear{Year: 2025, Month: time.January}

	apply(t, r, jan, core.DeltaSet{"T1": {IncomeCents: 100}})

	b, err := r.GetBalanceSheet(context.Background(), "T1", jan)
	if err != nil {
		t.Fatal(err)
	}
	if b.OpeningBalance.Cents != 0 {
		t.Fatalf("opening = %d, want 0", b.OpeningBalance.Cents)
	}
}

func TestListBalanceSheets_Filters(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	july := core.MonthYear{Year: 2025, Month: time.July}
	aug := july.Next()

	apply(t, r, july, core.DeltaSet{"T1": {IncomeCents: 100}, "T2": {ExpenseCents: 50}})
	apply(t, r, aug, core.DeltaSet{"T1": {IncomeCents: 200}})

	all, err := r.ListBalanceSheets(ctx, "", core.MonthYear{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all sheets = %d, want 3", len(all))
	}

	t1, err := r.ListBalanceSheets(ctx, "T1", core.MonthYear{})
	if err != nil {
		t.Fatal(err)
	}
	if len(t1) != 2 {
		t.Fatalf("T1 sheets = %d, want 2", len(t1))
	}
	// Ordered by apartment then month.
	if t1[0].MonthYear != july || t1[1].MonthYear != aug {
		t.Fatalf("order = %v, %v", t1[0].MonthYear, t1[1].MonthYear)
	}

	julyOnly, err := r.ListBalanceSheets(ctx, "", july)
	if err != nil {
		t.Fatal(err)
	}
	if len(julyOnly) != 2 {
		t.Fatalf("july sheets = %d, want 2", len(julyOnly))
	}

	both, err := r.ListBalanceSheets(ctx, "T2", july)
	if err != nil {
		t.Fatal(err)
	}
	if len(both) != 1 || both[0].TotalExpenses.Cents != 50 {
		t.Fatalf("filtered = %+v", both)
	}
}
