package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	r, err := NewRepository(filepath.Join(t.TempDir(), "ledger.db"), DefaultOptions())
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func testStorageEntry() core.LedgerEntry {
	return core.LedgerEntry{
		ID:                "e1",
		Amount:            core.Money{Cents: 30000},
		Date:              core.NewDate(2025, 7, 10),
		CategoryID:        "",
		PaidByApartment:   "G1",
		OwedByApartments:  []string{"F1", "F2"},
		PerApartmentShare: core.Money{Cents: 15000},
		PaidByApartments:  []string{"F2"},
	}
}

func testStoragePayment() core.PaymentRecord {
	return core.PaymentRecord{
		ID:          "p1",
		PayerID:     "alice",
		ApartmentID: "T1",
		Kind:        core.PaymentExpense,
		Amount:      core.Money{Cents: 4200},
		Status:      core.PaymentPending,
		MonthYear:   core.MonthYear{Year: 2025, Month: time.July},
		Reason:      "water bill",
		CreatedAt:   time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestEntryRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	want := testStorageEntry()

	if err := r.CreateEntryLedgered(ctx, want, nil); err != nil {
		t.Fatalf("CreateEntryLedgered: %v", err)
	}
	got, err := r.GetEntry(ctx, "e1")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Amount != want.Amount || got.PaidByApartment != want.PaidByApartment ||
		got.PerApartmentShare != want.PerApartmentShare {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if !got.Date.Equal(want.Date.Time) {
		t.Fatalf("date = %v, want %v", got.Date, want.Date)
	}
	if len(got.OwedByApartments) != 2 || got.OwedByApartments[0] != "F1" {
		t.Fatalf("owed = %v", got.OwedByApartments)
	}
	if len(got.PaidByApartments) != 1 || got.PaidByApartments[0] != "F2" {
		t.Fatalf("paid = %v", got.PaidByApartments)
	}

	if _, err := r.GetEntry(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing entry expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEntryLedgered_NotFound(t *testing.T) {
	r := newTestRepo(t)
	err := r.UpdateEntryLedgered(context.Background(), testStorageEntry(), nil)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEntryLedgered_RemovesAndApplies(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	july := core.MonthYear{Year: 2025, Month: time.July}

	applies := []core.MonthDeltas{{Month: july, Deltas: core.DeltaSet{"G1": {IncomeCents: 1000}}}}
	if err := r.CreateEntryLedgered(ctx, testStorageEntry(), applies); err != nil {
		t.Fatal(err)
	}
	reverse := []core.MonthDeltas{{Month: july, Deltas: core.DeltaSet{"G1": {IncomeCents: -1000}}}}
	if err := r.DeleteEntryLedgered(ctx, "e1", reverse); err != nil {
		t.Fatalf("DeleteEntryLedgered: %v", err)
	}

	if _, err := r.GetEntry(ctx, "e1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("entry should be gone, got %v", err)
	}
	b, err := r.GetBalanceSheet(ctx, "G1", july)
	if err != nil {
		t.Fatal(err)
	}
	if b.TotalIncome.Cents != 0 || b.ClosingBalance.Cents != 0 {
		t.Fatalf("sheet not reversed: %+v", b)
	}
}

func TestPaymentRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	want := testStoragePayment()

	if err := r.CreatePaymentLedgered(ctx, want, nil); err != nil {
		t.Fatalf("CreatePaymentLedgered: %v", err)
	}
	got, err := r.GetPayment(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if got.Kind != want.Kind || got.Status != want.Status || got.Amount != want.Amount {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got.MonthYear != want.MonthYear {
		t.Fatalf("month = %v, want %v", got.MonthYear, want.MonthYear)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if got.Reason != "water bill" || got.PayerID != "alice" {
		t.Fatalf("got %+v", got)
	}
}

func TestUpdatePaymentLedgered(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	p := testStoragePayment()

	if err := r.CreatePaymentLedgered(ctx, p, nil); err != nil {
		t.Fatal(err)
	}
	p.Status = core.PaymentApproved
	july := p.MonthYear
	applies := []core.MonthDeltas{{Month: july, Deltas: core.DeltaSet{"T1": {ExpenseCents: 4200}}}}
	if err := r.UpdatePaymentLedgered(ctx, p, applies); err != nil {
		t.Fatalf("UpdatePaymentLedgered: %v", err)
	}

	got, err := r.GetPayment(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != core.PaymentApproved {
		t.Fatalf("status = %s", got.Status)
	}
	b, err := r.GetBalanceSheet(ctx, "T1", july)
	if err != nil {
		t.Fatal(err)
	}
	if b.TotalExpenses.Cents != 4200 || b.ClosingBalance.Cents != -4200 {
		t.Fatalf("sheet = %+v", b)
	}
}

func TestCreateObligation_Idempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	base := testStoragePayment()
	base.CategoryID = "cat-maint"

	created, err := r.CreateObligation(ctx, base)
	if err != nil || !created {
		t.Fatalf("first insert created=%v err=%v", created, err)
	}

	dup := base
	dup.ID = "p2"
	created, err = r.CreateObligation(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if created {
		t.Fatal("duplicate (apartment, category, month) should not create")
	}

	nextMonth := base
	nextMonth.ID = "p3"
	nextMonth.MonthYear = base.MonthYear.Next()
	created, err = r.CreateObligation(ctx, nextMonth)
	if err != nil || !created {
		t.Fatalf("next month created=%v err=%v", created, err)
	}
}

func TestManualPaymentsAreNotDeduplicated(t *testing.T) {
	// The uniqueness index only covers generated obligations; manual
	// payments have no category and may repeat per month.
	r := newTestRepo(t)
	ctx := context.Background()

	first := testStoragePayment()
	second := testStoragePayment()
	second.ID = "p2"

	if err := r.CreatePaymentLedgered(ctx, first, nil); err != nil {
		t.Fatal(err)
	}
	if err := r.CreatePaymentLedgered(ctx, second, nil); err != nil {
		t.Fatalf("second manual payment in same month rejected: %v", err)
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	cat := core.Category{
		ID:             "cat-maint",
		Name:           "Maintenance Fee",
		NoSplit:        false,
		IsPaymentEvent: true,
		MonthlyAmount:  core.Money{Cents: 25000},
		DayOfMonth:     5,
		AutoGenerate:   true,
	}
	if err := r.UpsertCategory(ctx, cat); err != nil {
		t.Fatalf("UpsertCategory: %v", err)
	}
	got, err := r.GetCategory(ctx, "cat-maint")
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if got != cat {
		t.Fatalf("got %+v, want %+v", got, cat)
	}

	// Upsert replaces in place.
	cat.MonthlyAmount = core.Money{Cents: 27500}
	if err := r.UpsertCategory(ctx, cat); err != nil {
		t.Fatal(err)
	}
	got, err = r.GetCategory(ctx, "cat-maint")
	if err != nil {
		t.Fatal(err)
	}
	if got.MonthlyAmount.Cents != 27500 {
		t.Fatalf("amount = %d after upsert", got.MonthlyAmount.Cents)
	}

	if err := r.UpsertCategory(ctx, core.Category{ID: "cat-misc", Name: "Misc"}); err != nil {
		t.Fatal(err)
	}
	events, err := r.ListPaymentEventCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != "cat-maint" {
		t.Fatalf("payment-event categories = %+v", events)
	}
}

func TestApartmentRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	a := core.Apartment{ID: "T1", Name: "Tower 1", Members: []string{"bob", "alice"}}
	if err := r.UpsertApartment(ctx, a); err != nil {
		t.Fatalf("UpsertApartment: %v", err)
	}
	// Member order is positional, not alphabetical.
	got, err := r.ListApartments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Members[0] != "bob" || got[0].Members[1] != "alice" {
		t.Fatalf("apartments = %+v", got)
	}

	a.Members = []string{"carol"}
	if err := r.UpsertApartment(ctx, a); err != nil {
		t.Fatal(err)
	}
	got, err = r.ListApartments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got[0].Members) != 1 || got[0].Members[0] != "carol" {
		t.Fatalf("members not replaced: %+v", got[0].Members)
	}
}
