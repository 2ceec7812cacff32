package ledger

import (
	"testing"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

func testEntry() core.LedgerEntry {
	return core.LedgerEntry{
		ID:                "e1",
		Amount:            core.Money{Cents: 30000},
		Date:              core.NewDate(2025, 7, 10),
		PaidByApartment:   "G1",
		OwedByApartments:  []string{"F1", "F2"},
		PerApartmentShare: core.Money{Cents: 15000},
	}
}

func TestStandardStrategy_Compute(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.LedgerEntry)
		want   core.DeltaSet
	}{
		{
			name:   "two owing apartments, payer credited the sum",
			mutate: func(e *core.LedgerEntry) {},
			want: core.DeltaSet{
				"F1": {ExpenseCents: 15000},
				"F2": {ExpenseCents: 15000},
				"G1": {IncomeCents: 30000},
			},
		},
		{
			name: "payer listed among owing is excluded from both sides",
			mutate: func(e *core.LedgerEntry) {
				e.OwedByApartments = []string{"G1", "F1", "F2"}
			},
			want: core.DeltaSet{
				"F1": {ExpenseCents: 15000},
				"F2": {ExpenseCents: 15000},
				"G1": {IncomeCents: 30000},
			},
		},
		{
			name: "already-settled apartment is skipped",
			mutate: func(e *core.LedgerEntry) {
				e.PaidByApartments = []string{"F1"}
			},
			want: core.DeltaSet{
				"F2": {ExpenseCents: 15000},
				"G1": {IncomeCents: 15000},
			},
		},
		{
			name: "duplicate owing ids count once",
			mutate: func(e *core.LedgerEntry) {
				e.OwedByApartments = []string{"F1", "F1", "F2"}
			},
			want: core.DeltaSet{
				"F1": {ExpenseCents: 15000},
				"F2": {ExpenseCents: 15000},
				"G1": {IncomeCents: 30000},
			},
		},
		{
			name: "everyone settled posts nothing",
			mutate: func(e *core.LedgerEntry) {
				e.PaidByApartments = []string{"F1", "F2"}
			},
			want: core.DeltaSet{},
		},
		{
			name: "zero share posts no income",
			mutate: func(e *core.LedgerEntry) {
				e.PerApartmentShare = core.Money{}
			},
			want: core.DeltaSet{
				"F1": {},
				"F2": {},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := testEntry()
			tt.mutate(&entry)
			month, got := StandardStrategy{}.Compute(entry, core.Category{})
			if month != (core.MonthYear{Year: 2025, Month: 7}) {
				t.Fatalf("month = %v, want 2025-07", month)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("deltas = %v, want %v", got, tt.want)
			}
			for apt, d := range tt.want {
				if got[apt] != d {
					t.Errorf("delta[%s] = %+v, want %+v", apt, got[apt], d)
				}
			}
		})
	}
}

func TestStandardStrategy_Conservation(t *testing.T) {
	// Credited income always equals the sum of posted expense shares, no
	// matter how the owing and settled sets overlap.
	entries := []core.LedgerEntry{
		testEntry(),
		func() core.LedgerEntry {
			e := testEntry()
			e.OwedByApartments = []string{"G1", "F1", "F2", "S1", "S2"}
			e.PaidByApartments = []string{"S2"}
			return e
		}(),
		func() core.LedgerEntry {
			e := testEntry()
			e.PerApartmentShare = core.Money{Cents: 9999}
			e.OwedByApartments = []string{"F1"}
			return e
		}(),
	}
	for _, entry := range entries {
		_, deltas := StandardStrategy{}.Compute(entry, core.Category{})
		var income, expenses int64
		for _, d := range deltas {
			income += d.IncomeCents
			expenses += d.ExpenseCents
		}
		if income != expenses {
			t.Fatalf("income %d != expenses %d for %+v", income, expenses, entry)
		}
	}
}

func TestNoSplitStrategy(t *testing.T) {
	entry := testEntry()
	cat := core.Category{ID: "maintenance", NoSplit: true}

	if !(NoSplitStrategy{}).CanHandle(entry, cat) {
		t.Fatal("no-split category should be handled")
	}
	if (NoSplitStrategy{}).CanHandle(entry, core.Category{}) {
		t.Fatal("plain category should not be handled")
	}

	month, deltas := NoSplitStrategy{}.Compute(entry, cat)
	if month != (core.MonthYear{Year: 2025, Month: 7}) {
		t.Fatalf("month = %v", month)
	}
	if len(deltas) != 1 {
		t.Fatalf("deltas = %v, want only the payer", deltas)
	}
	if got := deltas["G1"]; got != (core.Delta{ExpenseCents: 30000}) {
		t.Fatalf("payer delta = %+v", got)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	entry := testEntry()
	if got := r.Resolve(entry, core.Category{}).Name(); got != "standard" {
		t.Fatalf("plain category resolved %q, want standard", got)
	}
	if got := r.Resolve(entry, core.Category{NoSplit: true}).Name(); got != "no-split" {
		t.Fatalf("no-split category resolved %q, want no-split", got)
	}
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(catchAllStrategy{})
	if got := r.Resolve(testEntry(), core.Category{}).Name(); got != "catch-all" {
		t.Fatalf("resolved %q, want the most recently registered strategy", got)
	}
}

func TestRegistry_MissingFallbackPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for a registry without a matching strategy")
		}
	}()
	r := &Registry{}
	r.Register(NoSplitStrategy{})
	r.Resolve(testEntry(), core.Category{})
}

type catchAllStrategy struct{}

func (catchAllStrategy) Name() string                                   { return "catch-all" }
func (catchAllStrategy) CanHandle(core.LedgerEntry, core.Category) bool { return true }
func (catchAllStrategy) Compute(e core.LedgerEntry, _ core.Category) (core.MonthYear, core.DeltaSet) {
	return core.MonthYearOf(e.Date.Time), core.DeltaSet{}
}
