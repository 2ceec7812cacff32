// Package ledger implements the apartment ledger engine: delta computation
// from shared-expense and payment records, reconciliation on edit and
// delete, settlement linking, and recurring obligation generation. All
// balance-sheet math funnels through a single strategy-dispatched delta
// calculator so collaborators depend on one engine, not on re-derivations
// of the math.
package ledger

import (
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

// Strategy encapsulates the per-category delta-calculation rule for a
// ledger entry. Implementations must be stateless.
type Strategy interface {
	Name() string

	// CanHandle reports whether this strategy applies to the entry.
	CanHandle(entry core.LedgerEntry, cat core.Category) bool

	// Compute derives the target month and the per-apartment deltas for
	// the entry in its current state.
	Compute(entry core.LedgerEntry, cat core.Category) (core.MonthYear, core.DeltaSet)
}

// Registry resolves the strategy for an entry. It is a constructed value
// passed into the engine, never a package-level singleton, so engines stay
// testable in isolation.
type Registry struct {
	strategies []Strategy
}

// NewRegistry returns a registry with the built-in strategies. The
// standard strategy is registered first and therefore acts as the
// always-matching fallback; the no-split strategy is tried before it.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(StandardStrategy{})
	r.Register(NoSplitStrategy{})
	return r
}

// Register adds a strategy. Strategies registered later take precedence.
func (r *Registry) Register(s Strategy) {
	r.strategies = append(r.strategies, s)
}

// Resolve returns the most recently registered strategy whose CanHandle
// accepts the entry. With the standard fallback in place a nil result is
// impossible; hitting it means the registry was constructed by hand
// without the fallback, which is a programming error.
func (r *Registry) Resolve(entry core.LedgerEntry, cat core.Category) Strategy {
	for i := len(r.strategies) - 1; i >= 0; i-- {
		if r.strategies[i].CanHandle(entry, cat) {
			return r.strategies[i]
		}
	}
	panic("ledger: no strategy matched; registry is missing the standard fallback")
}

// StandardStrategy implements the flat per-head share rule: every owing
// apartment that has not yet settled carries PerApartmentShare as expense,
// and the paying apartment is credited the sum of those outstanding
// shares. The payer itself is excluded from both sides even when listed
// among the owing apartments.
type StandardStrategy struct{}

func (StandardStrategy) Name() string { return "standard" }

func (StandardStrategy) CanHandle(core.LedgerEntry, core.Category) bool { return true }

func (StandardStrategy) Compute(entry core.LedgerEntry, _ core.Category) (core.MonthYear, core.DeltaSet) {
	month := core.MonthYearOf(entry.Date.Time)
	deltas := make(core.DeltaSet)

	paid := make(map[string]bool, len(entry.PaidByApartments))
	for _, apt := range entry.PaidByApartments {
		paid[apt] = true
	}

	share := entry.PerApartmentShare.Cents
	seen := make(map[string]bool, len(entry.OwedByApartments))
	outstanding := int64(0)
	for _, apt := range entry.OwedByApartments {
		if seen[apt] {
			continue
		}
		seen[apt] = true
		if apt == entry.PaidByApartment || paid[apt] {
			continue
		}
		deltas.Add(apt, core.Delta{ExpenseCents: share})
		outstanding++
	}

	// Conservation: the payer's income credit equals the sum of the
	// expense shares posted above.
	if outstanding > 0 && share > 0 {
		deltas.Add(entry.PaidByApartment, core.Delta{IncomeCents: share * outstanding})
	}

	return month, deltas
}

// NoSplitStrategy handles categories flagged NoSplit: the expense is not
// shared, so the whole amount lands on the paying apartment's expenses and
// no obligation is raised against anyone else.
type NoSplitStrategy struct{}

func (NoSplitStrategy) Name() string { return "no-split" }

func (NoSplitStrategy) CanHandle(_ core.LedgerEntry, cat core.Category) bool {
	return cat.NoSplit
}

func (NoSplitStrategy) Compute(entry core.LedgerEntry, _ core.Category) (core.MonthYear, core.DeltaSet) {
	month := core.MonthYearOf(entry.Date.Time)
	deltas := make(core.DeltaSet)
	deltas.Add(entry.PaidByApartment, core.Delta{ExpenseCents: entry.Amount.Cents})
	return month, deltas
}
