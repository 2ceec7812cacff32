package ledger

import (
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

// paymentDeltas computes the balance-sheet effect of one payment record in
// isolation. Only settled payments (approved or paid) carry weight; a
// pending, rejected, failed or cancelled record has no ledger effect yet.
func paymentDeltas(p core.PaymentRecord) core.DeltaSet {
	deltas := make(core.DeltaSet)
	if !p.Status.Settled() {
		return deltas
	}
	switch p.Kind {
	case core.PaymentIncome:
		deltas.Add(p.ApartmentID, core.Delta{IncomeCents: p.Amount.Cents})
	case core.PaymentExpense:
		deltas.Add(p.ApartmentID, core.Delta{ExpenseCents: p.Amount.Cents})
	}
	return deltas
}

// settlementApplies mirrors the reconciler's negate-old/apply-new shape
// for payment-status transitions. Either side may be nil: creation has no
// old state, deletion has no new state. Same-month transitions merge into
// one apply so negative totals never surface transiently; a cross-month
// move splits into two applies.
func settlementApplies(old, new *core.PaymentRecord) []core.MonthDeltas {
	var (
		oldDeltas = make(core.DeltaSet)
		newDeltas = make(core.DeltaSet)
		oldMonth  core.MonthYear
		newMonth  core.MonthYear
	)
	if old != nil {
		oldDeltas = paymentDeltas(*old)
		oldMonth = old.MonthYear
	}
	if new != nil {
		newDeltas = paymentDeltas(*new)
		newMonth = new.MonthYear
	}

	return reconcile(oldMonth, oldDeltas, newMonth, newDeltas)
}

// reconcile turns a before/after pair of delta computations into the
// minimal list of month applies: negate the old state, apply the new one,
// merging when both land on the same month. Empty applies are dropped.
func reconcile(oldMonth core.MonthYear, oldDeltas core.DeltaSet, newMonth core.MonthYear, newDeltas core.DeltaSet) []core.MonthDeltas {
	var applies []core.MonthDeltas
	switch {
	case len(oldDeltas) == 0 && len(newDeltas) == 0:
		// Nothing ledgered on either side.
	case len(oldDeltas) == 0:
		applies = append(applies, core.MonthDeltas{Month: newMonth, Deltas: newDeltas})
	case len(newDeltas) == 0:
		applies = append(applies, core.MonthDeltas{Month: oldMonth, Deltas: oldDeltas.Negate()})
	case oldMonth == newMonth:
		merged := core.Merge(oldDeltas.Negate(), newDeltas)
		if len(merged) > 0 {
			applies = append(applies, core.MonthDeltas{Month: oldMonth, Deltas: merged})
		}
	default:
		applies = append(applies,
			core.MonthDeltas{Month: oldMonth, Deltas: oldDeltas.Negate()},
			core.MonthDeltas{Month: newMonth, Deltas: newDeltas},
		)
	}
	return applies
}
