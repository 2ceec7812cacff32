package core

// Delta is the signed change to one apartment's monthly income and expense
// totals caused by a single ledger entry or settlement event.
type Delta struct {
	IncomeCents  int64
	ExpenseCents int64
}

func (d Delta) IsZero() bool {
	return d.IncomeCents == 0 && d.ExpenseCents == 0
}

// Negate flips the sign of both components.
func (d Delta) Negate() Delta {
	return Delta{IncomeCents: -d.IncomeCents, ExpenseCents: -d.ExpenseCents}
}

// DeltaSet maps apartment ids to their deltas for one month.
type DeltaSet map[string]Delta

// Add accumulates a delta onto the apartment's existing one.
func (s DeltaSet) Add(apartmentID string, d Delta) {
	cur := s[apartmentID]
	s[apartmentID] = Delta{
		IncomeCents:  cur.IncomeCents + d.IncomeCents,
		ExpenseCents: cur.ExpenseCents + d.ExpenseCents,
	}
}

// Negate returns a new set with every delta negated.
func (s DeltaSet) Negate() DeltaSet {
	out := make(DeltaSet, len(s))
	for apt, d := range s {
		out[apt] = d.Negate()
	}
	return out
}

// Merge returns the componentwise sum of two delta sets. Apartments whose
// merged delta nets to zero are dropped so that a no-op edit touches no rows.
func Merge(a, b DeltaSet) DeltaSet {
	out := make(DeltaSet, len(a)+len(b))
	for apt, d := range a {
		out.Add(apt, d)
	}
	for apt, d := range b {
		out.Add(apt, d)
	}
	for apt, d := range out {
		if d.IsZero() {
			delete(out, apt)
		}
	}
	return out
}

// MonthDeltas is the unit of ledger application: one month key and the
// per-apartment deltas to post to it.
type MonthDeltas struct {
	Month  MonthYear
	Deltas DeltaSet
}
