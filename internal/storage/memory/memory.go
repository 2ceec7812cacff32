// Package memory provides a map-backed store used by tests and local
// development. It keeps the same transactional semantics as the SQLite
// repository: a ledgered write either lands the record and all its
// balance deltas or nothing at all.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

type Store struct {
	mu         sync.Mutex
	entries    map[string]core.LedgerEntry
	payments   map[string]core.PaymentRecord
	categories map[string]core.Category
	apartments map[string]core.Apartment
	sheets     map[string]core.BalanceSheet
}

func New() *Store {
	return &Store{
		entries:    make(map[string]core.LedgerEntry),
		payments:   make(map[string]core.PaymentRecord),
		categories: make(map[string]core.Category),
		apartments: make(map[string]core.Apartment),
		sheets:     make(map[string]core.BalanceSheet),
	}
}

// Seed helpers for tests and local bootstrapping.

func (s *Store) PutCategory(c core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

func (s *Store) PutApartment(a core.Apartment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apartments[a.ID] = a
}

func (s *Store) GetEntry(_ context.Context, id string) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.LedgerEntry{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) CreateEntryLedgered(_ context.Context, entry core.LedgerEntry, applies []core.MonthDeltas) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	s.applyAll(applies)
	return nil
}

func (s *Store) UpdateEntryLedgered(_ context.Context, entry core.LedgerEntry, applies []core.MonthDeltas) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return core.ErrNotFound
	}
	s.entries[entry.ID] = entry
	s.applyAll(applies)
	return nil
}

func (s *Store) DeleteEntryLedgered(_ context.Context, id string, applies []core.MonthDeltas) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.entries, id)
	s.applyAll(applies)
	return nil
}

func (s *Store) GetPayment(_ context.Context, id string) (core.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return core.PaymentRecord{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreatePaymentLedgered(_ context.Context, p core.PaymentRecord, applies []core.MonthDeltas) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	s.applyAll(applies)
	return nil
}

func (s *Store) UpdatePaymentLedgered(_ context.Context, p core.PaymentRecord, applies []core.MonthDeltas) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		return core.ErrNotFound
	}
	s.payments[p.ID] = p
	s.applyAll(applies)
	return nil
}

func (s *Store) DeletePaymentLedgered(_ context.Context, id string, applies []core.MonthDeltas) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.payments, id)
	s.applyAll(applies)
	return nil
}

// CreateObligation enforces one generated obligation per
// (apartment, category, month); duplicates report created=false.
func (s *Store) CreateObligation(_ context.Context, p core.PaymentRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.CategoryID != "" &&
			existing.ApartmentID == p.ApartmentID &&
			existing.CategoryID == p.CategoryID &&
			existing.MonthYear == p.MonthYear {
			return false, nil
		}
	}
	s.payments[p.ID] = p
	return true, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListPaymentEventCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.IsPaymentEvent {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListApartments(_ context.Context) ([]core.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Apartment
	for _, a := range s.apartments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListBalanceSheets(_ context.Context, apartmentID string, month core.MonthYear) ([]core.BalanceSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BalanceSheet
	for _, b := range s.sheets {
		if apartmentID != "" && b.ApartmentID != apartmentID {
			continue
		}
		if !month.IsZero() && b.MonthYear != month {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ApartmentID != out[j].ApartmentID {
			return out[i].ApartmentID < out[j].ApartmentID
		}
		return out[i].MonthYear.String() < out[j].MonthYear.String()
	})
	return out, nil
}

// Payment returns the stored record directly, bypassing the Store
// interface, for test assertions.
func (s *Store) Payment(id string) (core.PaymentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	return p, ok
}

// ObligationsFor returns generated obligations matching the idempotency
// key, for test assertions.
func (s *Store) ObligationsFor(apartmentID, categoryID string, month core.MonthYear) []core.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PaymentRecord
	for _, p := range s.payments {
		if p.ApartmentID == apartmentID && p.CategoryID == categoryID && p.MonthYear == month {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) applyAll(applies []core.MonthDeltas) {
	for _, a := range applies {
		for apt, d := range a.Deltas {
			if d.IsZero() {
				continue
			}
			s.apply(apt, a.Month, d)
		}
	}
}

// apply mirrors the SQLite repository: a first write to a month seeds the
// opening balance from the previous month's closing balance, and the
// closing balance is always recomputed from the row's own totals.
func (s *Store) apply(apartmentID string, month core.MonthYear, d core.Delta) {
	key := apartmentID + "_" + month.String()
	b, ok := s.sheets[key]
	if !ok {
		b = core.BalanceSheet{
			ApartmentID: apartmentID,
			MonthYear:   month,
		}
		if prev, found := s.sheets[apartmentID+"_"+month.Prev().String()]; found {
			b.OpeningBalance = prev.ClosingBalance
		}
	}
	b.TotalIncome.Cents += d.IncomeCents
	b.TotalExpenses.Cents += d.ExpenseCents
	b.ClosingBalance.Cents = b.OpeningBalance.Cents + b.TotalIncome.Cents - b.TotalExpenses.Cents
	b.Version++
	s.sheets[key] = b
}
