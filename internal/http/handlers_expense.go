package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/ledger"
)

// expenseRequest is the wire form of a shared-expense entry. Amounts are
// decimal strings; dates are YYYY-MM-DD.
type expenseRequest struct {
	Amount            string   `json:"amount"`
	Date              string   `json:"date"`
	CategoryID        string   `json:"category_id,omitempty"`
	PaidByApartment   string   `json:"paid_by_apartment"`
	OwedByApartments  []string `json:"owed_by_apartments"`
	PerApartmentShare string   `json:"per_apartment_share"`
	PaidByApartments  []string `json:"paid_by_apartments,omitempty"`
}

type expenseResponse struct {
	ID               string   `json:"id"`
	AmountCents      int64    `json:"amount_cents"`
	Date             string   `json:"date"`
	CategoryID       string   `json:"category_id,omitempty"`
	PaidByApartment  string   `json:"paid_by_apartment"`
	OwedByApartments []string `json:"owed_by_apartments"`
	PerShareCents    int64    `json:"per_apartment_share_cents"`
	PaidByApartments []string `json:"paid_by_apartments"`
}

func toExpenseResponse(e core.LedgerEntry) expenseResponse {
	paid := e.PaidByApartments
	if paid == nil {
		paid = []string{}
	}
	return expenseResponse{
		ID:               e.ID,
		AmountCents:      e.Amount.Cents,
		Date:             e.Date.Format("2006-01-02"),
		CategoryID:       e.CategoryID,
		PaidByApartment:  e.PaidByApartment,
		OwedByApartments: e.OwedByApartments,
		PerShareCents:    e.PerApartmentShare.Cents,
		PaidByApartments: paid,
	}
}

func (req expenseRequest) toEntry() (core.LedgerEntry, error) {
	amountCents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	shareCents := int64(0)
	if req.PerApartmentShare != "" {
		if shareCents, err = core.ParseDecimalToCents(req.PerApartmentShare); err != nil {
			return core.LedgerEntry{}, err
		}
	}
	t, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.LedgerEntry{}, core.ErrInvalidDate
	}
	return core.LedgerEntry{
		Amount:            core.Money{Cents: amountCents},
		Date:              core.Date{Time: t},
		CategoryID:        req.CategoryID,
		PaidByApartment:   req.PaidByApartment,
		OwedByApartments:  req.OwedByApartments,
		PerApartmentShare: core.Money{Cents: shareCents},
		PaidByApartments:  req.PaidByApartments,
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, err := req.toEntry()
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	created, err := s.engine.CreateExpense(r.Context(), entry)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	s.invalidateBalances()
	respondJSON(w, http.StatusCreated, toExpenseResponse(created))
}

// expenseUpdateRequest carries the fields an edit may touch; absent fields
// stay unchanged.
type expenseUpdateRequest struct {
	Amount            *string   `json:"amount,omitempty"`
	Date              *string   `json:"date,omitempty"`
	CategoryID        *string   `json:"category_id,omitempty"`
	PaidByApartment   *string   `json:"paid_by_apartment,omitempty"`
	OwedByApartments  *[]string `json:"owed_by_apartments,omitempty"`
	PerApartmentShare *string   `json:"per_apartment_share,omitempty"`
	PaidByApartments  *[]string `json:"paid_by_apartments,omitempty"`
}

func (req expenseUpdateRequest) toUpdate() (ledger.ExpenseUpdate, error) {
	var u ledger.ExpenseUpdate
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			return u, err
		}
		u.Amount = &core.Money{Cents: cents}
	}
	if req.Date != nil {
		t, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return u, core.ErrInvalidDate
		}
		u.Date = &core.Date{Time: t}
	}
	if req.CategoryID != nil {
		u.CategoryID = req.CategoryID
	}
	if req.PaidByApartment != nil {
		u.PaidByApartment = req.PaidByApartment
	}
	if req.OwedByApartments != nil {
		u.OwedByApartments = req.OwedByApartments
	}
	if req.PerApartmentShare != nil {
		cents, err := core.ParseDecimalToCents(*req.PerApartmentShare)
		if err != nil {
			return u, err
		}
		u.PerApartmentShare = &core.Money{Cents: cents}
	}
	if req.PaidByApartments != nil {
		u.PaidByApartments = req.PaidByApartments
	}
	return u, nil
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req expenseUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	if err := s.engine.UpdateExpense(r.Context(), id, update); err != nil {
		respondEngineError(w, r, err)
		return
	}

	s.invalidateBalances()
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.DeleteExpense(r.Context(), id); err != nil {
		respondEngineError(w, r, err)
		return
	}

	s.invalidateBalances()
	respondJSON(w, http.StatusNoContent, nil)
}
