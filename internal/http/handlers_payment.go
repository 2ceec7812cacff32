package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/ledger"
)

type paymentRequest struct {
	PayerID     string `json:"payer_id,omitempty"`
	PayeeID     string `json:"payee_id,omitempty"`
	ApartmentID string `json:"apartment_id"`
	CategoryID  string `json:"category_id,omitempty"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	MonthYear   string `json:"month_year"`
	ExpenseID   string `json:"expense_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type paymentResponse struct {
	ID          string `json:"id"`
	PayerID     string `json:"payer_id,omitempty"`
	PayeeID     string `json:"payee_id,omitempty"`
	ApartmentID string `json:"apartment_id"`
	CategoryID  string `json:"category_id,omitempty"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
	MonthYear   string `json:"month_year"`
	ExpenseID   string `json:"expense_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func toPaymentResponse(p core.PaymentRecord) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		PayerID:     p.PayerID,
		PayeeID:     p.PayeeID,
		ApartmentID: p.ApartmentID,
		CategoryID:  p.CategoryID,
		Kind:        string(p.Kind),
		AmountCents: p.Amount.Cents,
		Status:      string(p.Status),
		MonthYear:   p.MonthYear.String(),
		ExpenseID:   p.ExpenseID,
		Reason:      p.Reason,
	}
}

func (req paymentRequest) toRecord() (core.PaymentRecord, error) {
	amountCents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	month, err := core.ParseMonthYear(req.MonthYear)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	status := core.PaymentStatus(req.Status)
	if req.Status == "" {
		status = core.PaymentPending
	}
	return core.PaymentRecord{
		PayerID:     req.PayerID,
		PayeeID:     req.PayeeID,
		ApartmentID: req.ApartmentID,
		CategoryID:  req.CategoryID,
		Kind:        core.PaymentKind(req.Kind),
		Amount:      core.Money{Cents: amountCents},
		Status:      status,
		MonthYear:   month,
		ExpenseID:   req.ExpenseID,
		Reason:      req.Reason,
	}, nil
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	record, err := req.toRecord()
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	created, err := s.engine.CreatePayment(r.Context(), record)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	s.invalidateBalances()
	respondJSON(w, http.StatusCreated, toPaymentResponse(created))
}

type paymentUpdateRequest struct {
	Status    *string `json:"status,omitempty"`
	Amount    *string `json:"amount,omitempty"`
	Kind      *string `json:"kind,omitempty"`
	MonthYear *string `json:"month_year,omitempty"`
	ExpenseID *string `json:"expense_id,omitempty"`
	Reason    *string `json:"reason,omitempty"`
}

func (req paymentUpdateRequest) toUpdate() (ledger.PaymentUpdate, error) {
	var u ledger.PaymentUpdate
	if req.Status != nil {
		status := core.PaymentStatus(*req.Status)
		u.Status = &status
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			return u, err
		}
		u.Amount = &core.Money{Cents: cents}
	}
	if req.Kind != nil {
		kind := core.PaymentKind(*req.Kind)
		u.Kind = &kind
	}
	if req.MonthYear != nil {
		month, err := core.ParseMonthYear(*req.MonthYear)
		if err != nil {
			return u, err
		}
		u.MonthYear = &month
	}
	if req.ExpenseID != nil {
		u.ExpenseID = req.ExpenseID
	}
	if req.Reason != nil {
		u.Reason = req.Reason
	}
	return u, nil
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req paymentUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	if err := s.engine.UpdatePayment(r.Context(), id, update); err != nil {
		respondEngineError(w, r, err)
		return
	}

	s.invalidateBalances()
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.DeletePayment(r.Context(), id); err != nil {
		respondEngineError(w, r, err)
		return
	}

	s.invalidateBalances()
	respondJSON(w, http.StatusNoContent, nil)
}
