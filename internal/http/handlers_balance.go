package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

type balanceSheetResponse struct {
	ID            string `json:"id"`
	ApartmentID   string `json:"apartment_id"`
	MonthYear     string `json:"month_year"`
	OpeningCents  int64  `json:"opening_balance_cents"`
	IncomeCents   int64  `json:"total_income_cents"`
	ExpensesCents int64  `json:"total_expenses_cents"`
	ClosingCents  int64  `json:"closing_balance_cents"`
	Version       int64  `json:"version"`
}

func toBalanceSheetResponses(sheets []core.BalanceSheet) []balanceSheetResponse {
	out := make([]balanceSheetResponse, len(sheets))
	for i, b := range sheets {
		out[i] = balanceSheetResponse{
			ID:            b.ID(),
			ApartmentID:   b.ApartmentID,
			MonthYear:     b.MonthYear.String(),
			OpeningCents:  b.OpeningBalance.Cents,
			IncomeCents:   b.TotalIncome.Cents,
			ExpensesCents: b.TotalExpenses.Cents,
			ClosingCents:  b.ClosingBalance.Cents,
			Version:       b.Version,
		}
	}
	return out
}

func (s *Server) handleListBalanceSheets(w http.ResponseWriter, r *http.Request) {
	apartmentID := strings.TrimSpace(r.URL.Query().Get("apartment"))

	var month core.MonthYear
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		parsed, err := core.ParseMonthYear(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
			return
		}
		month = parsed
	}

	cacheKey := apartmentID + "|" + month.String()
	if sheets, ok := s.balanceCache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, toBalanceSheetResponses(sheets))
		return
	}

	sheets, err := s.engine.GetBalanceSheets(r.Context(), apartmentID, month)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	s.balanceCache.Set(cacheKey, sheets)
	respondJSON(w, http.StatusOK, toBalanceSheetResponses(sheets))
}

func (s *Server) handleGenerateObligations(w http.ResponseWriter, r *http.Request) {
	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))
	month := core.MonthYearOf(time.Now().UTC())
	if monthStr != "" {
		parsed, err := core.ParseMonthYear(monthStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
			return
		}
		month = parsed
	}

	created, err := s.engine.GenerateObligationsForMonth(r.Context(), month)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	s.invalidateBalances()
	out := make([]paymentResponse, len(created))
	for i, p := range created {
		out[i] = toPaymentResponse(p)
	}
	respondJSON(w, http.StatusOK, out)
}
