package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/ledger"
	applog "github.com/deepak-sekarbabu-coder/apargo-sub000/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondEngineError maps engine errors onto HTTP statuses without leaking
// internals: not-found is the caller's problem, validation is unprocessable,
// unknown state tells the caller to reconcile before retrying.
func respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		respondError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, ledger.ErrUnknownState):
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger operation in unknown state", "error", err)
		respondError(w, http.StatusServiceUnavailable, "ledger state unknown, retry after reconciliation")
	case isValidationErr(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger operation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationErr(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidMonth) ||
		errors.Is(err, core.ErrEmptyApartment) ||
		errors.Is(err, core.ErrNoOwedApartments) ||
		errors.Is(err, core.ErrInvalidStatus) ||
		errors.Is(err, core.ErrInvalidKind)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// extractClientIP prefers the first X-Forwarded-For hop, falling back to
// the socket address.
func extractClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
