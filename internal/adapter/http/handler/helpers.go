package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/coster/internal/adapter/http/dto"
	"github.com/iho/coster/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status mapDomainError picks for it.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, mapDomainError(err), message, err.Error())
}

// decodeAndValidate decodes a JSON body into req and checks its validate
// tags. It writes a 400 response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}

	if fields := dto.Validate(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:  "validation failed",
			Fields: fields,
		})
		return false
	}

	return true
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrTabNotFound),
		errors.Is(err, domain.ErrUserNotOnTab),
		errors.Is(err, domain.ErrExpenseNotOnTab),
		errors.Is(err, domain.ErrUserAccountNotOnTab),
		errors.Is(err, domain.ErrCategoryAccountNotOnTab):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTabAlreadyExists),
		errors.Is(err, domain.ErrUserAlreadyOnTab),
		errors.Is(err, domain.ErrExpenseAlreadyOnTab):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrTooManyUsers),
		errors.Is(err, domain.ErrNoParticipants),
		errors.Is(err, domain.ErrDuplicateParticipant),
		errors.Is(err, domain.ErrEmptyCategory),
		errors.Is(err, domain.ErrSameUser):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrNoExchangeRate),
		errors.Is(err, domain.ErrInvalidAccountStatus),
		errors.Is(err, domain.ErrUnbalancedTransaction),
		errors.Is(err, domain.ErrInconsistentLedger),
		errors.Is(err, domain.ErrUnbalancedDifferences),
		errors.Is(err, domain.ErrSettlementMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// tabIDParam returns the {id} URL parameter.
func tabIDParam(r *http.Request) domain.TabID {
	return domain.TabID(chi.URLParam(r, "id"))
}

// int64Param parses a numeric URL parameter.
func int64Param(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}
