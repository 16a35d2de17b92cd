package httpapi

import (
	"errors"
	"net/http"

	"github.com/mkowalski/budgetd/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// validationResponse carries every violated rule of a rejected request.
type validationResponse struct {
	Error  string                 `json:"error"`
	Errors []errs.ValidationError `json:"errors"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func conflict(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusConflict, msg, "period_closed")
}

// writeDomainErr maps service errors onto HTTP statuses. Collected
// validation errors become a 422 with the full list; the closed-period
// gate on its own is a 409 because the request shape was fine, the
// state just forbids it.
func (s *Server) writeDomainErr(w http.ResponseWriter, err error) {
	var verrs errs.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		toJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation_failed", Errors: verrs})
	case errors.Is(err, errs.ErrPeriodClosed):
		conflict(w, "billing period is closed")
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, "invalid request")
	default:
		s.log.Error("internal error", "err", err)
		writeErr(w, http.StatusInternalServerError, "internal_error", "internal_error")
	}
}
