// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/precifica/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: verr.Error(),
			Fields: verr.Fields,
		})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidInput):
		Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, shared.ErrInvalidPlanConfig):
		Problem(w, http.StatusBadRequest, "Invalid Payment Plan", err.Error())
	case errors.Is(err, shared.ErrInvalidTaxRate):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Tax Rate", err.Error())
	case errors.Is(err, shared.ErrNoReferenceData):
		Problem(w, http.StatusUnprocessableEntity, "No Reference Data", err.Error())
	case errors.Is(err, shared.ErrPeriodClosed):
		Problem(w, http.StatusConflict, "Period Closed", err.Error())
	case errors.Is(err, shared.ErrInvalidPeriodTransition):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrProfileNotSaved):
		Problem(w, http.StatusConflict, "Profile Not Saved", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// StatusOf returns the status RespondError would write for err.
func StatusOf(err error) int {
	var verr *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr), errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidPlanConfig):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidTaxRate), errors.Is(err, shared.ErrNoReferenceData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrPeriodClosed), errors.Is(err, shared.ErrInvalidPeriodTransition),
		errors.Is(err, shared.ErrProfileNotSaved), errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
