package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a concurrent write won the race against the caller.
	ErrConflict = errors.New("conflicting update")
	// ErrInvalidInput indicates negative quantities, prices or rates.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTaxRate indicates combined taxes of 100% or more, which leaves the markup undefined.
	ErrInvalidTaxRate = errors.New("invalid tax rate")
	// ErrNoReferenceData indicates no usable prior period for historical derivation.
	ErrNoReferenceData = errors.New("no reference data")
	// ErrPeriodClosed indicates a write against a closed markup period.
	ErrPeriodClosed = errors.New("period closed")
	// ErrInvalidPlanConfig indicates out of range payment plan parameters.
	ErrInvalidPlanConfig = errors.New("invalid payment plan config")
	// ErrProfileNotSaved is returned when closing a profile that was never persisted.
	ErrProfileNotSaved = errors.New("profile not saved")
)
