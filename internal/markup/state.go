package markup

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/precifica/internal/shared"
)

// ApplySource recomputes the profile from src. A closed profile, an invalid tax rate or
// a negative rate leaves every field untouched.
func (p *Profile) ApplySource(src RateSource) error {
	if p.IsClosed() {
		return fmt.Errorf("markup: profile %s: %w", p.Period.Label(), shared.ErrPeriodClosed)
	}
	rates, mode, derivation := src.resolve()
	result, err := Compute(rates)
	if err != nil {
		return err
	}
	p.Rates = rates
	p.Mode = mode
	p.AutoDerivation = derivation
	p.Multiplier = result.Multiplier
	p.BDIPercent = result.BDIPercent
	return nil
}

// SetPeriod moves an open profile to another month.
func (p *Profile) SetPeriod(period shared.Period) error {
	if p.IsClosed() {
		return fmt.Errorf("markup: profile %s: %w", p.Period.Label(), shared.ErrPeriodClosed)
	}
	if err := period.Validate(); err != nil {
		return err
	}
	p.Period = period
	return nil
}

// SetNotes replaces the free-text notes of an open profile.
func (p *Profile) SetNotes(notes string) error {
	if p.IsClosed() {
		return fmt.Errorf("markup: profile %s: %w", p.Period.Label(), shared.ErrPeriodClosed)
	}
	p.Notes = notes
	return nil
}

// Close freezes the profile. Only persisted OPEN profiles can be closed.
func (p *Profile) Close(at time.Time) error {
	if p.ID == 0 {
		return fmt.Errorf("markup: close %s: %w", p.Period.Label(), shared.ErrProfileNotSaved)
	}
	if err := shared.ValidatePeriodTransition(string(p.Status), string(StatusClosed)); err != nil {
		return fmt.Errorf("markup: close profile %d: %w", p.ID, err)
	}
	p.Status = StatusClosed
	closedAt := at
	p.ClosedAt = &closedAt
	return nil
}

// Reopen unfreezes a closed profile. Quotes priced earlier keep their snapshot.
func (p *Profile) Reopen() error {
	if err := shared.ValidatePeriodTransition(string(p.Status), string(StatusOpen)); err != nil {
		return fmt.Errorf("markup: reopen profile %d: %w", p.ID, err)
	}
	p.Status = StatusOpen
	p.ClosedAt = nil
	return nil
}
