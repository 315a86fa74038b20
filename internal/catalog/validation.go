package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/precifica/internal/shared"
)

// Normalized trims the text fields, composes them to NFC, upper-cases the code and
// lower-cases the unit.
func (it Item) Normalized() Item {
	it.Code = cases.Upper(language.Und).String(norm.NFC.String(strings.TrimSpace(it.Code)))
	it.Description = norm.NFC.String(strings.TrimSpace(it.Description))
	it.UnitOfMeasure = cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(it.UnitOfMeasure)))
	return it
}

// Validate checks the fields required before an item can be stored.
func (it Item) Validate() error {
	if it.CompanyID <= 0 {
		return fmt.Errorf("catalog: company id is required: %w", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(it.Code) == "" {
		return fmt.Errorf("catalog: item code is required: %w", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(it.Description) == "" {
		return fmt.Errorf("catalog: item description is required: %w", shared.ErrInvalidInput)
	}
	if it.BaseUnitPrice.IsNegative() {
		return fmt.Errorf("catalog: item %s has a negative price: %w", it.Code, shared.ErrInvalidInput)
	}
	switch it.Category {
	case CategoryService, CategoryMaterial:
	default:
		return fmt.Errorf("catalog: item %s has unknown category %q: %w", it.Code, it.Category, shared.ErrInvalidInput)
	}
	return nil
}
