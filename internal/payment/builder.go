package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/money"
	"github.com/odyssey-erp/precifica/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// Build expands total into a schedule according to cfg. Amounts are computed in integer
// cents; the rounding remainder of every split lands on the last installment.
func Build(total decimal.Decimal, cfg Config) (Plan, error) {
	if total.IsNegative() {
		return Plan{}, fmt.Errorf("payment: total %s must not be negative: %w", total.StringFixed(2), shared.ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return Plan{}, err
	}
	totalCents := money.FromDecimal(total)

	switch cfg.Type {
	case TypeCash:
		return finish(Plan{Type: TypeCash}, totalCents, 0, 0, []Installment{{
			Number:        1,
			DueOffsetDays: 0,
			Amount:        totalCents.Decimal(),
			Fee:           decimal.Zero,
		}}), nil
	case TypeDownPaymentInstallments:
		return withDownPayment(Plan{Type: TypeDownPaymentInstallments}, totalCents, cfg, 0)
	case TypeBoleto:
		fee := money.FromDecimal(cfg.PerBoletoFee)
		plan := Plan{Type: TypeBoleto, BoletoSubtype: cfg.BoletoSubtype, PerBoletoFee: fee.Decimal()}
		if cfg.BoletoSubtype == BoletoWithDownPayment {
			return withDownPayment(plan, totalCents, cfg, fee)
		}
		return firstAfterDays(plan, totalCents, cfg, fee)
	}
	return Plan{}, fmt.Errorf("payment: unsupported type %q: %w", cfg.Type, shared.ErrInvalidPlanConfig)
}

// Validate checks cfg against the plan rules.
func (cfg Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("payment: "+format+": %w", append(args, shared.ErrInvalidPlanConfig)...)
	}
	switch cfg.Type {
	case TypeCash:
		return nil
	case TypeDownPaymentInstallments, TypeBoleto:
	default:
		return invalid("unsupported type %q", cfg.Type)
	}
	if cfg.InstallmentCount < MinInstallments || cfg.InstallmentCount > MaxInstallments {
		return invalid("installment count %d outside [%d, %d]", cfg.InstallmentCount, MinInstallments, MaxInstallments)
	}
	usesDownPayment := cfg.Type == TypeDownPaymentInstallments ||
		(cfg.Type == TypeBoleto && cfg.BoletoSubtype == BoletoWithDownPayment)
	if usesDownPayment && (cfg.DownPaymentPercent.IsNegative() || cfg.DownPaymentPercent.GreaterThan(hundred)) {
		return invalid("down payment %s%% outside [0, 100]", cfg.DownPaymentPercent.String())
	}
	if cfg.Type != TypeBoleto {
		return nil
	}
	if cfg.PerBoletoFee.IsNegative() {
		return invalid("per boleto fee %s must not be negative", cfg.PerBoletoFee.String())
	}
	switch cfg.BoletoSubtype {
	case BoletoWithDownPayment:
	case BoletoFirstAfterDays:
		if cfg.FirstDueOffsetDays <= 0 {
			return invalid("first due offset %d must be positive", cfg.FirstDueOffsetDays)
		}
	default:
		return invalid("unsupported boleto subtype %q", cfg.BoletoSubtype)
	}
	return nil
}

func withDownPayment(plan Plan, total money.Cents, cfg Config, fee money.Cents) (Plan, error) {
	down := money.FromDecimal(total.Decimal().Mul(cfg.DownPaymentPercent).Div(hundred))
	plan.DownPaymentPercent = cfg.DownPaymentPercent
	remaining := total - down
	if remaining == 0 {
		return finish(plan, total, down, 0, nil), nil
	}
	shares, err := remaining.Split(cfg.InstallmentCount)
	if err != nil {
		return Plan{}, fmt.Errorf("payment: %v: %w", err, shared.ErrInvalidPlanConfig)
	}
	installments := make([]Installment, len(shares))
	for i, share := range shares {
		installments[i] = Installment{
			Number:        i + 1,
			DueOffsetDays: IntervalDays * (i + 1),
			Amount:        (share + fee).Decimal(),
			Fee:           fee.Decimal(),
		}
	}
	return finish(plan, total, down, fee*money.Cents(len(shares)), installments), nil
}

func firstAfterDays(plan Plan, total money.Cents, cfg Config, fee money.Cents) (Plan, error) {
	fees := fee * money.Cents(cfg.InstallmentCount)
	shares, err := (total + fees).Split(cfg.InstallmentCount)
	if err != nil {
		return Plan{}, fmt.Errorf("payment: %v: %w", err, shared.ErrInvalidPlanConfig)
	}
	installments := make([]Installment, len(shares))
	for i, share := range shares {
		installments[i] = Installment{
			Number:        i + 1,
			DueOffsetDays: cfg.FirstDueOffsetDays + IntervalDays*i,
			Amount:        share.Decimal(),
			Fee:           fee.Decimal(),
		}
	}
	return finish(plan, total, 0, fees, installments), nil
}

func finish(plan Plan, total, down, fees money.Cents, installments []Installment) Plan {
	if installments == nil {
		installments = []Installment{}
	}
	plan.Total = total.Decimal()
	plan.DownPayment = down.Decimal()
	plan.TotalFees = fees.Decimal()
	plan.GrandTotal = (total + fees).Decimal()
	plan.InstallmentCount = len(installments)
	plan.Installments = installments
	return plan
}
