// Package payment expands a quote total into a cash, installment or boleto schedule.
package payment

import (
	"github.com/shopspring/decimal"
)

// Type selects the payment plan family.
type Type string

const (
	TypeCash                    Type = "CASH"
	TypeDownPaymentInstallments Type = "DOWN_PAYMENT_INSTALLMENTS"
	TypeBoleto                  Type = "BOLETO"
)

// BoletoSubtype selects how a boleto plan starts.
type BoletoSubtype string

const (
	BoletoWithDownPayment BoletoSubtype = "WITH_DOWN_PAYMENT"
	BoletoFirstAfterDays  BoletoSubtype = "FIRST_AFTER_DAYS"
)

const (
	MinInstallments = 1
	MaxInstallments = 20
	// IntervalDays separates consecutive installments.
	IntervalDays = 30
)

// Config describes the plan requested by the user.
type Config struct {
	Type               Type            `json:"type"`
	BoletoSubtype      BoletoSubtype   `json:"boleto_subtype,omitempty"`
	DownPaymentPercent decimal.Decimal `json:"down_payment_percent"`
	InstallmentCount   int             `json:"installment_count"`
	PerBoletoFee       decimal.Decimal `json:"per_boleto_fee"`
	FirstDueOffsetDays int             `json:"first_due_offset_days,omitempty"`
}

// Installment is one dated payment. Amount includes Fee.
type Installment struct {
	Number        int             `json:"number"`
	DueOffsetDays int             `json:"due_offset_days"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
}

// Plan is the expanded schedule. DownPayment plus the installment amounts always equals
// GrandTotal, which is Total plus TotalFees.
type Plan struct {
	Type               Type            `json:"type"`
	BoletoSubtype      BoletoSubtype   `json:"boleto_subtype,omitempty"`
	DownPaymentPercent decimal.Decimal `json:"down_payment_percent"`
	DownPayment        decimal.Decimal `json:"down_payment"`
	InstallmentCount   int             `json:"installment_count"`
	PerBoletoFee       decimal.Decimal `json:"per_boleto_fee"`
	TotalFees          decimal.Decimal `json:"total_fees"`
	Total              decimal.Decimal `json:"total"`
	GrandTotal         decimal.Decimal `json:"grand_total"`
	Installments       []Installment   `json:"installments"`
}
