package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics counts markup and quote pricing activity. A nil value is a no-op.
type PricingMetrics struct {
	resolutions  *prometheus.CounterVec
	computations *prometheus.CounterVec
	linesPriced  prometheus.Counter
	overrides    prometheus.Counter
	plansBuilt   *prometheus.CounterVec
}

// NewPricingMetrics registers the pricing collectors against registerer.
func NewPricingMetrics(registerer prometheus.Registerer) *PricingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "precifica_history_resolutions_total",
		Help: "Historical indirect ratio resolutions by outcome.",
	}, []string{"outcome"})
	computations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "precifica_markup_computations_total",
		Help: "Markup multiplier computations by mode and outcome.",
	}, []string{"mode", "outcome"})
	lines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "precifica_quote_lines_priced_total",
		Help: "Quote lines priced from a markup multiplier.",
	})
	overrides := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "precifica_quote_price_overrides_total",
		Help: "Manual unit sell price overrides applied to quote lines.",
	})
	plans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "precifica_payment_plans_total",
		Help: "Payment plans built by outcome.",
	}, []string{"outcome"})
	registerer.MustRegister(resolutions, computations, lines, overrides, plans)
	return &PricingMetrics{
		resolutions:  resolutions,
		computations: computations,
		linesPriced:  lines,
		overrides:    overrides,
		plansBuilt:   plans,
	}
}

// ObserveResolution records a historical ratio lookup outcome.
func (m *PricingMetrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// ObserveComputation records a multiplier computation for the given mode.
func (m *PricingMetrics) ObserveComputation(mode string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.computations.WithLabelValues(mode, outcome).Inc()
}

// AddLinesPriced increments the priced line counter.
func (m *PricingMetrics) AddLinesPriced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linesPriced.Add(float64(n))
}

// ObserveOverride counts a manual sell price override.
func (m *PricingMetrics) ObserveOverride() {
	if m == nil {
		return
	}
	m.overrides.Inc()
}

// ObservePlan records a payment plan build.
func (m *PricingMetrics) ObservePlan(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.plansBuilt.WithLabelValues(outcome).Inc()
}
