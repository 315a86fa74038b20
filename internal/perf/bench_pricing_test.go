package perf

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/markup"
	"github.com/odyssey-erp/precifica/internal/payment"
	"github.com/odyssey-erp/precifica/internal/quote"
)

func sampleRates() markup.RateInputs {
	return markup.RateInputs{
		Taxes:         markup.TaxRates{SalesTaxRate: decimal.RequireFromString("0.12"), ServiceTaxRate: decimal.RequireFromString("0.03")},
		IndirectsRate: decimal.RequireFromString("0.08"),
		FinancialRate: decimal.RequireFromString("0.02"),
		ProfitRate:    decimal.RequireFromString("0.10"),
	}
}

func sampleLines(n int) []quote.LineInput {
	lines := make([]quote.LineInput, 0, n)
	for i := 0; i < n; i++ {
		base := decimal.NewFromInt(int64(i%97 + 1)).Add(decimal.RequireFromString("0.37"))
		lines = append(lines, quote.LineInput{
			Description:   fmt.Sprintf("Item %d", i+1),
			UnitOfMeasure: "un",
			Quantity:      decimal.NewFromInt(int64(i%7 + 1)),
			BaseUnitPrice: &base,
		})
	}
	return lines
}

func BenchmarkMarkupCompute(b *testing.B) {
	rates := sampleRates()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := markup.Compute(rates); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPriceLines(b *testing.B) {
	lines := sampleLines(500)
	mult := decimal.RequireFromString("1.4547")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := quote.PriceLines(lines, mult, "bench"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBoletoPlan(b *testing.B) {
	cfg := payment.Config{
		Type:               payment.TypeBoleto,
		BoletoSubtype:      payment.BoletoFirstAfterDays,
		InstallmentCount:   24,
		PerBoletoFee:       decimal.RequireFromString("3.50"),
		FirstDueOffsetDays: 15,
	}
	total := decimal.RequireFromString("98765.43")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := payment.Build(total, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func TestPriceLinesEndpointLatency(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api/quotes", quote.NewHandler(nil, quote.NewService(nil, nil, nil, nil, nil)).MountRoutes)

	var body strings.Builder
	body.WriteString(`{"multiplier":"1.4547","lines":[`)
	for i := 0; i < 200; i++ {
		if i > 0 {
			body.WriteString(",")
		}
		fmt.Fprintf(&body, `{"description":"Item %d","quantity":"%d","base_unit_price":"%d.37"}`, i, i%7+1, i%97+1)
	}
	body.WriteString(`]}`)
	payload := body.String()

	samples := make([]time.Duration, 0, 40)
	for i := 0; i < 40; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/quotes/lines/price", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		start := time.Now()
		r.ServeHTTP(rr, req)
		samples = append(samples, time.Since(start))
		if rr.Code != http.StatusOK {
			t.Fatalf("price lines: status %d: %s", rr.Code, rr.Body.String())
		}
	}

	if p95 := percentile95(samples); p95 > 500*time.Millisecond {
		t.Fatalf("price lines latency regression: p95=%s", p95)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	return sorted[index]
}
