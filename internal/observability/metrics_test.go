package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/markup/profiles")

	req := httptest.NewRequest(http.MethodGet, "/api/markup/profiles", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `precifica_http_requests_total{code="418",route="/api/markup/profiles"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `precifica_http_request_duration_seconds_bucket{route="/api/markup/profiles"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestPricingMetricsExposedOnRegistry(t *testing.T) {
	metrics := NewMetrics()
	pricing := metrics.Pricing()

	pricing.ObserveResolution("no_reference")
	pricing.ObserveComputation("MANUAL", nil)
	pricing.ObserveComputation("MANUAL", errors.New("boom"))
	pricing.AddLinesPriced(3)
	pricing.ObserveOverride()
	pricing.ObservePlan(nil)

	body := scrape(t, metrics)
	for _, want := range []string{
		`precifica_history_resolutions_total{outcome="no_reference"} 1`,
		`precifica_markup_computations_total{mode="MANUAL",outcome="ok"} 1`,
		`precifica_markup_computations_total{mode="MANUAL",outcome="rejected"} 1`,
		`precifica_quote_lines_priced_total 3`,
		`precifica_quote_price_overrides_total 1`,
		`precifica_payment_plans_total{outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	var pricing *PricingMetrics

	pricing.ObserveResolution("ok")
	pricing.AddLinesPriced(1)
	if metrics.Pricing() != nil {
		t.Fatal("expected nil pricing metrics from nil Metrics")
	}

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rr.Code)
	}
}
