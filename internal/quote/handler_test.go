package quote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/precifica/internal/payment"
)

func newQuoteRouter(t *testing.T) http.Handler {
	t.Helper()
	handler := NewHandler(nil, newQuoteService(newMemQuotes(), testProfiles()))
	r := chi.NewRouter()
	r.Route("/api/quotes", handler.MountRoutes)
	return r
}

func send(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerPriceLines(t *testing.T) {
	router := newQuoteRouter(t)

	rr := send(t, router, http.MethodPost, "/api/quotes/lines/price",
		`{"multiplier":"1.3928","label":"Markup 03/2025 (1.3928)","lines":[{"description":"Cable","quantity":"3","base_unit_price":"100"}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out linesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Lines, 1)
	require.Equal(t, "139.28", out.Lines[0].SellUnitPrice.StringFixed(2))
	require.Equal(t, "417.84", out.Total.StringFixed(2))

	rr = send(t, router, http.MethodPost, "/api/quotes/lines/price", `{"multiplier":"1.2","lines":[]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(t, router, http.MethodPost, "/api/quotes/lines/price", `{"multiplier":"1.2","lines":[{"quantity":"-1","base_unit_price":"10"}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerInternalCosts(t *testing.T) {
	router := newQuoteRouter(t)

	rr := send(t, router, http.MethodPost, "/api/quotes/internal-costs",
		`{"multiplier":"1.5","hidden_costs":[{"label":"Freight","value":"50","apply_markup":true,"visible_to_client":true}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var agg Aggregate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &agg))
	require.Equal(t, "75.00", agg.TotalPrice.StringFixed(2))
	require.Equal(t, "75.00", agg.ClientVisiblePrice.StringFixed(2))
}

func TestHandlerPaymentPlan(t *testing.T) {
	router := newQuoteRouter(t)

	rr := send(t, router, http.MethodPost, "/api/quotes/payment-plan",
		`{"total":"1000","payment":{"type":"BOLETO","boleto_subtype":"FIRST_AFTER_DAYS","installment_count":3,"per_boleto_fee":"2.50","first_due_offset_days":15}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var plan payment.Plan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plan))
	require.Len(t, plan.Installments, 3)
	require.Equal(t, 15, plan.Installments[0].DueOffsetDays)
	require.Equal(t, "1007.50", plan.GrandTotal.StringFixed(2))

	rr = send(t, router, http.MethodPost, "/api/quotes/payment-plan", `{"total":"1000","payment":{"type":"BARTER"}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerQuoteLifecycle(t *testing.T) {
	router := newQuoteRouter(t)

	rr := send(t, router, http.MethodPost, "/api/quotes",
		`{"company_id":7,"year":2025,"month":3,"customer_name":"ACME","lines":[{"catalog_reference_id":5,"quantity":"3"}],"payment":{"type":"CASH"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var q Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	require.Equal(t, "417.84", q.Totals.GrandTotal.StringFixed(2))

	rr = send(t, router, http.MethodGet, "/api/quotes/"+q.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = send(t, router, http.MethodGet, "/api/quotes?company_id=7&page=1&per_page=10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	require.Equal(t, 10, list.Pagination.PerPage)
	require.Equal(t, 1, list.Pagination.Total)

	rr = send(t, router, http.MethodPost, "/api/quotes/"+q.ID.String()+"/reprice", `{"version":1}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = send(t, router, http.MethodPost, "/api/quotes/"+q.ID.String()+"/reprice", `{"version":1}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = send(t, router, http.MethodGet, "/api/quotes/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(t, router, http.MethodGet, "/api/quotes/6f1c1f38-3c7e-4c61-9d59-5d2f1a0c0c11", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerPriceQuoteValidation(t *testing.T) {
	router := newQuoteRouter(t)

	rr := send(t, router, http.MethodPost, "/api/quotes", `{"company_id":0,"lines":[]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(t, router, http.MethodPost, "/api/quotes", `{"company_id":7,"year":2025,"month":5,"lines":[{"catalog_reference_id":5,"quantity":"1"}]}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerPriceQuoteReplay(t *testing.T) {
	svc := newQuoteService(newMemQuotes(), testProfiles())
	svc.WithIdempotency(&memKeys{seen: make(map[string]bool)})
	r := chi.NewRouter()
	r.Route("/api/quotes", NewHandler(nil, svc).MountRoutes)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/quotes",
			strings.NewReader(`{"company_id":7,"year":2025,"month":3,"lines":[{"catalog_reference_id":5,"quantity":"1"}]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "checkout-42")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}
	require.Equal(t, http.StatusCreated, post().Code)
	require.Equal(t, http.StatusConflict, post().Code)
}

func TestHandlerEditLines(t *testing.T) {
	router := newQuoteRouter(t)

	rr := send(t, router, http.MethodPost, "/api/quotes",
		`{"company_id":7,"year":2025,"month":3,"lines":[{"catalog_reference_id":5,"quantity":"3"},{"description":"Labour","quantity":"2","base_unit_price":"10"}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var q Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	base := "/api/quotes/" + q.ID.String() + "/lines/"

	rr = send(t, router, http.MethodPatch, base+"1", `{"quantity":"5","version":1}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	require.Equal(t, "724.26", q.Totals.GrandTotal.StringFixed(2))

	rr = send(t, router, http.MethodPatch, base+"1", `{"quantity":"6","version":1}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = send(t, router, http.MethodPatch, base+"1", `{"version":2}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(t, router, http.MethodPatch, base+"0", `{"quantity":"1"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(t, router, http.MethodPatch, base+"7", `{"quantity":"1"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = send(t, router, http.MethodDelete, base+"1?version=abc", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(t, router, http.MethodDelete, base+"1?version=2", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	require.Len(t, q.Lines, 1)
	require.Equal(t, "Labour", q.Lines[0].Description)
	require.Equal(t, 1, q.Lines[0].SequenceNumber)

	rr = send(t, router, http.MethodDelete, base+"1", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
