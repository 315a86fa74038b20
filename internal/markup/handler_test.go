package markup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/precifica/internal/history"
	"github.com/odyssey-erp/precifica/internal/shared"
)

func newTestRouter(t *testing.T, resolver *stubResolver) (http.Handler, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	handler := NewHandler(nil, newTestService(repo, resolver))
	r := chi.NewRouter()
	r.Route("/api/markup", handler.MountRoutes)
	return r, repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
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

func decodeProfile(t *testing.T, rr *httptest.ResponseRecorder) profileResponse {
	t.Helper()
	var out profileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

const manualBody = `{"company_id":7,"year":2025,"month":3,"rates":{"taxes":{"sales_tax_rate":"0.083","service_tax_rate":"0.03"},"indirects_rate":"0.10","financial_rate":"0.02","profit_rate":"0.15"}}`

func TestHandlerCompute(t *testing.T) {
	router, _ := newTestRouter(t, &stubResolver{})

	rr := do(t, router, http.MethodPost, "/api/markup/compute", `{"taxes":{"sales_tax_rate":0.083,"service_tax_rate":0.03},"indirects_rate":0.1,"financial_rate":0.02,"profit_rate":0.15}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var result Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, "1.4547", result.Multiplier.StringFixed(4))

	rr = do(t, router, http.MethodPost, "/api/markup/compute", `{"taxes":{"sales_tax_rate":0.8,"service_tax_rate":0.2}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandlerProfileLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, &stubResolver{})

	rr := do(t, router, http.MethodPut, "/api/markup/profiles/manual", manualBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	created := decodeProfile(t, rr)
	require.Equal(t, "Markup 03/2025 (1.4547)", created.Label)

	rr = do(t, router, http.MethodGet, "/api/markup/profiles/by-period?company_id=7&year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, created.ID, decodeProfile(t, rr).ID)

	rr = do(t, router, http.MethodPost, "/api/markup/profiles/1/close", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, StatusClosed, decodeProfile(t, rr).Status)

	rr = do(t, router, http.MethodPut, "/api/markup/profiles/manual", manualBody)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "Period Closed")

	rr = do(t, router, http.MethodPatch, "/api/markup/profiles/1/period", `{"year":2025,"month":4}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, http.MethodPatch, "/api/markup/profiles/1/notes", `{"notes":"frozen for audit"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/markup/profiles/1/reopen", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, StatusOpen, decodeProfile(t, rr).Status)

	rr = do(t, router, http.MethodPatch, "/api/markup/profiles/1/notes", `{"notes":"reviewed"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "reviewed", decodeProfile(t, rr).Notes)

	rr = do(t, router, http.MethodPatch, "/api/markup/profiles/1/period", `{"year":2025,"month":4,"version":1}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/markup/profiles?company_id=7", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []profileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
}

func TestHandlerValidation(t *testing.T) {
	router, _ := newTestRouter(t, &stubResolver{})

	rr := do(t, router, http.MethodPut, "/api/markup/profiles/manual", `{"company_id":7,"year":2025,"month":13}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"month"`)

	rr = do(t, router, http.MethodGet, "/api/markup/profiles/abc", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/markup/profiles/99", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/markup/profiles/99/close", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerHistoricalFallback(t *testing.T) {
	resolver := &stubResolver{results: map[string]history.Result{}}
	router, repo := newTestRouter(t, resolver)

	rr := do(t, router, http.MethodGet, "/api/markup/history?company_id=7&year=2025&month=3", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "No Reference Data")

	body := `{"company_id":7,"year":2025,"month":3,"taxes":{"sales_tax_rate":"0.083","service_tax_rate":"0.03"},"financial_rate":"0.02","profit_rate":"0.15"}`
	rr = do(t, router, http.MethodPut, "/api/markup/profiles/historical", body)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Zero(t, repo.writes)

	resolver.results[march.Key()] = ratio("10", shared.Period{Year: 2025, Month: 2})
	rr = do(t, router, http.MethodPut, "/api/markup/profiles/historical", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	profile := decodeProfile(t, rr)
	require.Equal(t, ModeAutoHistorical, profile.Mode)
	require.Equal(t, "1.4547", profile.Multiplier.StringFixed(4))

	rr = do(t, router, http.MethodGet, "/api/markup/history?company_id=7&year=2025&month=3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"reference_period_label":"02/2025"`)
}
