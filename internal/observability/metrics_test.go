package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestDomainCountersAppearInScrape(t *testing.T) {
	metrics := NewMetrics()
	metrics.CountPosting("DEPRECIATION")
	metrics.CountReversal()
	metrics.CountUnresolvedAccount()
	metrics.CountDepreciationRun()
	metrics.SetLedgerDiscrepancies(3)

	body := scrape(t, metrics)
	require.Contains(t, body, `arthaledger_journal_postings_total{journal_type="DEPRECIATION"} 1`)
	require.Contains(t, body, "arthaledger_journal_reversals_total 1")
	require.Contains(t, body, "arthaledger_unresolved_account_lines_total 1")
	require.Contains(t, body, "arthaledger_depreciation_runs_total 1")
	require.Contains(t, body, "arthaledger_ledger_discrepancies 3")
}

func TestMiddlewareRecordsRequestByRoutePattern(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/ledger/trial-balance")

	req := httptest.NewRequest(http.MethodGet, "/ledger/trial-balance", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `arthaledger_http_requests_total{code="418",route="/ledger/trial-balance"} 1`)
	require.Contains(t, body, `arthaledger_http_request_duration_seconds_bucket{route="/ledger/trial-balance"`)
}
