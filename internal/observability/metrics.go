package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the ledger service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	postingsTotal      *prometheus.CounterVec
	reversalsTotal     prometheus.Counter
	unresolvedAccounts prometheus.Counter
	depreciationRuns   prometheus.Counter
	ledgerDiscrepancy  prometheus.Gauge
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arthaledger_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arthaledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arthaledger_journal_postings_total",
		Help: "Posted journal entries by journal type.",
	}, []string{"journal_type"})
	reversals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arthaledger_journal_reversals_total",
		Help: "Reversal entries created.",
	})
	unresolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arthaledger_unresolved_account_lines_total",
		Help: "Journal lines posted against account codes that did not resolve.",
	})
	depreciation := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arthaledger_depreciation_runs_total",
		Help: "Completed depreciation batch runs.",
	})
	discrepancy := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arthaledger_ledger_discrepancies",
		Help: "Accounts whose running balance disagrees with the ledger sum at last check.",
	})
	registry.MustRegister(requests, duration, postings, reversals, unresolved, depreciation, discrepancy)
	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:      requests,
		requestDuration:    duration,
		postingsTotal:      postings,
		reversalsTotal:     reversals,
		unresolvedAccounts: unresolved,
		depreciationRuns:   depreciation,
		ledgerDiscrepancy:  discrepancy,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// CountPosting increments the posting counter for a journal type.
func (m *Metrics) CountPosting(journalType string) {
	if m == nil {
		return
	}
	m.postingsTotal.WithLabelValues(journalType).Inc()
}

// CountReversal increments the reversal counter.
func (m *Metrics) CountReversal() {
	if m == nil {
		return
	}
	m.reversalsTotal.Inc()
}

// CountUnresolvedAccount increments the unresolved account line counter.
func (m *Metrics) CountUnresolvedAccount() {
	if m == nil {
		return
	}
	m.unresolvedAccounts.Inc()
}

// CountDepreciationRun increments the depreciation run counter.
func (m *Metrics) CountDepreciationRun() {
	if m == nil {
		return
	}
	m.depreciationRuns.Inc()
}

// SetLedgerDiscrepancies records the discrepancy count from the last integrity check.
func (m *Metrics) SetLedgerDiscrepancies(n int) {
	if m == nil {
		return
	}
	m.ledgerDiscrepancy.Set(float64(n))
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
