package ledger

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the ledger report endpoints. CSV exports are rate
// limited per client since they bypass the report cache.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))

	r.Get("/accounts/{code}", h.Statement)
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/reconciliation", h.Reconciliation)
	r.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Get("/accounts/{code}/export.csv", h.ExportStatementCSV)
	})
}
