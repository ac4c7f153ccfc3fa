package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/arthaledger/arthaledger/internal/platform/httpx"
)

// Handler exposes ledger reports over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	printer *message.Printer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, printer: message.NewPrinter(language.English)}
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	filter, err := parseStatementFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	statement, err := h.service.Statement(r.Context(), chi.URLParam(r, "code"), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}

// ExportStatementCSV streams one account's statement as a CSV attachment.
// Amounts use grouped decimal formatting for spreadsheet consumers.
func (h *Handler) ExportStatementCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := parseStatementFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	statement, err := h.service.Statement(r.Context(), chi.URLParam(r, "code"), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"Date", "Reference", "Description", "Debit", "Credit", "Balance"}); err != nil {
		h.logger.Error("write statement csv header", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	for _, row := range statement.Rows {
		if err := writer.Write([]string{
			row.Date.Format("2006-01-02"),
			row.Reference,
			row.Description,
			h.printer.Sprintf("%.2f", row.Debit),
			h.printer.Sprintf("%.2f", row.Credit),
			h.printer.Sprintf("%.2f", row.Balance),
		}); err != nil {
			h.logger.Error("write statement csv row", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("flush statement csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", statementFileName(statement.AccountCode, time.Now())))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("write statement csv", slog.Any("error", err))
	}
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("as_of")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	report, err := h.service.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := h.service.Reconcile(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"balanced":      len(discrepancies) == 0,
		"discrepancies": discrepancies,
	})
}

func parseStatementFilter(r *http.Request) (StatementFilter, error) {
	q := r.URL.Query()
	var filter StatementFilter
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return StatementFilter{}, errors.New("from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return StatementFilter{}, errors.New("to must be YYYY-MM-DD")
		}
		filter.To = &to
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return StatementFilter{}, errors.New("limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownAccount) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	h.logger.Error("ledger handler", slog.Any("error", err))
	httpx.RespondError(w, err)
}
