package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/arthaledger/arthaledger/internal/assets"
	"github.com/arthaledger/arthaledger/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDepreciationRun triggers the scheduled monthly depreciation batch.
	TaskDepreciationRun = "assets:depreciation_run"
	// TaskLedgerIntegrity triggers the daily ledger reconciliation check.
	TaskLedgerIntegrity = "ledger:integrity_check"

	// schedulerActor is the audit actor for scheduled postings.
	schedulerActor = "scheduler"
)

// DepreciationRunPayload carries the accounting date for a scheduled run.
type DepreciationRunPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewDepreciationRunTask constructs the depreciation batch task. A zero asOf
// means "now" and is resolved by the handler, which lets the cron entry reuse
// one static task.
func NewDepreciationRunTask(asOf time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DepreciationRunPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDepreciationRun, body, asynq.Queue(QueueDefault)), nil
}

// NewLedgerIntegrityTask constructs the reconciliation task.
func NewLedgerIntegrityTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskLedgerIntegrity, nil, asynq.Queue(QueueDefault)), nil
}

// DepreciationRunner runs the depreciation batch.
type DepreciationRunner interface {
	RunDepreciation(ctx context.Context, asOf time.Time, actor string) (assets.RunResult, error)
}

// LedgerReconciler checks ledger-versus-balance integrity and owns the report
// cache.
type LedgerReconciler interface {
	Reconcile(ctx context.Context) ([]ledger.Discrepancy, error)
	InvalidateCache(ctx context.Context) error
}

// IntegrityMetrics publishes the discrepancy gauge.
type IntegrityMetrics interface {
	SetLedgerDiscrepancies(n int)
}

// NewDepreciationRunHandler processes TaskDepreciationRun tasks. The batch
// itself is idempotent per asset and month, so asynq retries are safe.
func NewDepreciationRunHandler(runner DepreciationRunner, reports LedgerReconciler, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DepreciationRunPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		asOf := payload.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}
		result, err := runner.RunDepreciation(ctx, asOf, schedulerActor)
		if err != nil {
			return err
		}
		logger.Info("depreciation run finished",
			slog.String("as_of", asOf.Format("2006-01-02")),
			slog.Int64("processed", result.Processed),
			slog.Int64("posted", result.Posted),
			slog.Int64("skipped", result.Skipped),
			slog.Int64("failed", result.Failed))
		if result.Posted > 0 && reports != nil {
			if err := reports.InvalidateCache(ctx); err != nil {
				logger.Warn("report cache bump", slog.Any("error", err))
			}
		}
		return nil
	}
}

// NewLedgerIntegrityHandler processes TaskLedgerIntegrity tasks.
func NewLedgerIntegrityHandler(reports LedgerReconciler, metrics IntegrityMetrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		discrepancies, err := reports.Reconcile(ctx)
		if err != nil {
			return err
		}
		if metrics != nil {
			metrics.SetLedgerDiscrepancies(len(discrepancies))
		}
		if len(discrepancies) == 0 {
			logger.Info("ledger integrity check clean")
			return nil
		}
		logger.Error("ledger integrity check found discrepancies",
			slog.Int("count", len(discrepancies)))
		return nil
	}
}
