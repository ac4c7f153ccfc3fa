package jobs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arthaledger/arthaledger/internal/assets"
	"github.com/arthaledger/arthaledger/internal/ledger"
)

type runnerStub struct {
	asOf   time.Time
	result assets.RunResult
}

func (r *runnerStub) RunDepreciation(ctx context.Context, asOf time.Time, actor string) (assets.RunResult, error) {
	r.asOf = asOf
	return r.result, nil
}

type reconcilerStub struct {
	discrepancies []ledger.Discrepancy
	bumped        int
}

func (r *reconcilerStub) Reconcile(ctx context.Context) ([]ledger.Discrepancy, error) {
	return r.discrepancies, nil
}

func (r *reconcilerStub) InvalidateCache(ctx context.Context) error {
	r.bumped++
	return nil
}

type gaugeStub struct {
	value int
}

func (g *gaugeStub) SetLedgerDiscrepancies(n int) { g.value = n }

func TestDepreciationRunHandlerBumpsCacheAfterPosting(t *testing.T) {
	runner := &runnerStub{result: assets.RunResult{Processed: 3, Posted: 2, Skipped: 1}}
	reports := &reconcilerStub{}
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	task, err := NewDepreciationRunTask(asOf)
	require.NoError(t, err)

	handler := NewDepreciationRunHandler(runner, reports, slog.Default())
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, asOf, runner.asOf)
	require.Equal(t, 1, reports.bumped)
}

func TestDepreciationRunHandlerSkipsBumpWhenNothingPosted(t *testing.T) {
	runner := &runnerStub{result: assets.RunResult{Processed: 1, Skipped: 1}}
	reports := &reconcilerStub{}
	task, err := NewDepreciationRunTask(time.Time{})
	require.NoError(t, err)

	handler := NewDepreciationRunHandler(runner, reports, slog.Default())
	require.NoError(t, handler(context.Background(), task))
	require.False(t, runner.asOf.IsZero(), "zero as_of resolves to now")
	require.Zero(t, reports.bumped)
}

func TestLedgerIntegrityHandlerPublishesGauge(t *testing.T) {
	reports := &reconcilerStub{discrepancies: []ledger.Discrepancy{
		{AccountCode: "1010", Difference: 5},
	}}
	gauge := &gaugeStub{}
	task, err := NewLedgerIntegrityTask()
	require.NoError(t, err)

	handler := NewLedgerIntegrityHandler(reports, gauge, slog.Default())
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 1, gauge.value)

	reports.discrepancies = nil
	require.NoError(t, handler(context.Background(), task))
	require.Zero(t, gauge.value)
}
