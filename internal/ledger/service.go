package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arthaledger/arthaledger/internal/accounts"
)

// Store is the persistence surface the ledger service reads from.
type Store interface {
	AccountName(ctx context.Context, code string) (string, error)
	Rows(ctx context.Context, code string, filter StatementFilter) ([]Row, error)
	TrialBalanceLines(ctx context.Context, asOf time.Time) ([]TrialBalanceLine, error)
	Discrepancies(ctx context.Context) ([]Discrepancy, error)
}

// Service serves read models over the general ledger: account statements, the
// trial balance, and the balance integrity check.
type Service struct {
	store  Store
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the ledger service. A nil cache disables caching.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Statement returns one account's movement history in posting order.
func (s *Service) Statement(ctx context.Context, code string, filter StatementFilter) (Statement, error) {
	name, err := s.store.AccountName(ctx, code)
	if err != nil {
		return Statement{}, err
	}
	rows, err := s.store.Rows(ctx, code, filter)
	if err != nil {
		return Statement{}, err
	}
	return Statement{AccountCode: code, AccountName: name, Rows: rows}, nil
}

// TrialBalance builds the trial balance as of a date. Results are cached under
// the current cache version; concurrent builds for the same key collapse into
// one database round trip.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	key, err := s.cache.BuildKey(ctx, keyTrialBalance(asOf)...)
	if err != nil {
		s.logger.Warn("trial balance cache key", slog.Any("error", err))
		return s.buildTrialBalance(ctx, asOf)
	}
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var report TrialBalance
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
			return s.buildTrialBalance(ctx, asOf)
		})
		return report, err
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return result.(TrialBalance), nil
}

func (s *Service) buildTrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	raw, err := s.store.TrialBalanceLines(ctx, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	report := TrialBalance{AsOf: asOf}
	for _, line := range raw {
		net := line.Debit - line.Credit
		if math.Abs(net) < 0.005 {
			continue
		}
		presented := TrialBalanceLine{
			AccountCode:   line.AccountCode,
			AccountName:   line.AccountName,
			Type:          line.Type,
			NormalBalance: line.NormalBalance,
		}
		// Each account lands in one column: its net balance on whichever side
		// it actually carries.
		if net > 0 {
			presented.Debit = net
		} else {
			presented.Credit = -net
		}
		report.TotalDebit += presented.Debit
		report.TotalCredit += presented.Credit
		report.Lines = append(report.Lines, presented)
	}
	return report, nil
}

// Reconcile compares every account's running balance against the signed sum
// of its ledger rows and returns the mismatches. An empty result means the
// ledger and the registry agree.
func (s *Service) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	discrepancies, err := s.store.Discrepancies(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range discrepancies {
		s.logger.Warn("ledger balance discrepancy",
			slog.String("account_code", d.AccountCode),
			slog.Float64("current_balance", d.CurrentBalance),
			slog.Float64("ledger_balance", d.LedgerBalance))
	}
	return discrepancies, nil
}

// InvalidateCache bumps the report cache version after postings land.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// SignedAmount converts one ledger row into the account's balance delta using
// the normal-balance rule. Reconciliation jobs and tests share it.
func SignedAmount(normal accounts.Side, row Row) float64 {
	if row.Debit > 0 {
		return accounts.MovementDelta(normal, accounts.SideDebit, row.Debit)
	}
	return accounts.MovementDelta(normal, accounts.SideCredit, row.Credit)
}

// statementFileName names CSV exports: ledger-<code>-<date>.csv.
func statementFileName(code string, at time.Time) string {
	return fmt.Sprintf("ledger-%s-%s.csv", code, at.Format("2006-01-02"))
}
