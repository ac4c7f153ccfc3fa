package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rowColumns = `id, account_code, account_name, date, reference, description, debit::float8, credit::float8, balance::float8, entry_id, created_by, created_at`

// StatementFilter narrows an account statement query.
type StatementFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

const (
	defaultStatementLimit = 100
	maxStatementLimit     = 1000
)

// Repository reads the append-only general ledger. Writes happen exclusively
// through the journal posting transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountName resolves the registry name for a code. Absence maps to
// ErrUnknownAccount.
func (r *Repository) AccountName(ctx context.Context, code string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM accounts WHERE code=$1`, code).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnknownAccount
	}
	return name, err
}

// Rows returns ledger movements for one account in insertion order.
func (r *Repository) Rows(ctx context.Context, code string, filter StatementFilter) ([]Row, error) {
	sql := `SELECT ` + rowColumns + ` FROM general_ledger WHERE account_code=$1`
	args := []any{code}
	if filter.From != nil {
		args = append(args, *filter.From)
		sql += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		sql += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultStatementLimit
	}
	if limit > maxStatementLimit {
		limit = maxStatementLimit
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.AccountCode, &row.AccountName, &row.Date, &row.Reference, &row.Description,
			&row.Debit, &row.Credit, &row.Balance, &row.EntryID, &row.CreatedBy, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TrialBalanceLines aggregates gross debit and credit totals per account up to
// the given date. Netting into presentation columns is the service's job.
func (r *Repository) TrialBalanceLines(ctx context.Context, asOf time.Time) ([]TrialBalanceLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.code, a.name, a.type, a.normal_balance,
COALESCE(SUM(gl.debit), 0)::float8, COALESCE(SUM(gl.credit), 0)::float8
FROM accounts a
LEFT JOIN general_ledger gl ON gl.account_code = a.code AND gl.date <= $1
WHERE a.is_active
GROUP BY a.code, a.name, a.type, a.normal_balance
ORDER BY a.code`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TrialBalanceLine
	for rows.Next() {
		var line TrialBalanceLine
		if err := rows.Scan(&line.AccountCode, &line.AccountName, &line.Type, &line.NormalBalance, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// Discrepancies returns accounts whose running balance disagrees with the
// signed sum of their ledger rows by at least one rounding unit.
func (r *Repository) Discrepancies(ctx context.Context) ([]Discrepancy, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.code, a.name, a.current_balance::float8,
COALESCE(SUM(CASE WHEN a.normal_balance = 'DEBIT' THEN gl.debit - gl.credit ELSE gl.credit - gl.debit END), 0)::float8 AS ledger_balance
FROM accounts a
LEFT JOIN general_ledger gl ON gl.account_code = a.code
GROUP BY a.code, a.name, a.current_balance
HAVING ABS(a.current_balance - COALESCE(SUM(CASE WHEN a.normal_balance = 'DEBIT' THEN gl.debit - gl.credit ELSE gl.credit - gl.debit END), 0)) >= 0.01
ORDER BY a.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Discrepancy
	for rows.Next() {
		var d Discrepancy
		if err := rows.Scan(&d.AccountCode, &d.AccountName, &d.CurrentBalance, &d.LedgerBalance); err != nil {
			return nil, err
		}
		d.Difference = d.CurrentBalance - d.LedgerBalance
		out = append(out, d)
	}
	return out, rows.Err()
}
