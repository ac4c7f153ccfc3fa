package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthaledger/arthaledger/internal/accounts"
	"github.com/arthaledger/arthaledger/internal/ledger"
	"github.com/arthaledger/arthaledger/internal/platform/db"
)

const entryColumns = `id, number, date, description, reference, type, status, source_module, source_id, total_debit, total_credit, created_by, created_at, posted_by, posted_at, approved_by, approved_at, reversed_at, reversal_note, updated_at`

// Movement is the outcome of applying one line to an account balance.
// Applied is false when the account code did not resolve; the balance update
// is then a no-op by upstream convention.
type Movement struct {
	Applied     bool
	Balance     float64
	AccountName string
}

// TxRepository exposes the transactional operations of the posting path.
type TxRepository interface {
	NextNumber(ctx context.Context, t Type) (string, error)
	LookupAccount(ctx context.Context, code string) (accounts.Account, error)
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	InsertLines(ctx context.Context, entryID int64, lines []Line) ([]Line, error)
	LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error
	GetEntryForUpdate(ctx context.Context, id int64) (Entry, error)
	GetLines(ctx context.Context, entryID int64) ([]Line, error)
	ApplyMovement(ctx context.Context, code string, side accounts.Side, amount float64) (Movement, error)
	AppendLedgerRow(ctx context.Context, row ledger.Row) error
	MarkPosted(ctx context.Context, id int64, actor string, at time.Time) error
	MarkApproved(ctx context.Context, id int64, actor string, at time.Time) error
	MarkReversed(ctx context.Context, id int64, note string, at time.Time) error
}

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByID(ctx context.Context, id int64) (Entry, error)
	GetByNumber(ctx context.Context, number string) (Entry, error)
	GetBySource(ctx context.Context, module string, sourceID uuid.UUID) (Entry, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}

// ListFilter narrows entry queries.
type ListFilter struct {
	Status Status
	Type   Type
	From   *time.Time
	To     *time.Time
	Limit  int
}

// Repository persists journal entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("journal repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextNumber(ctx context.Context, t Type) (string, error) {
	prefix, err := t.Prefix()
	if err != nil {
		return "", err
	}
	var seq int64
	err = r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (journal_type, next_value) VALUES ($1, 1)
ON CONFLICT (journal_type) DO UPDATE SET next_value = journal_sequences.next_value + 1
RETURNING next_value`, t).Scan(&seq)
	if err != nil {
		return "", err
	}
	return FormatNumber(prefix, seq), nil
}

func (r *txRepository) LookupAccount(ctx context.Context, code string) (accounts.Account, error) {
	var a accounts.Account
	err := r.tx.QueryRow(ctx, `SELECT code, name, type, normal_balance, is_active, current_balance FROM accounts WHERE code=$1`, code).
		Scan(&a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.IsActive, &a.CurrentBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}
		return accounts.Account{}, err
	}
	return a, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (number, date, description, reference, type, status, source_module, source_id, total_debit, total_credit, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id, created_at, updated_at`,
		e.Number, e.Date, e.Description, e.Reference, e.Type, e.Status, nullString(e.SourceModule), nullUUID(e.SourceID), toNumeric(e.TotalDebit), toNumeric(e.TotalCredit), e.CreatedBy)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []Line) ([]Line, error) {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		line.EntryID = entryID
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, line_number, account_code, account_name, side, amount, description, member_ref, loan_ref, savings_ref)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at`,
			entryID, line.LineNumber, line.AccountCode, line.AccountName, line.Side, toNumeric(line.Amount), line.Description, line.MemberRef, line.LoanRef, line.SavingsRef).
			Scan(&line.ID, &line.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (r *txRepository) LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_source_links (module, source_id, entry_id) VALUES ($1,$2,$3)`, module, sourceID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSourceAlreadyLinked
		}
		return err
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id)
	return scanEntry(row)
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]Line, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, line_number, account_code, account_name, side, amount, description, member_ref, loan_ref, savings_ref, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY line_number ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNumber, &line.AccountCode, &line.AccountName, &line.Side, &line.Amount, &line.Description, &line.MemberRef, &line.LoanRef, &line.SavingsRef, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ApplyMovement adds the signed amount to the account balance in a single
// atomic statement. The CASE mirrors accounts.MovementDelta: movements on the
// normal side increase the balance, opposite movements decrease it.
func (r *txRepository) ApplyMovement(ctx context.Context, code string, side accounts.Side, amount float64) (Movement, error) {
	var m Movement
	err := r.tx.QueryRow(ctx, `UPDATE accounts
SET current_balance = current_balance + (CASE WHEN normal_balance=$2 THEN $3::numeric ELSE -$3::numeric END), updated_at=NOW()
WHERE code=$1 RETURNING current_balance, name`, code, side, toNumeric(amount)).
		Scan(&m.Balance, &m.AccountName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{Applied: false}, nil
		}
		return Movement{}, err
	}
	m.Applied = true
	return m, nil
}

func (r *txRepository) AppendLedgerRow(ctx context.Context, row ledger.Row) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO general_ledger (account_code, account_name, date, reference, description, debit, credit, balance, entry_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		row.AccountCode, row.AccountName, row.Date, row.Reference, row.Description, toNumeric(row.Debit), toNumeric(row.Credit), toNumeric(row.Balance), row.EntryID, row.CreatedBy)
	return err
}

func (r *txRepository) MarkPosted(ctx context.Context, id int64, actor string, at time.Time) error {
	return r.markStatus(ctx, `UPDATE journal_entries SET status='POSTED', posted_by=$2, posted_at=$3, updated_at=NOW() WHERE id=$1`, id, actor, at)
}

func (r *txRepository) MarkApproved(ctx context.Context, id int64, actor string, at time.Time) error {
	return r.markStatus(ctx, `UPDATE journal_entries SET status='APPROVED', approved_by=$2, approved_at=$3, updated_at=NOW() WHERE id=$1`, id, actor, at)
}

func (r *txRepository) MarkReversed(ctx context.Context, id int64, note string, at time.Time) error {
	return r.markStatus(ctx, `UPDATE journal_entries SET status='REVERSED', reversal_note=$2, reversed_at=$3, updated_at=NOW() WHERE id=$1`, id, note, at)
}

func (r *txRepository) markStatus(ctx context.Context, sql string, id int64, args ...any) error {
	cmd, err := r.tx.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// GetByID fetches an entry with its lines.
func (r *Repository) GetByID(ctx context.Context, id int64) (Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return Entry{}, err
	}
	entry.Lines, err = r.linesFor(ctx, entry.ID)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// GetBySource fetches the entry a source link points at, with its lines.
// The depreciation engine uses this to find what a replayed source id
// already produced.
func (r *Repository) GetBySource(ctx context.Context, module string, sourceID uuid.UUID) (Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+prefixColumns("e", entryColumns)+` FROM journal_entries e
JOIN journal_source_links l ON l.entry_id = e.id
WHERE l.module=$1 AND l.source_id=$2`, module, sourceID)
	entry, err := scanEntry(row)
	if err != nil {
		return Entry{}, err
	}
	entry.Lines, err = r.linesFor(ctx, entry.ID)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// GetByNumber fetches an entry by journal number with its lines.
func (r *Repository) GetByNumber(ctx context.Context, number string) (Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE number=$1`, number)
	entry, err := scanEntry(row)
	if err != nil {
		return Entry{}, err
	}
	entry.Lines, err = r.linesFor(ctx, entry.ID)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// List returns entries matching the filter, newest first, without lines.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	sql := `SELECT ` + entryColumns + ` FROM journal_entries`
	var conditions []string
	var args []any
	idx := 1
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status=$%d", idx))
		args = append(args, filter.Status)
		idx++
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type=$%d", idx))
		args = append(args, filter.Type)
		idx++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", idx))
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", idx))
		args = append(args, *filter.To)
		idx++
	}
	for i, cond := range conditions {
		if i == 0 {
			sql += " WHERE " + cond
		} else {
			sql += " AND " + cond
		}
	}
	sql += " ORDER BY id DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	sql += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *Repository) linesFor(ctx context.Context, entryID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, entry_id, line_number, account_code, account_name, side, amount, description, member_ref, loan_ref, savings_ref, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY line_number ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNumber, &line.AccountCode, &line.AccountName, &line.Side, &line.Amount, &line.Description, &line.MemberRef, &line.LoanRef, &line.SavingsRef, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var sourceModule *string
	var sourceID *uuid.UUID
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.Description, &e.Reference, &e.Type, &e.Status, &sourceModule, &sourceID, &e.TotalDebit, &e.TotalCredit, &e.CreatedBy, &e.CreatedAt, &e.PostedBy, &e.PostedAt, &e.ApprovedBy, &e.ApprovedAt, &e.ReversedAt, &e.ReversalNote, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	if sourceModule != nil {
		e.SourceModule = *sourceModule
	}
	if sourceID != nil {
		e.SourceID = *sourceID
	}
	return e, nil
}

func prefixColumns(alias, columns string) string {
	return alias + "." + strings.ReplaceAll(columns, ", ", ", "+alias+".")
}

func nullString(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullUUID(val uuid.UUID) any {
	if val == uuid.Nil {
		return nil
	}
	return val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
