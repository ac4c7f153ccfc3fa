package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, code, name, type, category, parent_code, normal_balance, description, is_active, is_system, current_balance, created_by, created_at, updated_by, updated_at`

// Repository persists chart of accounts entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.ParentCode, &a.NormalBalance, &a.Description, &a.IsActive, &a.IsSystem, &a.CurrentBalance, &a.CreatedBy, &a.CreatedAt, &a.UpdatedBy, &a.UpdatedAt)
	return a, err
}

// Insert stores a new account with a zero opening balance.
func (r *Repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (code, name, type, category, parent_code, normal_balance, description, is_active, is_system, current_balance, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,$10)
RETURNING `+accountColumns, a.Code, a.Name, a.Type, a.Category, a.ParentCode, a.NormalBalance, a.Description, a.IsActive, a.IsSystem, a.CreatedBy)
	stored, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return stored, nil
}

// GetByCode fetches a single account. Absence maps to ErrAccountNotFound.
func (r *Repository) GetByCode(ctx context.Context, code string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// Update mutates name, description, and active flag. Other fields are frozen
// after registration.
func (r *Repository) Update(ctx context.Context, code string, name string, description *string, isActive bool, actor string) (Account, error) {
	row := r.pool.QueryRow(ctx, `UPDATE accounts SET name=$2, description=$3, is_active=$4, updated_by=$5, updated_at=NOW()
WHERE code=$1 RETURNING `+accountColumns, code, name, description, isActive, actor)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// List returns the full chart ordered by code.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
}

// ListActive returns active accounts ordered by code.
func (r *Repository) ListActive(ctx context.Context) ([]Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_active ORDER BY code`)
}

// ListByType returns accounts of one type ordered by code.
func (r *Repository) ListByType(ctx context.Context, t AccountType) ([]Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE type=$1 ORDER BY code`, t)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Account, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
