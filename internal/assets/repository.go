package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthaledger/arthaledger/internal/platform/db"
)

const assetColumns = `id, code, name, category_code, purchase_cost::float8, purchase_date, useful_life_years, method, rate_percent::float8, residual_value::float8, accumulated_depreciation::float8, posted_depreciation::float8, current_book_value::float8, status, disposal_date, disposal_value::float8, purchase_entry_id, disposal_entry_id, last_computed_at, created_by, created_at, updated_at`

const categoryColumns = `id, code, name, asset_account_code, expense_account_code, accumulated_account_code, default_method, default_rate_percent::float8, default_useful_life_years, is_active, created_at, updated_at`

// ListFilter narrows asset queries.
type ListFilter struct {
	Status   Status
	Category string
}

// TxStore is the per-asset transactional surface. Each asset's
// read-compute-write runs under a row lock so a concurrent disposal cannot
// interleave with a depreciation computation.
type TxStore interface {
	GetForUpdate(ctx context.Context, code string) (FixedAsset, error)
	SaveComputation(ctx context.Context, asset FixedAsset) error
	MarkDisposed(ctx context.Context, asset FixedAsset) error
	SetStatus(ctx context.Context, code string, status Status) error
}

// Store abstracts asset persistence.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	InsertCategory(ctx context.Context, c Category) (Category, error)
	GetCategory(ctx context.Context, code string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	Insert(ctx context.Context, a FixedAsset) (FixedAsset, error)
	GetByCode(ctx context.Context, code string) (FixedAsset, error)
	List(ctx context.Context, filter ListFilter) ([]FixedAsset, error)
	ListDepreciable(ctx context.Context) ([]FixedAsset, error)
	AdvancePostedDepreciation(ctx context.Context, code string, amount float64) error
}

// Repository persists asset categories and fixed assets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.AssetAccountCode, &c.ExpenseAccountCode, &c.AccumulatedAccountCode,
		&c.DefaultMethod, &c.DefaultRatePercent, &c.DefaultUsefulLifeYears, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanAsset(row pgx.Row) (FixedAsset, error) {
	var a FixedAsset
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.CategoryCode, &a.PurchaseCost, &a.PurchaseDate, &a.UsefulLifeYears,
		&a.Method, &a.RatePercent, &a.ResidualValue, &a.AccumulatedDepreciation, &a.PostedDepreciation,
		&a.CurrentBookValue, &a.Status,
		&a.DisposalDate, &a.DisposalValue, &a.PurchaseEntryID, &a.DisposalEntryID, &a.LastComputedAt,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// InsertCategory stores a new asset category.
func (r *Repository) InsertCategory(ctx context.Context, c Category) (Category, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO asset_categories (code, name, asset_account_code, expense_account_code, accumulated_account_code, default_method, default_rate_percent, default_useful_life_years, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE)
RETURNING `+categoryColumns, c.Code, c.Name, c.AssetAccountCode, c.ExpenseAccountCode, c.AccumulatedAccountCode,
		c.DefaultMethod, toNumeric(c.DefaultRatePercent), c.DefaultUsefulLifeYears)
	stored, err := scanCategory(row)
	if err != nil {
		return Category{}, mapInsertErr(err)
	}
	return stored, nil
}

// GetCategory fetches one category by code.
func (r *Repository) GetCategory(ctx context.Context, code string) (Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM asset_categories WHERE code=$1`, code)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	}
	return c, err
}

// ListCategories returns all categories ordered by code.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM asset_categories ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Insert stores a new fixed asset.
func (r *Repository) Insert(ctx context.Context, a FixedAsset) (FixedAsset, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO fixed_assets (code, name, category_code, purchase_cost, purchase_date, useful_life_years, method, rate_percent, residual_value, accumulated_depreciation, posted_depreciation, current_book_value, status, purchase_entry_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,0,$4,$10,$11,$12)
RETURNING `+assetColumns, a.Code, a.Name, a.CategoryCode, toNumeric(a.PurchaseCost), a.PurchaseDate, a.UsefulLifeYears,
		a.Method, toNumeric(a.RatePercent), toNumeric(a.ResidualValue), a.Status, a.PurchaseEntryID, a.CreatedBy)
	stored, err := scanAsset(row)
	if err != nil {
		return FixedAsset{}, mapInsertErr(err)
	}
	return stored, nil
}

// GetByCode fetches one asset by code.
func (r *Repository) GetByCode(ctx context.Context, code string) (FixedAsset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE code=$1`, code)
	a, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return FixedAsset{}, ErrAssetNotFound
	}
	return a, err
}

// List returns assets matching the filter ordered by code.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]FixedAsset, error) {
	sql := `SELECT ` + assetColumns + ` FROM fixed_assets WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		sql += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		sql += fmt.Sprintf(" AND category_code=$%d", len(args))
	}
	sql += " ORDER BY code"
	return r.query(ctx, sql, args...)
}

// ListDepreciable returns assets eligible for a scheduled depreciation run.
func (r *Repository) ListDepreciable(ctx context.Context) ([]FixedAsset, error) {
	return r.query(ctx, `SELECT `+assetColumns+` FROM fixed_assets
WHERE status IN ('ACTIVE','UNDER_MAINTENANCE') AND method <> 'NONE' ORDER BY code`)
}

// AdvancePostedDepreciation moves the ledger watermark forward after the
// period's journal entry has committed. The guard keeps it monotonic, so a
// concurrent retry can never move it backwards.
func (r *Repository) AdvancePostedDepreciation(ctx context.Context, code string, amount float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE fixed_assets SET posted_depreciation=$2, updated_at=NOW()
WHERE code=$1 AND posted_depreciation < $2`, code, toNumeric(amount))
	return err
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]FixedAsset, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FixedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) GetForUpdate(ctx context.Context, code string) (FixedAsset, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE code=$1 FOR UPDATE`, code)
	a, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return FixedAsset{}, ErrAssetNotFound
	}
	return a, err
}

func (s *txStore) SaveComputation(ctx context.Context, asset FixedAsset) error {
	_, err := s.tx.Exec(ctx, `UPDATE fixed_assets SET accumulated_depreciation=$2, current_book_value=$3, status=$4, last_computed_at=$5, updated_at=NOW() WHERE code=$1`,
		asset.Code, toNumeric(asset.AccumulatedDepreciation), toNumeric(asset.CurrentBookValue), asset.Status, asset.LastComputedAt)
	return err
}

func (s *txStore) MarkDisposed(ctx context.Context, asset FixedAsset) error {
	_, err := s.tx.Exec(ctx, `UPDATE fixed_assets SET status=$2, disposal_date=$3, disposal_value=$4, disposal_entry_id=$5, updated_at=NOW() WHERE code=$1`,
		asset.Code, StatusDisposed, asset.DisposalDate, toNumericPtr(asset.DisposalValue), asset.DisposalEntryID)
	return err
}

func (s *txStore) SetStatus(ctx context.Context, code string, status Status) error {
	_, err := s.tx.Exec(ctx, `UPDATE fixed_assets SET status=$2, updated_at=NOW() WHERE code=$1`, code, status)
	return err
}

func mapInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return err
}

func toNumeric(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func toNumericPtr(v *float64) *string {
	if v == nil {
		return nil
	}
	s := toNumeric(*v)
	return &s
}
