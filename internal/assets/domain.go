package assets

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Method enumerates depreciation methods.
type Method string

const (
	MethodStraightLine      Method = "STRAIGHT_LINE"
	MethodDecliningBalance  Method = "DECLINING_BALANCE"
	MethodDoubleDeclining   Method = "DOUBLE_DECLINING_BALANCE"
	MethodUnitsOfProduction Method = "UNITS_OF_PRODUCTION"
	MethodNone              Method = "NONE"
)

// Valid reports whether m is in the enumeration.
func (m Method) Valid() bool {
	switch m {
	case MethodStraightLine, MethodDecliningBalance, MethodDoubleDeclining, MethodUnitsOfProduction, MethodNone:
		return true
	}
	return false
}

// Status enumerates the fixed asset lifecycle.
type Status string

const (
	StatusActive           Status = "ACTIVE"
	StatusDepreciated      Status = "DEPRECIATED"
	StatusDisposed         Status = "DISPOSED"
	StatusUnderMaintenance Status = "UNDER_MAINTENANCE"
	StatusStolenLost       Status = "STOLEN_LOST"
)

// Valid reports whether s is in the enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDepreciated, StatusDisposed, StatusUnderMaintenance, StatusStolenLost:
		return true
	}
	return false
}

// Category groups assets and carries ledger mappings plus depreciation
// defaults applied to assets registered without explicit settings.
type Category struct {
	ID                     int64     `json:"id"`
	Code                   string    `json:"code"`
	Name                   string    `json:"name"`
	AssetAccountCode       *string   `json:"asset_account_code,omitempty"`
	ExpenseAccountCode     *string   `json:"expense_account_code,omitempty"`
	AccumulatedAccountCode *string   `json:"accumulated_account_code,omitempty"`
	DefaultMethod          Method    `json:"default_method"`
	DefaultRatePercent     float64   `json:"default_rate_percent"`
	DefaultUsefulLifeYears int       `json:"default_useful_life_years"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// FixedAsset is one long-lived asset tracked against the ledger.
type FixedAsset struct {
	ID                      int64      `json:"id"`
	Code                    string     `json:"asset_code"`
	Name                    string     `json:"asset_name"`
	CategoryCode            string     `json:"category_code"`
	PurchaseCost            float64    `json:"purchase_cost"`
	PurchaseDate            *time.Time `json:"purchase_date,omitempty"`
	UsefulLifeYears         int        `json:"useful_life_years"`
	Method                  Method     `json:"depreciation_method"`
	RatePercent             float64    `json:"depreciation_rate"`
	ResidualValue           float64    `json:"residual_value"`
	AccumulatedDepreciation float64    `json:"accumulated_depreciation"`
	// PostedDepreciation is the accumulated amount already recognised in the
	// general ledger. It trails AccumulatedDepreciation until the period's
	// journal entry commits, then catches up.
	PostedDepreciation float64 `json:"posted_depreciation"`
	CurrentBookValue   float64 `json:"current_book_value"`
	Status                  Status     `json:"status"`
	DisposalDate            *time.Time `json:"disposal_date,omitempty"`
	DisposalValue           *float64   `json:"disposal_value,omitempty"`
	PurchaseEntryID         *int64     `json:"purchase_entry_id,omitempty"`
	DisposalEntryID         *int64     `json:"disposal_entry_id,omitempty"`
	LastComputedAt          *time.Time `json:"last_computed_at,omitempty"`
	CreatedBy               string     `json:"created_by"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

var (
	// ErrAssetNotFound indicates a missing fixed asset.
	ErrAssetNotFound = errors.New("assets: asset not found")
	// ErrCategoryNotFound indicates a missing asset category.
	ErrCategoryNotFound = errors.New("assets: category not found")
	// ErrDuplicateCode indicates an asset or category code collision.
	ErrDuplicateCode = errors.New("assets: duplicate code")
	// ErrMissingPurchaseDate indicates a depreciation request on an asset
	// without a recorded purchase date.
	ErrMissingPurchaseDate = errors.New("assets: purchase date missing")
	// ErrAssetPledged indicates the asset is held as loan collateral.
	ErrAssetPledged = errors.New("assets: asset pledged as collateral")
	// ErrAssetDisposed indicates an operation on a disposed asset.
	ErrAssetDisposed = errors.New("assets: asset already disposed")
	// ErrUnsupportedMethod indicates a method without computation support.
	ErrUnsupportedMethod = errors.New("assets: unsupported depreciation method")
	// ErrInvalidStatus indicates a status outside the enumeration.
	ErrInvalidStatus = errors.New("assets: invalid asset status")
)

// RegisterCategoryInput groups fields for creating a category.
type RegisterCategoryInput struct {
	Code                   string
	Name                   string
	AssetAccountCode       *string
	ExpenseAccountCode     *string
	AccumulatedAccountCode *string
	DefaultMethod          Method
	DefaultRatePercent     float64
	DefaultUsefulLifeYears int
}

// Validate checks the category request.
func (in RegisterCategoryInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("assets: category code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("assets: category name required")
	}
	if in.DefaultMethod != "" && !in.DefaultMethod.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, in.DefaultMethod)
	}
	return nil
}

// RegisterAssetInput groups fields for registering an asset at acquisition.
// Zero-valued depreciation settings inherit the category defaults.
type RegisterAssetInput struct {
	Code            string
	Name            string
	CategoryCode    string
	PurchaseCost    float64
	PurchaseDate    *time.Time
	UsefulLifeYears int
	Method          Method
	RatePercent     float64
	ResidualValue   float64
	PurchaseEntryID *int64
	CreatedBy       string
}

// Validate checks the asset registration request.
func (in RegisterAssetInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("assets: asset code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("assets: asset name required")
	}
	if strings.TrimSpace(in.CategoryCode) == "" {
		return errors.New("assets: category code required")
	}
	if in.PurchaseCost <= 0 {
		return errors.New("assets: purchase cost must be positive")
	}
	if in.ResidualValue < 0 {
		return errors.New("assets: residual value cannot be negative")
	}
	if in.ResidualValue >= in.PurchaseCost {
		return errors.New("assets: residual value must be below purchase cost")
	}
	if in.Method != "" && !in.Method.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, in.Method)
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return errors.New("assets: created_by required")
	}
	return nil
}
