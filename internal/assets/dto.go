package assets

// RegisterCategoryRequest is the JSON payload for creating a category.
type RegisterCategoryRequest struct {
	Code                   string  `json:"code" validate:"required,max=20"`
	Name                   string  `json:"name" validate:"required,max=120"`
	AssetAccountCode       *string `json:"asset_account_code,omitempty"`
	ExpenseAccountCode     *string `json:"expense_account_code,omitempty"`
	AccumulatedAccountCode *string `json:"accumulated_account_code,omitempty"`
	DefaultMethod          string  `json:"default_method,omitempty"`
	DefaultRatePercent     float64 `json:"default_rate_percent,omitempty" validate:"gte=0,lte=100"`
	DefaultUsefulLifeYears int     `json:"default_useful_life_years,omitempty" validate:"gte=0"`
}

// RegisterAssetRequest is the JSON payload for registering an asset.
type RegisterAssetRequest struct {
	Code            string  `json:"asset_code" validate:"required,max=30"`
	Name            string  `json:"asset_name" validate:"required,max=160"`
	CategoryCode    string  `json:"category_code" validate:"required"`
	PurchaseCost    float64 `json:"purchase_cost" validate:"required,gt=0"`
	PurchaseDate    string  `json:"purchase_date,omitempty"`
	UsefulLifeYears int     `json:"useful_life_years,omitempty" validate:"gte=0"`
	Method          string  `json:"depreciation_method,omitempty"`
	RatePercent     float64 `json:"depreciation_rate,omitempty" validate:"gte=0,lte=100"`
	ResidualValue   float64 `json:"residual_value,omitempty" validate:"gte=0"`
	PurchaseEntryID *int64  `json:"purchase_entry_id,omitempty"`
	CreatedBy       string  `json:"created_by" validate:"required"`
}

// ComputeRequest triggers an on-demand depreciation computation.
type ComputeRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

// DisposeRequest terminates an asset.
type DisposeRequest struct {
	DisposalValue float64 `json:"disposal_value" validate:"gte=0"`
	DisposalDate  string  `json:"disposal_date" validate:"required"`
	Actor         string  `json:"actor" validate:"required"`
}

// StatusRequest moves an asset between non-terminal states.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
	Actor  string `json:"actor" validate:"required"`
}

// RunRequest triggers a manual depreciation batch.
type RunRequest struct {
	AsOf  string `json:"as_of,omitempty"`
	Actor string `json:"actor" validate:"required"`
}
