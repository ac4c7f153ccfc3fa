package accounts

// RegisterAccountRequest is the JSON payload for registering an account.
type RegisterAccountRequest struct {
	Code          string  `json:"code" validate:"required,max=20,alphanum"`
	Name          string  `json:"name" validate:"required,max=200"`
	Type          string  `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Category      string  `json:"category" validate:"max=100"`
	ParentCode    *string `json:"parent_code,omitempty" validate:"omitempty,max=20"`
	NormalBalance *string `json:"normal_balance,omitempty" validate:"omitempty,oneof=DEBIT CREDIT"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=500"`
	IsSystem      bool    `json:"is_system"`
	CreatedBy     string  `json:"created_by" validate:"required,max=100"`
}

// UpdateAccountRequest is the JSON payload for updating an account.
type UpdateAccountRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active,omitempty"`
	UpdatedBy   string  `json:"updated_by" validate:"required,max=100"`
}

// DeactivateAccountRequest carries the actor for deactivation requests.
type DeactivateAccountRequest struct {
	Actor string `json:"actor" validate:"required,max=100"`
}
