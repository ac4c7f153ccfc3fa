package journal

import "time"

// CreateEntryRequest is the JSON payload for creating a journal entry.
type CreateEntryRequest struct {
	Date         *time.Time         `json:"transaction_date,omitempty"`
	Description  string             `json:"description" validate:"required,max=500"`
	Reference    string             `json:"reference" validate:"max=100"`
	Type         string             `json:"journal_type" validate:"required"`
	SourceModule string             `json:"source_module" validate:"max=50"`
	SourceID     string             `json:"source_id" validate:"omitempty,uuid"`
	CreatedBy    string             `json:"created_by" validate:"required,max=100"`
	AutoPost     bool               `json:"auto_post"`
	Lines        []EntryLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// EntryLineRequest is one line of a creation request.
type EntryLineRequest struct {
	AccountCode string  `json:"account_code" validate:"required,max=20"`
	AccountName string  `json:"account_name" validate:"max=200"`
	Type        string  `json:"type" validate:"required,oneof=DEBIT CREDIT"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	MemberRef   *string `json:"member_ref,omitempty" validate:"omitempty,max=100"`
	LoanRef     *string `json:"loan_ref,omitempty" validate:"omitempty,max=100"`
	SavingsRef  *string `json:"savings_ref,omitempty" validate:"omitempty,max=100"`
}

// ActionRequest carries the actor for post/approve requests.
type ActionRequest struct {
	Actor string `json:"actor" validate:"required,max=100"`
}

// ReverseRequest carries the actor and reason for reversal requests.
type ReverseRequest struct {
	Actor  string `json:"actor" validate:"required,max=100"`
	Reason string `json:"reason" validate:"max=500"`
}
