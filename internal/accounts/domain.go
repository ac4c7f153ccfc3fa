package accounts

import (
	"errors"
	"time"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Side is the polarity of a movement or an account's normal balance.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Account models a chart of accounts node. CurrentBalance is the running
// total in the account's own normal-balance polarity and is mutated only by
// the journal posting transaction.
type Account struct {
	ID             int64       `json:"id"`
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	Category       string      `json:"category"`
	ParentCode     *string     `json:"parent_code,omitempty"`
	NormalBalance  Side        `json:"normal_balance"`
	Description    *string     `json:"description,omitempty"`
	IsActive       bool        `json:"is_active"`
	IsSystem       bool        `json:"is_system"`
	CurrentBalance float64     `json:"current_balance"`
	CreatedBy      string      `json:"created_by"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedBy      *string     `json:"updated_by,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

var (
	// ErrAccountNotFound indicates a missing account code.
	ErrAccountNotFound = errors.New("accounts: account not found")
	// ErrDuplicateCode indicates the account code is already registered.
	ErrDuplicateCode = errors.New("accounts: duplicate account code")
	// ErrSystemAccountImmutable indicates an attempt to modify a system account.
	ErrSystemAccountImmutable = errors.New("accounts: system account is immutable")
	// ErrInvalidType indicates an unknown account type.
	ErrInvalidType = errors.New("accounts: invalid account type")
	// ErrInvalidSide indicates an unknown balance polarity.
	ErrInvalidSide = errors.New("accounts: invalid balance side")
	// ErrParentNotFound indicates the parent account code does not resolve.
	ErrParentNotFound = errors.New("accounts: parent account not found")
)

// ValidTypes lists account types in presentation order.
var ValidTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// DefaultNormalBalance returns the side an account type naturally increases on.
func DefaultNormalBalance(t AccountType) (Side, error) {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit, nil
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return SideCredit, nil
	default:
		return "", ErrInvalidType
	}
}

// MovementDelta applies the normal-balance sign rule: a movement on the
// account's normal side increases the balance, the opposite side decreases
// it. The single rule covers all five account types.
func MovementDelta(normal, movement Side, amount float64) float64 {
	if normal == movement {
		return amount
	}
	return -amount
}

// Opposite flips a side.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// Valid reports whether the side is DEBIT or CREDIT.
func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}
