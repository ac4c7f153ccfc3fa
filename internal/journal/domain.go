package journal

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arthaledger/arthaledger/internal/accounts"
)

// BalanceEpsilon is the currency-rounding tolerance when comparing total
// debits against total credits.
const BalanceEpsilon = 0.01

// Type enumerates journal entry source categories.
type Type string

const (
	TypeLoanDisbursement  Type = "LOAN_DISBURSEMENT"
	TypeLoanRepayment     Type = "LOAN_REPAYMENT"
	TypeSavingsDeposit    Type = "SAVINGS_DEPOSIT"
	TypeSavingsWithdrawal Type = "SAVINGS_WITHDRAWAL"
	TypeExpense           Type = "EXPENSE"
	TypePayroll           Type = "PAYROLL"
	TypeAssetPurchase     Type = "ASSET_PURCHASE"
	TypeDepreciation      Type = "DEPRECIATION"
	TypeAdjustment        Type = "ADJUSTMENT"
	TypeClosing           Type = "CLOSING"
	TypeGeneral           Type = "GENERAL"
)

var typePrefixes = map[Type]string{
	TypeLoanDisbursement:  "LDB",
	TypeLoanRepayment:     "LRP",
	TypeSavingsDeposit:    "SDP",
	TypeSavingsWithdrawal: "SWD",
	TypeExpense:           "EXP",
	TypePayroll:           "PAY",
	TypeAssetPurchase:     "AST",
	TypeDepreciation:      "DPR",
	TypeAdjustment:        "ADJ",
	TypeClosing:           "CLS",
	TypeGeneral:           "GEN",
}

// Prefix returns the journal-number prefix for the type.
func (t Type) Prefix() (string, error) {
	p, ok := typePrefixes[t]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return p, nil
}

// FormatNumber renders a journal number from a type prefix and sequence value.
func FormatNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}

// Status enumerates the journal entry lifecycle.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPosted   Status = "POSTED"
	StatusApproved Status = "APPROVED"
	StatusReversed Status = "REVERSED"
)

// Entry is one balanced financial event. Lines are owned exclusively by the
// entry and are stored as records referencing accounts by code.
type Entry struct {
	ID           int64      `json:"id"`
	Number       string     `json:"journal_number"`
	Date         time.Time  `json:"transaction_date"`
	Description  string     `json:"description"`
	Reference    string     `json:"reference"`
	Type         Type       `json:"journal_type"`
	Status       Status     `json:"status"`
	SourceModule string     `json:"source_module,omitempty"`
	SourceID     uuid.UUID  `json:"source_id,omitempty"`
	TotalDebit   float64    `json:"total_debit"`
	TotalCredit  float64    `json:"total_credit"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	PostedBy     *string    `json:"posted_by,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	ApprovedBy   *string    `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	ReversedAt   *time.Time `json:"reversed_at,omitempty"`
	ReversalNote *string    `json:"reversal_note,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Lines        []Line     `json:"lines,omitempty"`
}

// Line stores one debit or credit movement of an entry. AccountName is a
// snapshot taken from the registry at creation time. The correlation
// references are for traceability only and never affect ledger math.
type Line struct {
	ID          int64         `json:"id"`
	EntryID     int64         `json:"entry_id"`
	LineNumber  int           `json:"line_number"`
	AccountCode string        `json:"account_code"`
	AccountName string        `json:"account_name"`
	Side        accounts.Side `json:"type"`
	Amount      float64       `json:"amount"`
	Description *string       `json:"description,omitempty"`
	MemberRef   *string       `json:"member_ref,omitempty"`
	LoanRef     *string       `json:"loan_ref,omitempty"`
	SavingsRef  *string       `json:"savings_ref,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsBalanced reports whether debits equal credits within BalanceEpsilon.
func (e Entry) IsBalanced() bool {
	return math.Abs(e.TotalDebit-e.TotalCredit) < BalanceEpsilon
}

var (
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("journal: entry not found")
	// ErrUnbalanced indicates total debits differ from total credits.
	ErrUnbalanced = errors.New("journal: debits and credits must balance")
	// ErrEmptyEntry indicates an entry without lines.
	ErrEmptyEntry = errors.New("journal: entry requires at least one line")
	// ErrInvalidTransition indicates an illegal lifecycle move.
	ErrInvalidTransition = errors.New("journal: invalid status transition")
	// ErrSourceAlreadyLinked indicates an idempotency conflict on the source link.
	ErrSourceAlreadyLinked = errors.New("journal: source already linked")
	// ErrUnknownType indicates a journal type outside the enumeration.
	ErrUnknownType = errors.New("journal: unknown journal type")
)

// LineInput describes one line of a creation request.
type LineInput struct {
	AccountCode string
	AccountName string
	Side        accounts.Side
	Amount      float64
	Description *string
	MemberRef   *string
	LoanRef     *string
	SavingsRef  *string
}

// CreateInput groups fields required to create a journal entry.
type CreateInput struct {
	Date         time.Time
	Description  string
	Reference    string
	Type         Type
	SourceModule string
	SourceID     uuid.UUID
	CreatedBy    string
	Lines        []LineInput
}

// Totals sums the request's debit and credit sides.
func (in CreateInput) Totals() (debit, credit float64) {
	for _, line := range in.Lines {
		if line.Side == accounts.SideDebit {
			debit += line.Amount
		} else {
			credit += line.Amount
		}
	}
	return debit, credit
}

// Validate ensures the request describes a balanced, economically meaningful
// entry. Balance is a creation-time precondition, not merely a posting-time
// one.
func (in CreateInput) Validate() error {
	if _, err := in.Type.Prefix(); err != nil {
		return err
	}
	if len(in.Lines) == 0 {
		return ErrEmptyEntry
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return errors.New("journal: created_by required")
	}
	for idx, line := range in.Lines {
		if strings.TrimSpace(line.AccountCode) == "" {
			return fmt.Errorf("journal: line %d missing account code", idx+1)
		}
		if !line.Side.Valid() {
			return fmt.Errorf("journal: line %d invalid type %q", idx+1, line.Side)
		}
		if line.Amount <= 0 {
			return fmt.Errorf("journal: line %d amount must be positive", idx+1)
		}
	}
	debit, credit := in.Totals()
	if math.Abs(debit-credit) >= BalanceEpsilon {
		return fmt.Errorf("%w: debit %.2f credit %.2f", ErrUnbalanced, debit, credit)
	}
	return nil
}
