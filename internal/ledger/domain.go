package ledger

import (
	"errors"
	"time"

	"github.com/arthaledger/arthaledger/internal/accounts"
)

// Row is one general ledger movement: exactly one of Debit or Credit is
// non-zero, Balance is the account's running balance immediately after the
// movement. Rows are append-only and never updated or deleted.
type Row struct {
	ID           int64     `json:"id"`
	AccountCode  string    `json:"account_code"`
	AccountName  string    `json:"account_name"`
	Date         time.Time `json:"date"`
	Reference    string    `json:"reference"`
	Description  string    `json:"description"`
	Debit        float64   `json:"debit"`
	Credit       float64   `json:"credit"`
	Balance      float64   `json:"balance"`
	EntryID      int64     `json:"entry_id"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Statement is the movement history of one account.
type Statement struct {
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Rows        []Row  `json:"rows"`
}

// TrialBalanceLine aggregates one account for the trial balance report.
type TrialBalanceLine struct {
	AccountCode   string               `json:"account_code"`
	AccountName   string               `json:"account_name"`
	Type          accounts.AccountType `json:"type"`
	NormalBalance accounts.Side        `json:"normal_balance"`
	Debit         float64              `json:"debit"`
	Credit        float64              `json:"credit"`
}

// TrialBalance is the full report with control totals.
type TrialBalance struct {
	AsOf        time.Time          `json:"as_of"`
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  float64            `json:"total_debit"`
	TotalCredit float64            `json:"total_credit"`
}

// Discrepancy reports an account whose running balance disagrees with the
// signed sum of its ledger rows.
type Discrepancy struct {
	AccountCode    string  `json:"account_code"`
	AccountName    string  `json:"account_name"`
	CurrentBalance float64 `json:"current_balance"`
	LedgerBalance  float64 `json:"ledger_balance"`
	Difference     float64 `json:"difference"`
}

// ErrUnknownAccount indicates a statement request for a code the registry
// does not know.
var ErrUnknownAccount = errors.New("ledger: unknown account")
