package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a ledger transaction.
type TransactionStatus string

const (
	TransactionDraft  TransactionStatus = "DRAFT"
	TransactionPosted TransactionStatus = "POSTED"
)

// EntryDirection indicates whether a ledger entry is a Debit or a Credit.
type EntryDirection string

const (
	Debit  EntryDirection = "DEBIT"
	Credit EntryDirection = "CREDIT"
)

// MetadataExpenseDisbursement tags transactions posted by the disbursement flow.
const MetadataExpenseDisbursement = "expense_disbursement"

// Transaction is one balanced posting. Immutable once POSTED.
type Transaction struct {
	TransactionID   string            `json:"transactionID"`
	Description     string            `json:"description"`
	TransactionDate time.Time         `json:"transactionDate"`
	Status          TransactionStatus `json:"status"`
	Reference       string            `json:"reference,omitempty"`
	Metadata        string            `json:"metadata,omitempty"`
	CurrencyCode    string            `json:"currencyCode"`
	Amount          decimal.Decimal   `json:"amount"` // total of the debit side
	AuditFields
	Entries []LedgerEntry `json:"entries,omitempty"`
}

// LedgerEntry is a single debit or credit line of a Transaction.
type LedgerEntry struct {
	EntryID       string          `json:"entryID"`
	TransactionID string          `json:"transactionID"`
	AccountID     string          `json:"accountID"`
	Amount        decimal.Decimal `json:"amount"` // unsigned magnitude
	Direction     EntryDirection  `json:"direction"`
	CreatedAt     time.Time       `json:"createdAt"`
}
