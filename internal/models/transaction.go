package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerTransaction is the row shape of the ledger_transactions table.
type LedgerTransaction struct {
	TransactionID   string          `db:"transaction_id"`
	Description     string          `db:"description"`
	TransactionDate time.Time       `db:"transaction_date"`
	Status          string          `db:"status"`
	Reference       sql.NullString  `db:"reference"`
	Metadata        sql.NullString  `db:"metadata"`
	CurrencyCode    string          `db:"currency_code"`
	Amount          decimal.Decimal `db:"amount"`
	AuditFields
}

// LedgerEntry is the row shape of the ledger_entries table.
type LedgerEntry struct {
	EntryID       string          `db:"entry_id"`
	TransactionID string          `db:"transaction_id"`
	AccountID     string          `db:"account_id"`
	Amount        decimal.Decimal `db:"amount"`
	Direction     string          `db:"direction"`
	CreatedAt     time.Time       `db:"created_at"`
}
