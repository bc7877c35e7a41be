package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Expense is the row shape of the expenses table.
type Expense struct {
	ExpenseID           string          `db:"expense_id"`
	Description         string          `db:"description"`
	Amount              decimal.Decimal `db:"amount"`
	CurrencyCode        string          `db:"currency_code"`
	Status              string          `db:"status"`
	SourceAccountID     sql.NullString  `db:"source_account_id"`
	ExpenseAccountID    sql.NullString  `db:"expense_account_id"`
	LedgerTransactionID sql.NullString  `db:"ledger_transaction_id"`
	AuditFields
}

// ExpenseBeneficiary is the row shape of the expense_beneficiaries table.
type ExpenseBeneficiary struct {
	BeneficiaryID     string          `db:"beneficiary_id"`
	ExpenseID         string          `db:"expense_id"`
	Position          int             `db:"position"`
	Name              string          `db:"name"`
	BankName          string          `db:"bank_name"`
	BankCode          string          `db:"bank_code"`
	AccountNumber     string          `db:"account_number"`
	Amount            decimal.Decimal `db:"amount"`
	Status            string          `db:"status"`
	SkipResolution    bool            `db:"skip_resolution"`
	RecipientHandle   sql.NullString  `db:"recipient_handle"`
	TransferReference sql.NullString  `db:"transfer_reference"`
	Attempts          int             `db:"attempts"`
	LastError         sql.NullString  `db:"last_error"`
	PaidAt            sql.NullTime    `db:"paid_at"`
}
