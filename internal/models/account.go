package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Account is the row shape of the accounts table.
// The provider columns are NULL when the account is not bound to an external wallet.
type Account struct {
	AccountID        string         `db:"account_id"`
	Name             string         `db:"name"`
	Code             string         `db:"code"`
	AccountType      string         `db:"account_type"`
	CurrencyCode     string         `db:"currency_code"`
	Description      string         `db:"description"`
	IsActive         bool           `db:"is_active"`
	ProviderName     sql.NullString `db:"provider_name"`
	ProviderBehavior sql.NullString `db:"provider_behavior"`
	ProviderSecret   sql.NullString `db:"provider_secret"`
	AuditFields
	Balance decimal.Decimal `db:"balance"`
}
