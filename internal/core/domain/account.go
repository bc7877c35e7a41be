package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset          AccountType = "ASSET"
	Liability      AccountType = "LIABILITY"
	Equity         AccountType = "EQUITY"
	Income         AccountType = "INCOME"
	ExpenseAccount AccountType = "EXPENSE"
)

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Income, ExpenseAccount:
		return true
	}
	return false
}

// IsDebitNormal is true for types whose healthy balance grows with debits.
func (t AccountType) IsDebitNormal() bool {
	return t == Asset || t == ExpenseAccount
}

// ProviderBehavior tells the orchestrator whether an account's provider binding moves real money.
type ProviderBehavior string

const (
	ProviderReal      ProviderBehavior = "REAL"
	ProviderSimulated ProviderBehavior = "SIMULATED"
)

// IsValid reports whether b is a known behavior.
func (b ProviderBehavior) IsValid() bool {
	return b == ProviderReal || b == ProviderSimulated
}

// ProviderBinding links an account to the external wallet it mirrors.
type ProviderBinding struct {
	Provider string           `json:"provider"` // registry name, e.g. "paystack"
	Behavior ProviderBehavior `json:"behavior"`
	// SecretKey overrides the configured key for the provider when set.
	SecretKey string `json:"-"`
}

// Account represents a financial account within the core domain.
// Balance is debit-positive: sum of debits minus sum of credits.
type Account struct {
	AccountID    string           `json:"accountID"`
	Name         string           `json:"name"`
	Code         string           `json:"code"` // unique short identifier
	AccountType  AccountType      `json:"accountType"`
	CurrencyCode string           `json:"currencyCode"`
	Description  string           `json:"description"`
	IsActive     bool             `json:"isActive"`
	Provider     *ProviderBinding `json:"provider,omitempty"`
	AuditFields
	Balance decimal.Decimal `json:"balance"`
}

// MirrorsExternalWallet is true when the account is backed by real money held at a provider.
func (a Account) MirrorsExternalWallet() bool {
	return a.Provider != nil && a.Provider.Behavior == ProviderReal
}
