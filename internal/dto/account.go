package dto

import (
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ProviderBindingRequest binds a new account to an external wallet.
type ProviderBindingRequest struct {
	Provider  string                  `json:"provider" binding:"required"`
	Behavior  domain.ProviderBehavior `json:"behavior" binding:"required,oneof=REAL SIMULATED"`
	SecretKey string                  `json:"secretKey"` // Optional, falls back to configured key
}

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Name         string                  `json:"name" binding:"required"`
	Code         string                  `json:"code" binding:"required,max=32"`
	AccountType  domain.AccountType      `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE"`
	CurrencyCode string                  `json:"currencyCode" binding:"required,len=3"`
	Description  string                  `json:"description"` // Optional
	Provider     *ProviderBindingRequest `json:"provider"`    // Optional
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID      string                  `json:"accountID"`
	Name           string                  `json:"name"`
	Code           string                  `json:"code"`
	AccountType    domain.AccountType      `json:"accountType"`
	CurrencyCode   string                  `json:"currencyCode"`
	Description    string                  `json:"description"`
	IsActive       bool                    `json:"isActive"`
	Provider       string                  `json:"provider,omitempty"`
	Behavior       domain.ProviderBehavior `json:"behavior,omitempty"`
	Balance        decimal.Decimal         `json:"balance"`
	DisplayBalance decimal.Decimal         `json:"displayBalance"`
	CreatedAt      time.Time               `json:"createdAt"`
	CreatedBy      string                  `json:"createdBy"`
	LastUpdatedAt  time.Time               `json:"lastUpdatedAt"`
	LastUpdatedBy  string                  `json:"lastUpdatedBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO.
// displayBalance is computed by the caller so this package stays free of accounting rules.
func ToAccountResponse(acc *domain.Account, displayBalance decimal.Decimal) AccountResponse {
	resp := AccountResponse{
		AccountID:      acc.AccountID,
		Name:           acc.Name,
		Code:           acc.Code,
		AccountType:    acc.AccountType,
		CurrencyCode:   acc.CurrencyCode,
		Description:    acc.Description,
		IsActive:       acc.IsActive,
		Balance:        acc.Balance,
		DisplayBalance: displayBalance,
		CreatedAt:      acc.CreatedAt,
		CreatedBy:      acc.CreatedBy,
		LastUpdatedAt:  acc.LastUpdatedAt,
		LastUpdatedBy:  acc.LastUpdatedBy,
	}
	if acc.Provider != nil {
		resp.Provider = acc.Provider.Provider
		resp.Behavior = acc.Provider.Behavior
	}
	return resp
}

// AccountBalanceResponse defines the data returned for an account balance query.
type AccountBalanceResponse struct {
	AccountID      string             `json:"accountID"`
	AccountType    domain.AccountType `json:"accountType"`
	CurrencyCode   string             `json:"currencyCode"`
	Balance        decimal.Decimal    `json:"balance"`
	DisplayBalance decimal.Decimal    `json:"displayBalance"`
}

// BalanceReconciliationResponse compares the stored balance with one recomputed from entries.
type BalanceReconciliationResponse struct {
	AccountID         string          `json:"accountID"`
	StoredBalance     decimal.Decimal `json:"storedBalance"`
	RecomputedBalance decimal.Decimal `json:"recomputedBalance"`
	Drift             decimal.Decimal `json:"drift"`
}

// ResolveAccountHolderRequest asks the account's provider for the owner of a bank account.
type ResolveAccountHolderRequest struct {
	AccountNumber string `json:"accountNumber" binding:"required,numeric"`
	BankCode      string `json:"bankCode" binding:"required"`
}
