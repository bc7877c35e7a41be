package dto

import (
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// EntryRequest is one line of a posting. Positive SignedAmount is a debit, negative a credit.
type EntryRequest struct {
	AccountID    string          `json:"accountID" binding:"required"`
	SignedAmount decimal.Decimal `json:"signedAmount" binding:"nonzero_amount"`
}

// CreateTransactionRequest defines a balanced posting.
type CreateTransactionRequest struct {
	Description     string         `json:"description" binding:"required"`
	TransactionDate time.Time      `json:"transactionDate"` // Optional, defaults to now
	Reference       string         `json:"reference"`
	Metadata        string         `json:"metadata" binding:"omitempty,ne=expense_disbursement"`
	CurrencyCode    string         `json:"currencyCode"` // Optional, taken from the accounts when empty
	Entries         []EntryRequest `json:"entries" binding:"required,min=2,dive"`
}

// EntryResponse mirrors domain.LedgerEntry.
type EntryResponse struct {
	EntryID   string                `json:"entryID"`
	AccountID string                `json:"accountID"`
	Amount    decimal.Decimal       `json:"amount"`
	Direction domain.EntryDirection `json:"direction"`
}

// TransactionResponse mirrors domain.Transaction with its entries.
type TransactionResponse struct {
	TransactionID   string                   `json:"transactionID"`
	Description     string                   `json:"description"`
	TransactionDate time.Time                `json:"transactionDate"`
	Status          domain.TransactionStatus `json:"status"`
	Reference       string                   `json:"reference,omitempty"`
	Metadata        string                   `json:"metadata,omitempty"`
	CurrencyCode    string                   `json:"currencyCode"`
	Amount          decimal.Decimal          `json:"amount"`
	Entries         []EntryResponse          `json:"entries"`
	CreatedAt       time.Time                `json:"createdAt"`
	CreatedBy       string                   `json:"createdBy"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	entries := make([]EntryResponse, len(txn.Entries))
	for i, e := range txn.Entries {
		entries[i] = EntryResponse{
			EntryID:   e.EntryID,
			AccountID: e.AccountID,
			Amount:    e.Amount,
			Direction: e.Direction,
		}
	}
	return TransactionResponse{
		TransactionID:   txn.TransactionID,
		Description:     txn.Description,
		TransactionDate: txn.TransactionDate,
		Status:          txn.Status,
		Reference:       txn.Reference,
		Metadata:        txn.Metadata,
		CurrencyCode:    txn.CurrencyCode,
		Amount:          txn.Amount,
		Entries:         entries,
		CreatedAt:       txn.CreatedAt,
		CreatedBy:       txn.CreatedBy,
	}
}
