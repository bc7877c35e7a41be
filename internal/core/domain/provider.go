package domain

import "github.com/shopspring/decimal"

// AccountHolder is the result of a bank account name enquiry.
type AccountHolder struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
}

// RecipientRequest describes a payee to register with a provider.
type RecipientRequest struct {
	Name          string
	AccountNumber string
	BankCode      string
	CurrencyCode  string
}

// TransferRequest asks a provider to move Amount (major units) to a registered recipient.
// Reference is our idempotency key for the attempt and is used for status lookups.
type TransferRequest struct {
	Amount          decimal.Decimal
	CurrencyCode    string
	RecipientHandle string
	Recipient       RecipientRequest
	Memo            string
	Reference       string
}

// TransferStatus is the provider-reported state of a transfer.
type TransferStatus string

const (
	TransferSuccess  TransferStatus = "SUCCESS"
	TransferPending  TransferStatus = "PENDING"
	TransferFailed   TransferStatus = "FAILED"
	TransferNotFound TransferStatus = "NOT_FOUND"
)

// TransferResult is returned when a provider accepts a transfer.
type TransferResult struct {
	Reference  string         `json:"reference"`
	ProviderID string         `json:"providerID"`
	Status     TransferStatus `json:"status"`
	Message    string         `json:"message"`
}
