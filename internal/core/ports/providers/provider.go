package providers

import (
	"context"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PaymentProvider is the capability every bank-transfer rail implements.
// Amounts cross this interface in major units; adapters convert to the rail's unit.
type PaymentProvider interface {
	// Name returns the registry name of the rail.
	Name() string

	// ResolveAccountHolder verifies a bank account and returns its owner. No side effects.
	ResolveAccountHolder(ctx context.Context, accountNumber, bankCode string) (*domain.AccountHolder, error)

	// RegisterRecipient creates a payout recipient and returns its handle.
	RegisterRecipient(ctx context.Context, req domain.RecipientRequest) (string, error)

	// InitiateTransfer moves money to a recipient.
	InitiateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error)

	// CheckTransferStatus looks up a transfer by the reference passed to InitiateTransfer.
	CheckTransferStatus(ctx context.Context, reference string) (domain.TransferStatus, error)

	// GetWalletBalance returns the float held at the provider.
	GetWalletBalance(ctx context.Context, currencyCode string) (decimal.Decimal, error)
}

// Resolver selects the provider for a funding account.
type Resolver interface {
	ForAccount(account domain.Account) (PaymentProvider, error)
}
