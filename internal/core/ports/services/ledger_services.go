package services

import (
	"context"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
)

// LedgerWriterSvc defines posting operations
type LedgerWriterSvc interface {
	// CreateTransaction validates and posts a balanced transaction in its own unit of work.
	CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest, creatorUserID string) (*domain.Transaction, error)

	// CreateTransactionInTx posts inside a caller-owned unit of work and does not commit it.
	CreateTransactionInTx(ctx context.Context, uow portsrepo.UnitOfWork, req dto.CreateTransactionRequest, creatorUserID string) (*domain.Transaction, error)
}

// LedgerReaderSvc defines read operations on the ledger
type LedgerReaderSvc interface {
	// GetTransaction retrieves a transaction with its entries.
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// GetAccountBalance returns raw and display balance of an account.
	GetAccountBalance(ctx context.Context, accountID string) (*dto.AccountBalanceResponse, error)

	// RecomputeAccountBalance rebuilds a balance from entries and reports drift against the stored one.
	RecomputeAccountBalance(ctx context.Context, accountID string) (*dto.BalanceReconciliationResponse, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerWriterSvc
	LedgerReaderSvc
}
