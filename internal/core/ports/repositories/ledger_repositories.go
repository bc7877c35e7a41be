package repositories

import (
	"context"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerReader defines read operations for transactions and their entries
type LedgerReader interface {
	// FindTransactionByID retrieves a transaction header.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindEntriesByTransactionID retrieves the entries of a transaction.
	FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)

	// FindTransactionsByReference lists transactions posted with the given reference.
	FindTransactionsByReference(ctx context.Context, reference string) ([]domain.Transaction, error)

	// SumEntriesByAccount totals every entry ever posted against an account.
	SumEntriesByAccount(ctx context.Context, accountID string) (debits decimal.Decimal, credits decimal.Decimal, err error)
}

// LedgerRepositoryFacade is the pool-level ledger repository.
type LedgerRepositoryFacade interface {
	LedgerReader
}

// LedgerTxRepository is the ledger view of a UnitOfWork.
type LedgerTxRepository interface {
	// SaveTransaction inserts a transaction header and all of its entries.
	SaveTransaction(ctx context.Context, txn domain.Transaction, entries []domain.LedgerEntry) error
}
