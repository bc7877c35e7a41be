package repositories

import (
	"context"
)

// UnitOfWork is an open atomic scope. Repositories obtained from it read and
// write inside the same database transaction; nothing is visible to others
// until Commit.
type UnitOfWork interface {
	Accounts() AccountTxRepository
	Ledger() LedgerTxRepository
	Expenses() ExpenseTxRepository

	// Commit makes every write of the unit visible.
	Commit(ctx context.Context) error

	// Rollback discards the unit. Calling it after Commit is a no-op.
	Rollback(ctx context.Context) error
}

// TransactionManager opens units of work.
type TransactionManager interface {
	// Begin starts a new database transaction
	Begin(ctx context.Context) (UnitOfWork, error)
}
