package pgsql

import (
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every repository of one set of books to dbPool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo: newPgxAccountRepository(dbPool),
		LedgerRepo:  newPgxLedgerRepository(dbPool),
		ExpenseRepo: newPgxExpenseRepository(dbPool),
		UserRepo:    newPgxUserRepository(dbPool),
		OTPRepo:     newPgxOTPRepository(dbPool),
		TxManager:   &BaseRepository{Pool: dbPool},
	}
}

// NewOTPRepository exposes the Postgres code store for callers that pick the OTP backend separately.
func NewOTPRepository(dbPool *pgxpool.Pool) portsrepo.OTPRepository {
	return newPgxOTPRepository(dbPool)
}

// NewUserRepository exposes the Postgres user store shared across modes.
func NewUserRepository(dbPool *pgxpool.Pool) portsrepo.UserRepositoryFacade {
	return newPgxUserRepository(dbPool)
}
