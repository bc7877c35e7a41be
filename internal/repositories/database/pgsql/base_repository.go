package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same repository
// code runs standalone or inside a unit of work.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var (
	_ querier = (*pgxpool.Pool)(nil)
	_ querier = (pgx.Tx)(nil)
)

// BaseRepository provides transaction management over the pool.
type BaseRepository struct {
	Pool *pgxpool.Pool
}

var _ portsrepo.TransactionManager = (*BaseRepository)(nil)

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (portsrepo.UnitOfWork, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	return newPgxUnitOfWork(tx), nil
}

// pgxUnitOfWork binds tx-scoped repositories to one pgx.Tx.
type pgxUnitOfWork struct {
	tx       pgx.Tx
	accounts *PgxAccountRepository
	ledger   *PgxLedgerRepository
	expenses *PgxExpenseRepository
}

func newPgxUnitOfWork(tx pgx.Tx) *pgxUnitOfWork {
	return &pgxUnitOfWork{
		tx:       tx,
		accounts: &PgxAccountRepository{db: tx},
		ledger:   &PgxLedgerRepository{db: tx},
		expenses: &PgxExpenseRepository{db: tx},
	}
}

func (u *pgxUnitOfWork) Accounts() portsrepo.AccountTxRepository { return u.accounts }
func (u *pgxUnitOfWork) Ledger() portsrepo.LedgerTxRepository    { return u.ledger }
func (u *pgxUnitOfWork) Expenses() portsrepo.ExpenseTxRepository { return u.expenses }

// Commit commits a transaction
func (u *pgxUnitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return apperrors.NewInternalError("failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (u *pgxUnitOfWork) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewInternalError("failed to rollback transaction", err)
	}
	return nil
}

// mapWriteError translates unique violations to ErrDuplicate.
func mapWriteError(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", apperrors.ErrDuplicate, what)
	}
	return fmt.Errorf("failed to save %s: %w", what, err)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
