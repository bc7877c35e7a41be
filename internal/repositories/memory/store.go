// Package memory is an in-process implementation of the repository ports.
// It backs test mode when no test database is configured and the service unit tests.
package memory

import (
	"context"
	"sync"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
)

// Store holds one set of books.
//
// A unit of work owns the write slot (sem) from Begin until Commit or Rollback,
// which gives it the same exclusivity a FOR UPDATE lock gives on Postgres.
// Standalone writes take the same slot. Reads only take mu and may observe
// writes of an open unit.
type Store struct {
	sem chan struct{}
	mu  sync.RWMutex

	accounts      map[string]domain.Account
	accountCodes  map[string]string
	transactions  map[string]domain.Transaction
	entries       map[string][]domain.LedgerEntry
	expenses      map[string]domain.Expense
	beneficiaries map[string]domain.ExpenseBeneficiary
	expenseOrder  map[string][]string
	users         map[string]domain.User
	codes         map[string]domain.OneTimeCode
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sem:           make(chan struct{}, 1),
		accounts:      map[string]domain.Account{},
		accountCodes:  map[string]string{},
		transactions:  map[string]domain.Transaction{},
		entries:       map[string][]domain.LedgerEntry{},
		expenses:      map[string]domain.Expense{},
		beneficiaries: map[string]domain.ExpenseBeneficiary{},
		expenseOrder:  map[string][]string{},
		users:         map[string]domain.User{},
		codes:         map[string]domain.OneTimeCode{},
	}
}

// NewRepositoryProvider wires every repository to a fresh store.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	return NewStore().RepositoryProvider()
}

// RepositoryProvider exposes s through the repository ports.
func (s *Store) RepositoryProvider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo: &AccountRepository{s: s},
		LedgerRepo:  &LedgerRepository{s: s},
		ExpenseRepo: &ExpenseRepository{s: s},
		UserRepo:    &UserRepository{s: s},
		OTPRepo:     &OTPRepository{s: s},
		TxManager:   s,
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return apperrors.NewInternalError("timed out waiting for store lock", ctx.Err())
	}
}

func (s *Store) release() {
	<-s.sem
}

// write runs fn with exclusive access, outside any unit of work.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

var _ portsrepo.TransactionManager = (*Store)(nil)

// Begin opens a unit of work. It blocks while another unit is open.
func (s *Store) Begin(ctx context.Context) (portsrepo.UnitOfWork, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	return &unitOfWork{s: s}, nil
}

// unitOfWork applies writes directly and keeps an undo log for Rollback.
type unitOfWork struct {
	s    *Store
	undo []func()
	done bool
}

func (u *unitOfWork) Accounts() portsrepo.AccountTxRepository { return &accountTxRepository{u: u} }
func (u *unitOfWork) Ledger() portsrepo.LedgerTxRepository    { return &ledgerTxRepository{u: u} }
func (u *unitOfWork) Expenses() portsrepo.ExpenseTxRepository { return &expenseTxRepository{u: u} }

// apply runs fn under the data lock. fn returns the closure that reverts it.
func (u *unitOfWork) apply(fn func() (func(), error)) error {
	if u.done {
		return apperrors.NewInternalError("unit of work already finished", nil)
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	revert, err := fn()
	if err != nil {
		return err
	}
	if revert != nil {
		u.undo = append(u.undo, revert)
	}
	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return apperrors.NewInternalError("unit of work already finished", nil)
	}
	u.done = true
	u.undo = nil
	u.s.release()
	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.s.mu.Lock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.s.mu.Unlock()
	u.undo = nil
	u.s.release()
	return nil
}
