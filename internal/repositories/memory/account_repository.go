package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	s *Store
}

var _ portsrepo.AccountRepositoryFacade = (*AccountRepository)(nil)

func copyAccount(a domain.Account) domain.Account {
	if a.Provider != nil {
		p := *a.Provider
		a.Provider = &p
	}
	return a
}

func (s *Store) findAccountByID(accountID string) (*domain.Account, error) {
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	acc = copyAccount(acc)
	return &acc, nil
}

func (s *Store) findAccountsByIDs(accountIDs []string) map[string]domain.Account {
	found := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if acc, ok := s.accounts[id]; ok {
			found[id] = copyAccount(acc)
		}
	}
	return found
}

func (s *Store) findAccountByCode(code string) (*domain.Account, error) {
	id, ok := s.accountCodes[code]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return s.findAccountByID(id)
}

func (r *AccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	return r.s.write(ctx, func() error {
		if _, exists := r.s.accounts[account.AccountID]; exists {
			return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, account.AccountID)
		}
		if _, exists := r.s.accountCodes[account.Code]; exists {
			return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, account.Code)
		}
		r.s.accounts[account.AccountID] = copyAccount(account)
		r.s.accountCodes[account.Code] = account.AccountID
		return nil
	})
}

func (r *AccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.findAccountByID(accountID)
}

func (r *AccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.findAccountByCode(code)
}

func (r *AccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.findAccountsByIDs(accountIDs), nil
}

type accountTxRepository struct {
	u *unitOfWork
}

var _ portsrepo.AccountTxRepository = (*accountTxRepository)(nil)

func (r *accountTxRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	r.u.s.mu.RLock()
	defer r.u.s.mu.RUnlock()
	return r.u.s.findAccountByID(accountID)
}

func (r *accountTxRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	r.u.s.mu.RLock()
	defer r.u.s.mu.RUnlock()
	return r.u.s.findAccountByCode(code)
}

func (r *accountTxRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	r.u.s.mu.RLock()
	defer r.u.s.mu.RUnlock()
	return r.u.s.findAccountsByIDs(accountIDs), nil
}

// FindAccountsByIDsForUpdate needs no row locks: the unit already owns the store.
func (r *accountTxRepository) FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	return r.FindAccountsByIDs(ctx, accountIDs)
}

func (r *accountTxRepository) UpdateAccountBalances(ctx context.Context, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) error {
	return r.u.apply(func() (func(), error) {
		ids := make([]string, 0, len(balanceChanges))
		for id := range balanceChanges {
			if _, ok := r.u.s.accounts[id]; !ok {
				return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
			}
			ids = append(ids, id)
		}
		sort.Strings(ids)

		previous := make(map[string]domain.Account, len(ids))
		for _, id := range ids {
			acc := r.u.s.accounts[id]
			previous[id] = acc
			acc.Balance = acc.Balance.Add(balanceChanges[id])
			acc.LastUpdatedAt = now
			acc.LastUpdatedBy = userID
			r.u.s.accounts[id] = acc
		}
		return func() {
			for id, acc := range previous {
				r.u.s.accounts[id] = acc
			}
		}, nil
	})
}
