package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type LedgerRepository struct {
	s *Store
}

var _ portsrepo.LedgerRepositoryFacade = (*LedgerRepository)(nil)

func (r *LedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	txn, ok := r.s.transactions[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (r *LedgerRepository) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return slices.Clone(r.s.entries[transactionID]), nil
}

func (r *LedgerRepository) FindTransactionsByReference(ctx context.Context, reference string) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	txns := []domain.Transaction{}
	for _, txn := range r.s.transactions {
		if txn.Reference == reference {
			txns = append(txns, txn)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.Before(txns[j].CreatedAt) })
	return txns, nil
}

func (r *LedgerRepository) SumEntriesByAccount(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	debits, credits := decimal.Zero, decimal.Zero
	for _, entries := range r.s.entries {
		for _, e := range entries {
			if e.AccountID != accountID {
				continue
			}
			if e.Direction == domain.Debit {
				debits = debits.Add(e.Amount)
			} else {
				credits = credits.Add(e.Amount)
			}
		}
	}
	return debits, credits, nil
}

type ledgerTxRepository struct {
	u *unitOfWork
}

var _ portsrepo.LedgerTxRepository = (*ledgerTxRepository)(nil)

func (r *ledgerTxRepository) SaveTransaction(ctx context.Context, txn domain.Transaction, entries []domain.LedgerEntry) error {
	return r.u.apply(func() (func(), error) {
		if _, exists := r.u.s.transactions[txn.TransactionID]; exists {
			return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, txn.TransactionID)
		}
		stored := txn
		stored.Entries = nil
		r.u.s.transactions[txn.TransactionID] = stored
		r.u.s.entries[txn.TransactionID] = slices.Clone(entries)
		return func() {
			delete(r.u.s.transactions, txn.TransactionID)
			delete(r.u.s.entries, txn.TransactionID)
		}, nil
	})
}
