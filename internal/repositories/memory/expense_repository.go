package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
)

type ExpenseRepository struct {
	s *Store
}

var _ portsrepo.ExpenseRepositoryFacade = (*ExpenseRepository)(nil)

func (s *Store) findExpense(expenseID string) (*domain.Expense, error) {
	expense, ok := s.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
	}
	return &expense, nil
}

func (s *Store) findBeneficiaries(expenseID string) []domain.ExpenseBeneficiary {
	ids := s.expenseOrder[expenseID]
	bs := make([]domain.ExpenseBeneficiary, 0, len(ids))
	for _, id := range ids {
		bs = append(bs, s.beneficiaries[id])
	}
	return bs
}

// updateBeneficiary applies fn to a PENDING beneficiary.
func (s *Store) updateBeneficiary(beneficiaryID string, fn func(b *domain.ExpenseBeneficiary)) error {
	b, ok := s.beneficiaries[beneficiaryID]
	if !ok {
		return fmt.Errorf("beneficiary %s: %w", beneficiaryID, apperrors.ErrNotFound)
	}
	if b.Status != domain.BeneficiaryPending {
		return fmt.Errorf("%w: beneficiary %s is not pending", apperrors.ErrInvalidState, beneficiaryID)
	}
	fn(&b)
	s.beneficiaries[beneficiaryID] = b
	return nil
}

func (r *ExpenseRepository) SaveExpense(ctx context.Context, expense domain.Expense, beneficiaries []domain.ExpenseBeneficiary) error {
	return r.s.write(ctx, func() error {
		if _, exists := r.s.expenses[expense.ExpenseID]; exists {
			return fmt.Errorf("%w: expense %s", apperrors.ErrDuplicate, expense.ExpenseID)
		}
		for _, b := range beneficiaries {
			if _, exists := r.s.beneficiaries[b.BeneficiaryID]; exists {
				return fmt.Errorf("%w: beneficiary %s", apperrors.ErrDuplicate, b.BeneficiaryID)
			}
		}

		ordered := append([]domain.ExpenseBeneficiary(nil), beneficiaries...)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
		ids := make([]string, 0, len(ordered))
		for _, b := range ordered {
			b.ExpenseID = expense.ExpenseID
			r.s.beneficiaries[b.BeneficiaryID] = b
			ids = append(ids, b.BeneficiaryID)
		}
		stored := expense
		stored.Beneficiaries = nil
		r.s.expenses[expense.ExpenseID] = stored
		r.s.expenseOrder[expense.ExpenseID] = ids
		return nil
	})
}

func (r *ExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.findExpense(expenseID)
}

func (r *ExpenseRepository) FindBeneficiariesByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseBeneficiary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.findBeneficiaries(expenseID), nil
}

func (r *ExpenseRepository) UpdateExpenseStatus(ctx context.Context, expenseID string, from, to domain.ExpenseStatus, userID string, now time.Time) error {
	return r.s.write(ctx, func() error {
		expense, ok := r.s.expenses[expenseID]
		if !ok {
			return fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
		}
		if expense.Status != from {
			return fmt.Errorf("%w: expense %s is not %s", apperrors.ErrInvalidState, expenseID, from)
		}
		expense.Status = to
		expense.LastUpdatedAt = now
		expense.LastUpdatedBy = userID
		r.s.expenses[expenseID] = expense
		return nil
	})
}

func (r *ExpenseRepository) RecordBeneficiaryAttempt(ctx context.Context, beneficiaryID, reference, recipientHandle string, attempt int, now time.Time) error {
	return r.s.write(ctx, func() error {
		return r.s.updateBeneficiary(beneficiaryID, func(b *domain.ExpenseBeneficiary) {
			b.TransferReference = reference
			if recipientHandle != "" {
				b.RecipientHandle = recipientHandle
			}
			b.Attempts = attempt
			b.LastError = ""
		})
	})
}

func (r *ExpenseRepository) RecordBeneficiaryFailure(ctx context.Context, beneficiaryID, cause string, now time.Time) error {
	return r.s.write(ctx, func() error {
		err := r.s.updateBeneficiary(beneficiaryID, func(b *domain.ExpenseBeneficiary) {
			b.LastError = cause
		})
		// A paid beneficiary keeps its record untouched.
		if err != nil && !isInvalidState(err) {
			return err
		}
		return nil
	})
}

func (r *ExpenseRepository) MarkBeneficiaryPaid(ctx context.Context, beneficiaryID, reference string, now time.Time) error {
	return r.s.write(ctx, func() error {
		return r.s.updateBeneficiary(beneficiaryID, func(b *domain.ExpenseBeneficiary) {
			paidAt := now
			b.Status = domain.BeneficiaryPaid
			b.TransferReference = reference
			b.LastError = ""
			b.PaidAt = &paidAt
		})
	})
}

type expenseTxRepository struct {
	u *unitOfWork
}

var _ portsrepo.ExpenseTxRepository = (*expenseTxRepository)(nil)

func (r *expenseTxRepository) FindExpenseByIDForUpdate(ctx context.Context, expenseID string) (*domain.Expense, error) {
	r.u.s.mu.RLock()
	defer r.u.s.mu.RUnlock()
	return r.u.s.findExpense(expenseID)
}

func (r *expenseTxRepository) FindBeneficiariesByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseBeneficiary, error) {
	r.u.s.mu.RLock()
	defer r.u.s.mu.RUnlock()
	return r.u.s.findBeneficiaries(expenseID), nil
}

func (r *expenseTxRepository) UpdateExpense(ctx context.Context, expense domain.Expense) error {
	return r.u.apply(func() (func(), error) {
		previous, ok := r.u.s.expenses[expense.ExpenseID]
		if !ok {
			return nil, fmt.Errorf("expense %s: %w", expense.ExpenseID, apperrors.ErrNotFound)
		}
		updated := previous
		updated.Status = expense.Status
		updated.SourceAccountID = expense.SourceAccountID
		updated.LedgerTransactionID = expense.LedgerTransactionID
		updated.LastUpdatedAt = expense.LastUpdatedAt
		updated.LastUpdatedBy = expense.LastUpdatedBy
		r.u.s.expenses[expense.ExpenseID] = updated
		return func() { r.u.s.expenses[expense.ExpenseID] = previous }, nil
	})
}

func isInvalidState(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidState)
}
