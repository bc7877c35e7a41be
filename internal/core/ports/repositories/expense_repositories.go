package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
)

// ExpenseReader defines read operations for expenses and beneficiaries
type ExpenseReader interface {
	// FindExpenseByID retrieves an expense header.
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)

	// FindBeneficiariesByExpenseID returns beneficiaries ordered by position.
	FindBeneficiariesByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseBeneficiary, error)
}

// ExpenseWriter defines write operations that stand on their own (outside any unit of work)
type ExpenseWriter interface {
	// SaveExpense inserts an expense and its beneficiaries atomically.
	SaveExpense(ctx context.Context, expense domain.Expense, beneficiaries []domain.ExpenseBeneficiary) error

	// UpdateExpenseStatus moves an expense from one status to another.
	// It returns apperrors.ErrInvalidState when the expense is no longer in from.
	UpdateExpenseStatus(ctx context.Context, expenseID string, from, to domain.ExpenseStatus, userID string, now time.Time) error
}

// BeneficiaryPayoutWriter records per-beneficiary payout progress. Each call is its own small write.
type BeneficiaryPayoutWriter interface {
	// RecordBeneficiaryAttempt stores the reference of a transfer about to be initiated and clears LastError.
	RecordBeneficiaryAttempt(ctx context.Context, beneficiaryID, reference, recipientHandle string, attempt int, now time.Time) error

	// RecordBeneficiaryFailure stores the cause of a failed attempt.
	RecordBeneficiaryFailure(ctx context.Context, beneficiaryID, cause string, now time.Time) error

	// MarkBeneficiaryPaid flips a PENDING beneficiary to PAID.
	// It returns apperrors.ErrInvalidState when the beneficiary was not PENDING.
	MarkBeneficiaryPaid(ctx context.Context, beneficiaryID, reference string, now time.Time) error
}

// ExpenseRepositoryFacade combines all expense-related repository interfaces
type ExpenseRepositoryFacade interface {
	ExpenseReader
	ExpenseWriter
	BeneficiaryPayoutWriter
}

// ExpenseTxRepository is the expense view of a UnitOfWork.
type ExpenseTxRepository interface {
	// FindExpenseByIDForUpdate loads and row-locks an expense until the unit ends.
	FindExpenseByIDForUpdate(ctx context.Context, expenseID string) (*domain.Expense, error)

	// FindBeneficiariesByExpenseID returns beneficiaries ordered by position.
	FindBeneficiariesByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseBeneficiary, error)

	// UpdateExpense writes status, source account, ledger link and audit fields.
	UpdateExpense(ctx context.Context, expense domain.Expense) error
}
