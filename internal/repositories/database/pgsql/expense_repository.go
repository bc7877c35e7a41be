package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/disbursement_ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const expenseColumns = `expense_id, description, amount, currency_code, status,
	source_account_id, expense_account_id, ledger_transaction_id,
	created_at, created_by, last_updated_at, last_updated_by`

const beneficiaryColumns = `beneficiary_id, expense_id, position, name, bank_name, bank_code, account_number,
	amount, status, skip_resolution, recipient_handle, transfer_reference, attempts, last_error, paid_at`

type PgxExpenseRepository struct {
	db   querier
	pool *pgxpool.Pool // nil inside a unit of work
}

// newPgxExpenseRepository creates a new repository for expenses and beneficiaries.
func newPgxExpenseRepository(pool *pgxpool.Pool) *PgxExpenseRepository {
	return &PgxExpenseRepository{db: pool, pool: pool}
}

var (
	_ portsrepo.ExpenseRepositoryFacade = (*PgxExpenseRepository)(nil)
	_ portsrepo.ExpenseTxRepository     = (*PgxExpenseRepository)(nil)
)

func toDomainExpense(m models.Expense) domain.Expense {
	return domain.Expense{
		ExpenseID:           m.ExpenseID,
		Description:         m.Description,
		Amount:              m.Amount,
		CurrencyCode:        m.CurrencyCode,
		Status:              domain.ExpenseStatus(m.Status),
		SourceAccountID:     m.SourceAccountID.String,
		ExpenseAccountID:    m.ExpenseAccountID.String,
		LedgerTransactionID: m.LedgerTransactionID.String,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

func toDomainBeneficiary(m models.ExpenseBeneficiary) domain.ExpenseBeneficiary {
	b := domain.ExpenseBeneficiary{
		BeneficiaryID:     m.BeneficiaryID,
		ExpenseID:         m.ExpenseID,
		Position:          m.Position,
		Name:              m.Name,
		BankName:          m.BankName,
		BankCode:          m.BankCode,
		AccountNumber:     m.AccountNumber,
		Amount:            m.Amount,
		Status:            domain.BeneficiaryStatus(m.Status),
		SkipResolution:    m.SkipResolution,
		RecipientHandle:   m.RecipientHandle.String,
		TransferReference: m.TransferReference.String,
		Attempts:          m.Attempts,
		LastError:         m.LastError.String,
	}
	if m.PaidAt.Valid {
		paidAt := m.PaidAt.Time
		b.PaidAt = &paidAt
	}
	return b
}

func scanExpense(row pgx.Row) (domain.Expense, error) {
	var m models.Expense
	err := row.Scan(
		&m.ExpenseID,
		&m.Description,
		&m.Amount,
		&m.CurrencyCode,
		&m.Status,
		&m.SourceAccountID,
		&m.ExpenseAccountID,
		&m.LedgerTransactionID,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Expense{}, err
	}
	return toDomainExpense(m), nil
}

// SaveExpense inserts the expense and its beneficiaries in one transaction.
func (r *PgxExpenseRepository) SaveExpense(ctx context.Context, expense domain.Expense, beneficiaries []domain.ExpenseBeneficiary) error {
	if r.pool == nil {
		return apperrors.NewInternalError("SaveExpense is not available inside a unit of work", nil)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`,
		expense.ExpenseID,
		expense.Description,
		expense.Amount,
		expense.CurrencyCode,
		string(expense.Status),
		nullString(expense.SourceAccountID),
		nullString(expense.ExpenseAccountID),
		nullString(expense.LedgerTransactionID),
		expense.CreatedAt,
		expense.CreatedBy,
		expense.LastUpdatedAt,
		expense.LastUpdatedBy,
	)

	beneficiaryQuery := `
		INSERT INTO expense_beneficiaries (` + beneficiaryColumns + `, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	for _, b := range beneficiaries {
		batch.Queue(beneficiaryQuery,
			b.BeneficiaryID,
			expense.ExpenseID,
			b.Position,
			b.Name,
			b.BankName,
			b.BankCode,
			b.AccountNumber,
			b.Amount,
			string(b.Status),
			b.SkipResolution,
			nullString(b.RecipientHandle),
			nullString(b.TransferReference),
			b.Attempts,
			nullString(b.LastError),
			b.PaidAt,
			expense.CreatedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapWriteError(err, "expense "+expense.ExpenseID)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewInternalError("failed to commit expense "+expense.ExpenseID, err)
	}
	return nil
}

// FindExpenseByID retrieves an expense header.
func (r *PgxExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	return r.findExpense(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE expense_id = $1;`, expenseID)
}

// FindExpenseByIDForUpdate row-locks the expense. Concurrent disbursements queue here.
func (r *PgxExpenseRepository) FindExpenseByIDForUpdate(ctx context.Context, expenseID string) (*domain.Expense, error) {
	return r.findExpense(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE expense_id = $1 FOR UPDATE;`, expenseID)
}

func (r *PgxExpenseRepository) findExpense(ctx context.Context, query, expenseID string) (*domain.Expense, error) {
	expense, err := scanExpense(r.db.QueryRow(ctx, query, expenseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find expense %s: %w", expenseID, err)
	}
	return &expense, nil
}

// FindBeneficiariesByExpenseID returns beneficiaries in payout order.
func (r *PgxExpenseRepository) FindBeneficiariesByExpenseID(ctx context.Context, expenseID string) ([]domain.ExpenseBeneficiary, error) {
	query := `SELECT ` + beneficiaryColumns + ` FROM expense_beneficiaries WHERE expense_id = $1 ORDER BY position;`
	rows, err := r.db.Query(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query beneficiaries for expense %s: %w", expenseID, err)
	}
	defer rows.Close()

	beneficiaries := []domain.ExpenseBeneficiary{}
	for rows.Next() {
		var m models.ExpenseBeneficiary
		err := rows.Scan(
			&m.BeneficiaryID,
			&m.ExpenseID,
			&m.Position,
			&m.Name,
			&m.BankName,
			&m.BankCode,
			&m.AccountNumber,
			&m.Amount,
			&m.Status,
			&m.SkipResolution,
			&m.RecipientHandle,
			&m.TransferReference,
			&m.Attempts,
			&m.LastError,
			&m.PaidAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary row: %w", err)
		}
		beneficiaries = append(beneficiaries, toDomainBeneficiary(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating beneficiary rows: %w", err)
	}
	return beneficiaries, nil
}

// UpdateExpense writes the mutable columns of an expense.
func (r *PgxExpenseRepository) UpdateExpense(ctx context.Context, expense domain.Expense) error {
	query := `
		UPDATE expenses
		SET status = $2, source_account_id = $3, ledger_transaction_id = $4, last_updated_at = $5, last_updated_by = $6
		WHERE expense_id = $1;
	`
	tag, err := r.db.Exec(ctx, query,
		expense.ExpenseID,
		string(expense.Status),
		nullString(expense.SourceAccountID),
		nullString(expense.LedgerTransactionID),
		expense.LastUpdatedAt,
		expense.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense %s: %w", expense.ExpenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %s: %w", expense.ExpenseID, apperrors.ErrNotFound)
	}
	return nil
}

// UpdateExpenseStatus is a compare-and-set on the status column.
func (r *PgxExpenseRepository) UpdateExpenseStatus(ctx context.Context, expenseID string, from, to domain.ExpenseStatus, userID string, now time.Time) error {
	query := `
		UPDATE expenses
		SET status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE expense_id = $1 AND status = $2;
	`
	tag, err := r.db.Exec(ctx, query, expenseID, string(from), string(to), now, userID)
	if err != nil {
		return fmt.Errorf("failed to move expense %s to %s: %w", expenseID, to, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense %s is not %s", apperrors.ErrInvalidState, expenseID, from)
	}
	return nil
}

// RecordBeneficiaryAttempt persists the reference before the transfer is sent.
func (r *PgxExpenseRepository) RecordBeneficiaryAttempt(ctx context.Context, beneficiaryID, reference, recipientHandle string, attempt int, now time.Time) error {
	query := `
		UPDATE expense_beneficiaries
		SET transfer_reference = $2, recipient_handle = $3, attempts = $4, last_error = NULL, last_updated_at = $5
		WHERE beneficiary_id = $1 AND status = 'PENDING';
	`
	tag, err := r.db.Exec(ctx, query, beneficiaryID, reference, nullString(recipientHandle), attempt, now)
	if err != nil {
		return fmt.Errorf("failed to record attempt for beneficiary %s: %w", beneficiaryID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: beneficiary %s is not pending", apperrors.ErrInvalidState, beneficiaryID)
	}
	return nil
}

// RecordBeneficiaryFailure stores why the last attempt failed.
func (r *PgxExpenseRepository) RecordBeneficiaryFailure(ctx context.Context, beneficiaryID, cause string, now time.Time) error {
	query := `
		UPDATE expense_beneficiaries
		SET last_error = $2, last_updated_at = $3
		WHERE beneficiary_id = $1 AND status = 'PENDING';
	`
	if _, err := r.db.Exec(ctx, query, beneficiaryID, cause, now); err != nil {
		return fmt.Errorf("failed to record failure for beneficiary %s: %w", beneficiaryID, err)
	}
	return nil
}

// MarkBeneficiaryPaid flips PENDING to PAID exactly once.
func (r *PgxExpenseRepository) MarkBeneficiaryPaid(ctx context.Context, beneficiaryID, reference string, now time.Time) error {
	query := `
		UPDATE expense_beneficiaries
		SET status = 'PAID', transfer_reference = $2, last_error = NULL, paid_at = $3, last_updated_at = $3
		WHERE beneficiary_id = $1 AND status = 'PENDING';
	`
	tag, err := r.db.Exec(ctx, query, beneficiaryID, reference, now)
	if err != nil {
		return fmt.Errorf("failed to mark beneficiary %s paid: %w", beneficiaryID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: beneficiary %s is not pending", apperrors.ErrInvalidState, beneficiaryID)
	}
	return nil
}
