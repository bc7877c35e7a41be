package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
)

// ReconcileExpense asks the provider about every recorded transfer of the expense, confirms
// transfers whose success was never recorded, and reports money paid out but not yet posted.
// An expense left in PROCESSING_PAYMENT by a run that died is released once it is older than StaleAfter.
func (s *disbursementService) ReconcileExpense(ctx context.Context, expenseID string, actingUserID string) (*dto.ReconciliationReport, error) {
	user, err := s.userRepo.FindUserByID(ctx, actingUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %s", apperrors.ErrUnauthorized, actingUserID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.HasPermission(domain.PermissionDisburse) && !user.HasPermission(domain.PermissionManageLedger) {
		return nil, fmt.Errorf("%w: reconciliation needs %s or %s",
			apperrors.ErrUnauthorized, domain.PermissionDisburse, domain.PermissionManageLedger)
	}

	expense, err := s.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	ctx = withLogAttrs(ctx, s.GetLogger(ctx), slog.String("expense_id", expenseID))

	var provider providers.PaymentProvider
	if expense.SourceAccountID != "" {
		source, err := s.accountRepo.FindAccountByID(ctx, expense.SourceAccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch funding account: %w", err)
		}
		if provider, err = s.resolver.ForAccount(*source); err != nil {
			return nil, err
		}
	}

	report := &dto.ReconciliationReport{
		ExpenseID:     expense.ExpenseID,
		Status:        expense.Status,
		PaidAmount:    decimal.Zero,
		PostedAmount:  decimal.Zero,
		Beneficiaries: make([]dto.BeneficiaryReconciliation, 0, len(expense.Beneficiaries)),
	}

	// Confirmed transfers are only written back when no live run owns the expense.
	stale := s.isStale(expense)
	confirm := expense.Status != domain.ExpenseProcessingPayment || stale

	paidCount := 0
	for _, b := range expense.Beneficiaries {
		line := dto.BeneficiaryReconciliation{
			BeneficiaryID:     b.BeneficiaryID,
			Status:            b.Status,
			TransferReference: b.TransferReference,
			Amount:            b.Amount,
		}
		if b.TransferReference != "" && provider != nil {
			line.ProviderStatus, line.Error = s.checkRecordedTransfer(ctx, provider, b, confirm)
			if confirm && line.ProviderStatus == domain.TransferSuccess && line.Error == "" {
				line.Status = domain.BeneficiaryPaid
			}
		}
		if line.Status == domain.BeneficiaryPaid {
			paidCount++
			report.PaidAmount = report.PaidAmount.Add(b.Amount)
		}
		report.Beneficiaries = append(report.Beneficiaries, line)
	}

	posted, err := s.ledgerRepo.FindTransactionsByReference(ctx, expense.ExpenseID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load postings of expense")
		return nil, fmt.Errorf("failed to fetch postings: %w", err)
	}
	for _, txn := range posted {
		if txn.Metadata == domain.MetadataExpenseDisbursement {
			report.PostedAmount = report.PostedAmount.Add(txn.Amount)
		}
	}
	report.UnpostedAmount = report.PaidAmount.Sub(report.PostedAmount)
	if report.UnpostedAmount.IsNegative() {
		s.GetLogger(ctx).Error("Expense posted more than was paid out",
			slog.String("paid", report.PaidAmount.String()),
			slog.String("posted", report.PostedAmount.String()))
	}

	if stale {
		to := domain.ExpensePaymentFailed
		if paidCount > 0 {
			to = domain.ExpensePartiallyPaid
		}
		err := s.expenseRepo.UpdateExpenseStatus(ctx, expense.ExpenseID,
			domain.ExpenseProcessingPayment, to, user.UserID, s.now().UTC())
		switch {
		case err == nil:
			report.Status = to
			report.Released = true
			s.GetLogger(ctx).Warn("Released stale payment lock",
				slog.String("to", string(to)),
				slog.Time("locked_since", expense.LastUpdatedAt))
			s.publish(ctx, &disbursementRun{expense: *expense, actingUserID: user.UserID},
				domain.ExpenseProcessingPayment, to, paidCount, len(expense.Beneficiaries)-paidCount)
		case errors.Is(err, apperrors.ErrInvalidState):
			// The run finished between our read and the release.
			if current, ferr := s.expenseRepo.FindExpenseByID(ctx, expense.ExpenseID); ferr == nil {
				report.Status = current.Status
			}
		default:
			s.LogError(ctx, err, "Failed to release stale payment lock")
			return nil, fmt.Errorf("failed to release expense: %w", err)
		}
	}

	return report, nil
}

// checkRecordedTransfer asks the provider about a recorded transfer. With confirm set a
// success still PENDING on our side is marked paid.
func (s *disbursementService) checkRecordedTransfer(ctx context.Context, provider providers.PaymentProvider, b domain.ExpenseBeneficiary, confirm bool) (domain.TransferStatus, string) {
	if s.cfg.PayoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PayoutTimeout)
		defer cancel()
	}
	status, err := provider.CheckTransferStatus(ctx, b.TransferReference)
	if err != nil {
		s.LogWarn(ctx, err, "Transfer status lookup failed", slog.String("reference", b.TransferReference))
		return "", err.Error()
	}
	if confirm && status == domain.TransferSuccess && b.Status == domain.BeneficiaryPending {
		err := s.expenseRepo.MarkBeneficiaryPaid(ctx, b.BeneficiaryID, b.TransferReference, s.now().UTC())
		if err != nil && !errors.Is(err, apperrors.ErrInvalidState) {
			s.LogError(ctx, err, "Failed to record confirmed transfer", slog.String("beneficiary_id", b.BeneficiaryID))
			return status, err.Error()
		}
		s.LogInfo(ctx, "Recorded transfer confirmed during reconciliation",
			slog.String("beneficiary_id", b.BeneficiaryID),
			slog.String("reference", b.TransferReference))
	}
	return status, ""
}

func (s *disbursementService) isStale(expense *domain.Expense) bool {
	if expense.Status != domain.ExpenseProcessingPayment || s.cfg.StaleAfter <= 0 {
		return false
	}
	return s.now().Sub(expense.LastUpdatedAt) > s.cfg.StaleAfter
}
