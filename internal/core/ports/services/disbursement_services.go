package services

import (
	"context"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
)

// ExpenseSvc defines intake and read operations for payable requests
type ExpenseSvc interface {
	// CreateExpense stores an expense and its beneficiaries handed over by the approval workflow.
	CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, creatorUserID string) (*domain.Expense, error)

	// GetExpense retrieves an expense with its beneficiaries.
	GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error)
}

// DisbursementSvc runs the payout protocol
type DisbursementSvc interface {
	// Disburse authorizes, locks, pays and posts an expense. Calling it again on a
	// PARTIALLY_PAID or PAYMENT_FAILED expense resumes the payout.
	Disburse(ctx context.Context, req dto.DisburseRequest) (*dto.DisbursementResult, error)

	// ReconcileExpense compares recorded payouts with the provider and reports unposted money.
	ReconcileExpense(ctx context.Context, expenseID string, actingUserID string) (*dto.ReconciliationReport, error)

	// ResolveAccountHolder runs a name enquiry through the provider bound to accountID.
	ResolveAccountHolder(ctx context.Context, accountID string, req dto.ResolveAccountHolderRequest) (*domain.AccountHolder, error)
}

// DisbursementSvcFacade combines all disbursement-related service interfaces
type DisbursementSvcFacade interface {
	ExpenseSvc
	DisbursementSvc
}
