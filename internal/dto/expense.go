package dto

import (
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BeneficiaryRequest is one payee of a new expense.
type BeneficiaryRequest struct {
	Name           string          `json:"name" binding:"required"`
	BankName       string          `json:"bankName"`
	BankCode       string          `json:"bankCode" binding:"required"`
	AccountNumber  string          `json:"accountNumber" binding:"required,numeric"`
	Amount         decimal.Decimal `json:"amount" binding:"positive_amount"`
	SkipResolution bool            `json:"skipResolution"`
}

// CreateExpenseRequest hands a payable request from the upstream approval workflow to the ledger.
type CreateExpenseRequest struct {
	Description      string               `json:"description" binding:"required"`
	Amount           decimal.Decimal      `json:"amount" binding:"positive_amount"`
	CurrencyCode     string               `json:"currencyCode" binding:"required,len=3"`
	Status           domain.ExpenseStatus `json:"status" binding:"omitempty,oneof=PENDING CERTIFIED APPROVED"`
	SourceAccountID  string               `json:"sourceAccountID"`
	ExpenseAccountID string               `json:"expenseAccountID"`
	Beneficiaries    []BeneficiaryRequest `json:"beneficiaries" binding:"required,min=1,dive"`
}

// DisburseHTTPRequest is the body of the disburse endpoint.
type DisburseHTTPRequest struct {
	SourceAccountID string `json:"sourceAccountID"`
	Code            string `json:"code" binding:"required,numeric"`
}

// DisburseRequest is the single inbound entry point of the orchestrator.
type DisburseRequest struct {
	ExpenseID       string
	SourceAccountID string
	ActingUserID    string
	Code            string
	Mode            domain.Mode
}

// BeneficiaryResponse mirrors domain.ExpenseBeneficiary.
type BeneficiaryResponse struct {
	BeneficiaryID     string                   `json:"beneficiaryID"`
	Position          int                      `json:"position"`
	Name              string                   `json:"name"`
	BankName          string                   `json:"bankName"`
	BankCode          string                   `json:"bankCode"`
	AccountNumber     string                   `json:"accountNumber"`
	Amount            decimal.Decimal          `json:"amount"`
	Status            domain.BeneficiaryStatus `json:"status"`
	TransferReference string                   `json:"transferReference,omitempty"`
	Attempts          int                      `json:"attempts"`
	LastError         string                   `json:"lastError,omitempty"`
	PaidAt            *time.Time               `json:"paidAt,omitempty"`
}

// ExpenseResponse mirrors domain.Expense with its beneficiaries.
type ExpenseResponse struct {
	ExpenseID           string                `json:"expenseID"`
	Description         string                `json:"description"`
	Amount              decimal.Decimal       `json:"amount"`
	CurrencyCode        string                `json:"currencyCode"`
	Status              domain.ExpenseStatus  `json:"status"`
	SourceAccountID     string                `json:"sourceAccountID"`
	ExpenseAccountID    string                `json:"expenseAccountID,omitempty"`
	LedgerTransactionID string                `json:"ledgerTransactionID,omitempty"`
	Beneficiaries       []BeneficiaryResponse `json:"beneficiaries"`
	CreatedAt           time.Time             `json:"createdAt"`
	LastUpdatedAt       time.Time             `json:"lastUpdatedAt"`
}

// ToExpenseResponse converts a domain.Expense to ExpenseResponse DTO
func ToExpenseResponse(e *domain.Expense) ExpenseResponse {
	bs := make([]BeneficiaryResponse, len(e.Beneficiaries))
	for i, b := range e.Beneficiaries {
		bs[i] = BeneficiaryResponse{
			BeneficiaryID:     b.BeneficiaryID,
			Position:          b.Position,
			Name:              b.Name,
			BankName:          b.BankName,
			BankCode:          b.BankCode,
			AccountNumber:     b.AccountNumber,
			Amount:            b.Amount,
			Status:            b.Status,
			TransferReference: b.TransferReference,
			Attempts:          b.Attempts,
			LastError:         b.LastError,
			PaidAt:            b.PaidAt,
		}
	}
	return ExpenseResponse{
		ExpenseID:           e.ExpenseID,
		Description:         e.Description,
		Amount:              e.Amount,
		CurrencyCode:        e.CurrencyCode,
		Status:              e.Status,
		SourceAccountID:     e.SourceAccountID,
		ExpenseAccountID:    e.ExpenseAccountID,
		LedgerTransactionID: e.LedgerTransactionID,
		Beneficiaries:       bs,
		CreatedAt:           e.CreatedAt,
		LastUpdatedAt:       e.LastUpdatedAt,
	}
}

// DisbursementResult summarizes one call to Disburse.
type DisbursementResult struct {
	ExpenseID           string               `json:"expenseID"`
	Status              domain.ExpenseStatus `json:"status"`
	Succeeded           int                  `json:"succeeded"`
	Failed              int                  `json:"failed"`
	AlreadyPaid         int                  `json:"alreadyPaid"`
	LedgerTransactionID string               `json:"ledgerTransactionID,omitempty"`
}

// BeneficiaryReconciliation is the provider view of one beneficiary.
type BeneficiaryReconciliation struct {
	BeneficiaryID     string                   `json:"beneficiaryID"`
	Status            domain.BeneficiaryStatus `json:"status"`
	TransferReference string                   `json:"transferReference,omitempty"`
	ProviderStatus    domain.TransferStatus    `json:"providerStatus,omitempty"`
	Amount            decimal.Decimal          `json:"amount"`
	Error             string                   `json:"error,omitempty"`
}

// ReconciliationReport exposes money that left the provider but is not yet in the ledger.
type ReconciliationReport struct {
	ExpenseID      string                      `json:"expenseID"`
	Status         domain.ExpenseStatus        `json:"status"`
	PaidAmount     decimal.Decimal             `json:"paidAmount"`
	PostedAmount   decimal.Decimal             `json:"postedAmount"`
	UnpostedAmount decimal.Decimal             `json:"unpostedAmount"`
	Released       bool                        `json:"released"` // a stale PROCESSING_PAYMENT lock was released
	Beneficiaries  []BeneficiaryReconciliation `json:"beneficiaries"`
}
