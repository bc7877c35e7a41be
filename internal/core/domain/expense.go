package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus is the lifecycle state of a payable request.
type ExpenseStatus string

const (
	ExpensePending           ExpenseStatus = "PENDING"
	ExpenseCertified         ExpenseStatus = "CERTIFIED"
	ExpenseApproved          ExpenseStatus = "APPROVED"
	ExpenseProcessingPayment ExpenseStatus = "PROCESSING_PAYMENT"
	ExpenseDisbursed         ExpenseStatus = "DISBURSED"
	ExpensePartiallyPaid     ExpenseStatus = "PARTIALLY_PAID"
	ExpensePaymentFailed     ExpenseStatus = "PAYMENT_FAILED"
	ExpenseRejected          ExpenseStatus = "REJECTED"
)

// IsValid reports whether s is a known expense status.
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpensePending, ExpenseCertified, ExpenseApproved, ExpenseProcessingPayment,
		ExpenseDisbursed, ExpensePartiallyPaid, ExpensePaymentFailed, ExpenseRejected:
		return true
	}
	return false
}

// Disbursable reports whether a disbursement may start or resume from s.
func (s ExpenseStatus) Disbursable() bool {
	return s == ExpenseApproved || s == ExpensePartiallyPaid || s == ExpensePaymentFailed
}

// BeneficiaryStatus is the persisted payment status of one payee.
type BeneficiaryStatus string

const (
	BeneficiaryPending BeneficiaryStatus = "PENDING"
	BeneficiaryPaid    BeneficiaryStatus = "PAID"
)

// PayoutState is the step a beneficiary is at, derived before every external call.
type PayoutState string

const (
	// PayoutReady: nothing was sent, or the last attempt is known to have failed.
	PayoutReady PayoutState = "READY"
	// PayoutInFlight: a transfer was initiated but its outcome was never recorded.
	PayoutInFlight PayoutState = "IN_FLIGHT"
	// PayoutSettled: paid. Never contacted again.
	PayoutSettled PayoutState = "SETTLED"
)

// Expense is a payable request with one or more beneficiaries.
type Expense struct {
	ExpenseID           string          `json:"expenseID"`
	Description         string          `json:"description"`
	Amount              decimal.Decimal `json:"amount"`
	CurrencyCode        string          `json:"currencyCode"`
	Status              ExpenseStatus   `json:"status"`
	SourceAccountID     string          `json:"sourceAccountID"`
	ExpenseAccountID    string          `json:"expenseAccountID,omitempty"`
	LedgerTransactionID string          `json:"ledgerTransactionID,omitempty"`
	AuditFields
	Beneficiaries []ExpenseBeneficiary `json:"beneficiaries,omitempty"`
}

// ExpenseBeneficiary is one payee of an Expense and the unit of payout idempotency.
type ExpenseBeneficiary struct {
	BeneficiaryID     string            `json:"beneficiaryID"`
	ExpenseID         string            `json:"expenseID"`
	Position          int               `json:"position"`
	Name              string            `json:"name"`
	BankName          string            `json:"bankName"`
	BankCode          string            `json:"bankCode"`
	AccountNumber     string            `json:"accountNumber"`
	Amount            decimal.Decimal   `json:"amount"`
	Status            BeneficiaryStatus `json:"status"`
	SkipResolution    bool              `json:"skipResolution"`
	RecipientHandle   string            `json:"recipientHandle,omitempty"`
	TransferReference string            `json:"transferReference,omitempty"`
	Attempts          int               `json:"attempts"`
	LastError         string            `json:"lastError,omitempty"`
	PaidAt            *time.Time        `json:"paidAt,omitempty"`
}

// PayoutState derives the payout step from the persisted fields.
// A recorded reference without a recorded failure means the last attempt's outcome is unknown.
func (b ExpenseBeneficiary) PayoutState() PayoutState {
	switch {
	case b.Status == BeneficiaryPaid:
		return PayoutSettled
	case b.TransferReference != "" && b.LastError == "":
		return PayoutInFlight
	default:
		return PayoutReady
	}
}

// UnpaidAmount sums the amounts of beneficiaries not yet paid.
func UnpaidAmount(beneficiaries []ExpenseBeneficiary) decimal.Decimal {
	total := decimal.Zero
	for _, b := range beneficiaries {
		if b.Status != BeneficiaryPaid {
			total = total.Add(b.Amount)
		}
	}
	return total
}

// PaidCount returns how many beneficiaries are already paid.
func PaidCount(beneficiaries []ExpenseBeneficiary) int {
	n := 0
	for _, b := range beneficiaries {
		if b.Status == BeneficiaryPaid {
			n++
		}
	}
	return n
}
