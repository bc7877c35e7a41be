package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    domain.Mode
		wantErr bool
	}{
		{name: "empty defaults to live", raw: "", want: domain.ModeLive},
		{name: "live", raw: "live", want: domain.ModeLive},
		{name: "test mixed case", raw: " Test ", want: domain.ModeTest},
		{name: "unknown", raw: "sandbox", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseMode(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpenseStatus_Disbursable(t *testing.T) {
	disbursable := map[domain.ExpenseStatus]bool{
		domain.ExpensePending:           false,
		domain.ExpenseCertified:         false,
		domain.ExpenseApproved:          true,
		domain.ExpenseProcessingPayment: false,
		domain.ExpenseDisbursed:         false,
		domain.ExpensePartiallyPaid:     true,
		domain.ExpensePaymentFailed:     true,
		domain.ExpenseRejected:          false,
	}
	for status, want := range disbursable {
		assert.Equal(t, want, status.Disbursable(), string(status))
	}
}

func TestExpenseBeneficiary_PayoutState(t *testing.T) {
	paidAt := time.Now()
	tests := []struct {
		name string
		b    domain.ExpenseBeneficiary
		want domain.PayoutState
	}{
		{
			name: "fresh beneficiary",
			b:    domain.ExpenseBeneficiary{Status: domain.BeneficiaryPending},
			want: domain.PayoutReady,
		},
		{
			name: "attempt recorded without outcome",
			b:    domain.ExpenseBeneficiary{Status: domain.BeneficiaryPending, TransferReference: "ref-1", Attempts: 1},
			want: domain.PayoutInFlight,
		},
		{
			name: "attempt recorded and failed",
			b:    domain.ExpenseBeneficiary{Status: domain.BeneficiaryPending, TransferReference: "ref-1", Attempts: 1, LastError: "rejected"},
			want: domain.PayoutReady,
		},
		{
			name: "paid",
			b:    domain.ExpenseBeneficiary{Status: domain.BeneficiaryPaid, TransferReference: "ref-1", PaidAt: &paidAt},
			want: domain.PayoutSettled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.b.PayoutState())
		})
	}
}

func TestUnpaidAmount(t *testing.T) {
	beneficiaries := []domain.ExpenseBeneficiary{
		{Amount: decimal.NewFromInt(1800), Status: domain.BeneficiaryPaid},
		{Amount: decimal.NewFromInt(1200), Status: domain.BeneficiaryPending},
		{Amount: decimal.RequireFromString("0.50"), Status: domain.BeneficiaryPending},
	}
	assert.True(t, decimal.RequireFromString("1200.50").Equal(domain.UnpaidAmount(beneficiaries)))
	assert.Equal(t, 1, domain.PaidCount(beneficiaries))
}

func TestUser_HasPermission(t *testing.T) {
	u := domain.User{Permissions: []domain.Permission{domain.PermissionDisburse}}
	assert.True(t, u.HasPermission(domain.PermissionDisburse))
	assert.False(t, u.HasPermission(domain.PermissionManageLedger))

	deleted := time.Now()
	u.DeletedAt = &deleted
	assert.False(t, u.HasPermission(domain.PermissionDisburse))
}
