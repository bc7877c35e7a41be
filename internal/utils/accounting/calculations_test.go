package accounting_test

import (
	"testing"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckSignedSum(t *testing.T) {
	tests := []struct {
		name    string
		amounts []decimal.Decimal
		want    []decimal.Decimal
		wantErr error
	}{
		{
			name:    "exactly balanced",
			amounts: []decimal.Decimal{d("3000"), d("-3000")},
			want:    []decimal.Decimal{d("3000"), d("-3000")},
		},
		{
			name:    "within epsilon and balanced after rounding",
			amounts: []decimal.Decimal{d("100.004"), d("-100")},
			want:    []decimal.Decimal{d("100"), d("-100")},
		},
		{
			name:    "within epsilon but rounding leaves a cent",
			amounts: []decimal.Decimal{d("100.006"), d("-100")},
			wantErr: apperrors.ErrUnbalancedTransaction,
		},
		{
			name:    "off by exactly epsilon",
			amounts: []decimal.Decimal{d("100.01"), d("-100")},
			wantErr: apperrors.ErrUnbalancedTransaction,
		},
		{
			name:    "grossly unbalanced",
			amounts: []decimal.Decimal{d("3000"), d("-1800")},
			wantErr: apperrors.ErrUnbalancedTransaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := accounting.CheckSignedSum(tt.amounts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.True(t, tt.want[i].Equal(got[i]), "index %d: want %s got %s", i, tt.want[i], got[i])
			}
		})
	}
}

func TestDisplayBalance(t *testing.T) {
	raw := d("-250")
	assert.True(t, d("-250").Equal(accounting.DisplayBalance(raw, domain.Asset)))
	assert.True(t, d("-250").Equal(accounting.DisplayBalance(raw, domain.ExpenseAccount)))
	assert.True(t, d("250").Equal(accounting.DisplayBalance(raw, domain.Liability)))
	assert.True(t, d("250").Equal(accounting.DisplayBalance(raw, domain.Equity)))
	assert.True(t, d("250").Equal(accounting.DisplayBalance(raw, domain.Income)))
}

func TestSplitSignedAmount(t *testing.T) {
	dir, amt := accounting.SplitSignedAmount(d("-12.50"))
	assert.Equal(t, domain.Credit, dir)
	assert.True(t, d("12.50").Equal(amt))

	dir, amt = accounting.SplitSignedAmount(d("7"))
	assert.Equal(t, domain.Debit, dir)
	assert.True(t, d("7").Equal(amt))
}

func TestValidateEntriesBalance(t *testing.T) {
	balanced := []domain.LedgerEntry{
		{AccountID: "exp", Amount: d("3000"), Direction: domain.Debit},
		{AccountID: "bank", Amount: d("1800"), Direction: domain.Credit},
		{AccountID: "bank", Amount: d("1200"), Direction: domain.Credit},
	}
	assert.NoError(t, accounting.ValidateEntriesBalance(balanced))

	unbalanced := []domain.LedgerEntry{
		{AccountID: "exp", Amount: d("3000"), Direction: domain.Debit},
		{AccountID: "bank", Amount: d("2999.99"), Direction: domain.Credit},
	}
	assert.ErrorIs(t, accounting.ValidateEntriesBalance(unbalanced), apperrors.ErrUnbalancedTransaction)

	single := []domain.LedgerEntry{{AccountID: "exp", Amount: d("1"), Direction: domain.Debit}}
	assert.ErrorIs(t, accounting.ValidateEntriesBalance(single), apperrors.ErrValidation)
}

func TestBalanceChanges(t *testing.T) {
	changes, err := accounting.BalanceChanges([]domain.LedgerEntry{
		{AccountID: "exp", Amount: d("3000"), Direction: domain.Debit},
		{AccountID: "bank", Amount: d("1800"), Direction: domain.Credit},
		{AccountID: "bank", Amount: d("1200"), Direction: domain.Credit},
	})
	require.NoError(t, err)
	assert.True(t, d("3000").Equal(changes["exp"]))
	assert.True(t, d("-3000").Equal(changes["bank"]))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(300000), accounting.ToMinorUnits(d("3000")))
	assert.Equal(t, int64(1235), accounting.ToMinorUnits(d("12.345")))
	assert.True(t, d("1234.56").Equal(accounting.FromMinorUnits(123456)))
}
