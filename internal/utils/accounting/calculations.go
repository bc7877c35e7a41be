package accounting

import (
	"fmt"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CurrencyPrecision is the number of decimal places amounts are stored with.
const CurrencyPrecision int32 = 2

// BalanceEpsilon is the largest net imbalance tolerated on incoming signed amounts.
var BalanceEpsilon = decimal.New(1, -CurrencyPrecision)

// SignedEffect returns the effect of an entry on the raw (debit-positive) balance.
func SignedEffect(direction domain.EntryDirection, amount decimal.Decimal) (decimal.Decimal, error) {
	switch direction {
	case domain.Debit:
		return amount, nil
	case domain.Credit:
		return amount.Neg(), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown entry direction '%s'", direction)
	}
}

// SplitSignedAmount turns a signed amount into a direction and an unsigned magnitude.
// Positive is a debit, negative a credit.
func SplitSignedAmount(signed decimal.Decimal) (domain.EntryDirection, decimal.Decimal) {
	if signed.IsNegative() {
		return domain.Credit, signed.Neg()
	}
	return domain.Debit, signed
}

// DisplayBalance flips the raw balance for credit-normal account types so that
// a healthy LIABILITY/EQUITY/INCOME balance renders positive.
//
// DEBIT to ASSET/EXPENSE -> display increases
// DEBIT to LIABILITY/EQUITY/INCOME -> display decreases
func DisplayBalance(raw decimal.Decimal, accountType domain.AccountType) decimal.Decimal {
	if accountType.IsDebitNormal() {
		return raw
	}
	return raw.Neg()
}

// CheckSignedSum validates the signed inputs of a posting: the net must be within
// BalanceEpsilon, and after rounding to CurrencyPrecision it must be exactly zero.
// The returned slice holds the rounded amounts in input order.
func CheckSignedSum(amounts []decimal.Decimal) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	if sum.Abs().GreaterThanOrEqual(BalanceEpsilon) {
		return nil, fmt.Errorf("%w: net is %s", apperrors.ErrUnbalancedTransaction, sum.String())
	}

	rounded := make([]decimal.Decimal, len(amounts))
	roundedSum := decimal.Zero
	for i, a := range amounts {
		rounded[i] = a.Round(CurrencyPrecision)
		roundedSum = roundedSum.Add(rounded[i])
	}
	if !roundedSum.IsZero() {
		return nil, fmt.Errorf("%w: net after rounding to %d places is %s",
			apperrors.ErrUnbalancedTransaction, CurrencyPrecision, roundedSum.String())
	}
	return rounded, nil
}

// ValidateEntriesBalance checks that a set of stored entries balances exactly.
func ValidateEntriesBalance(entries []domain.LedgerEntry) error {
	if len(entries) < 2 {
		return fmt.Errorf("%w: a transaction needs at least two entries", apperrors.ErrValidation)
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			return fmt.Errorf("%w: entry amount must be positive for account %s", apperrors.ErrValidation, e.AccountID)
		}
		switch e.Direction {
		case domain.Debit:
			debits = debits.Add(e.Amount)
		case domain.Credit:
			credits = credits.Add(e.Amount)
		default:
			return fmt.Errorf("%w: unknown entry direction '%s'", apperrors.ErrValidation, e.Direction)
		}
	}

	if !debits.Equal(credits) {
		return fmt.Errorf("%w: debits %s, credits %s", apperrors.ErrUnbalancedTransaction, debits.String(), credits.String())
	}
	return nil
}

// BalanceChanges aggregates the raw balance delta per account for a set of entries.
func BalanceChanges(entries []domain.LedgerEntry) (map[string]decimal.Decimal, error) {
	changes := make(map[string]decimal.Decimal, len(entries))
	for _, e := range entries {
		effect, err := SignedEffect(e.Direction, e.Amount)
		if err != nil {
			return nil, err
		}
		changes[e.AccountID] = changes[e.AccountID].Add(effect)
	}
	return changes, nil
}

// ToMinorUnits converts a major-unit amount to the integer minor unit used by payment rails.
// Fractions of a minor unit are rounded half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(CurrencyPrecision).Round(0).IntPart()
}

// FromMinorUnits converts an integer minor-unit amount back to major units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -CurrencyPrecision)
}
