package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// BeneficiaryFailure records why a single payee could not be paid.
type BeneficiaryFailure struct {
	BeneficiaryID string
	Name          string
	Err           error
}

// DisbursementError aggregates per-beneficiary failures of one payout batch.
// Outcome is the expense status the batch resolved to.
type DisbursementError struct {
	ExpenseID string
	Outcome   string
	Succeeded int
	Failed    int
	Failures  []BeneficiaryFailure
}

func (e *DisbursementError) Error() string {
	var b strings.Builder
	if e.Succeeded == 0 {
		fmt.Fprintf(&b, "expense %s: no beneficiaries paid, retry", e.ExpenseID)
	} else {
		fmt.Fprintf(&b, "expense %s: %d of %d beneficiaries paid, %d failed; retry to pay the remainder",
			e.ExpenseID, e.Succeeded, e.Succeeded+e.Failed, e.Failed)
	}
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s (%s): %v", f.Name, f.BeneficiaryID, f.Err)
	}
	return b.String()
}

// Unwrap exposes the individual causes to errors.Is and errors.As.
func (e *DisbursementError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// AsDisbursementError is a shorthand for errors.As with a *DisbursementError target.
func AsDisbursementError(err error) (*DisbursementError, bool) {
	var de *DisbursementError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
