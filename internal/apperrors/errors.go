package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInternal is used for failures the caller cannot act upon.
var ErrInternal = errors.New("internal error")

// ErrAccountNotFound is returned by balance lookups for an unknown account.
var ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)

// Authorization errors. Never retried automatically.
var (
	ErrUnauthorized         = errors.New("user is not authorized to perform this action")
	ErrInvalidOrExpiredCode = errors.New("one-time code is invalid or expired")
	ErrCodeDelivery         = errors.New("one-time code could not be delivered")
)

// ErrInvalidState signals a lifecycle violation, e.g. a second disbursement of a locked expense.
var ErrInvalidState = errors.New("invalid state for this operation")

// Funds errors. Raised before any state transition, so the caller may retry once funded.
var (
	ErrInsufficientLocalFunds    = errors.New("insufficient funds in the local ledger account")
	ErrInsufficientProviderFunds = errors.New("insufficient funds in the provider wallet")
)

// Provider errors. Scoped to a single beneficiary during a payout.
var (
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrResolutionFailed    = errors.New("bank account could not be resolved")
	ErrTransferRejected    = errors.New("transfer rejected by provider")
	ErrTransferPending     = errors.New("transfer outcome still pending at provider")
)

// ErrUnbalancedTransaction means debits and credits did not net to zero.
// It indicates corrupted input upstream of the ledger and must not be presented as retryable.
var ErrUnbalancedTransaction = errors.New("unbalanced transaction: debits and credits do not net to zero")

// AppError carries an HTTP status alongside a wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError. err may be nil.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewInternalError wraps err as a 500 that also matches ErrInternal.
func NewInternalError(message string, err error) *AppError {
	if err == nil {
		err = ErrInternal
	} else {
		err = fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return NewAppError(http.StatusInternalServerError, message, err)
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}
