package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
)

// OTPRepository stores hashed one-time codes.
type OTPRepository interface {
	// ReplaceCode deletes every code of code.Identifier and stores code in its place.
	ReplaceCode(ctx context.Context, code domain.OneTimeCode) error

	// FindActiveCode returns the unexpired code for identifier, or apperrors.ErrNotFound.
	FindActiveCode(ctx context.Context, identifier string, now time.Time) (*domain.OneTimeCode, error)

	// ConsumeCode deletes the code with the given hash. It reports true only for the
	// caller whose delete removed it, so concurrent consumers cannot both win.
	ConsumeCode(ctx context.Context, identifier, codeHash string) (bool, error)
}
