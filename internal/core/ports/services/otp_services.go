package services

import (
	"context"
	"time"
)

// OTPSvcFacade issues and verifies single-use numeric codes.
type OTPSvcFacade interface {
	// Issue creates a new code for identifier, invalidating any prior one,
	// and returns the plaintext for out-of-band delivery.
	Issue(ctx context.Context, identifier string) (code string, expiresAt time.Time, err error)

	// Verify consumes the code. It returns false for a mismatch, an expired or absent
	// code, or a code already consumed, without saying which.
	Verify(ctx context.Context, identifier, candidate string) (bool, error)
}

// CodeNotifier delivers a plaintext code through an out-of-band channel.
type CodeNotifier interface {
	NotifyCode(ctx context.Context, identifier, code string, expiresAt time.Time) error
}
