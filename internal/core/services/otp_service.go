package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/utils"
)

const (
	// DefaultOTPTTL is how long an issued code stays valid.
	DefaultOTPTTL = 10 * time.Minute
	otpDigits     = 6
)

// otpService issues and verifies one-time codes. Only bcrypt hashes are stored.
type otpService struct {
	BaseService
	repo     portsrepo.OTPRepository
	notifier portssvc.CodeNotifier
	ttl      time.Duration
	now      func() time.Time
}

// OTPServiceOption is a functional option for configuring the OTP service
type OTPServiceOption func(*otpService)

// WithCodeNotifier delivers every issued code through n.
func WithCodeNotifier(n portssvc.CodeNotifier) OTPServiceOption {
	return func(s *otpService) {
		s.notifier = n
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) OTPServiceOption {
	return func(s *otpService) {
		s.now = now
	}
}

// NewOTPService creates an OTP service. A non-positive ttl falls back to DefaultOTPTTL.
func NewOTPService(repo portsrepo.OTPRepository, ttl time.Duration, options ...OTPServiceOption) portssvc.OTPSvcFacade {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	svc := &otpService{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.OTPSvcFacade = (*otpService)(nil)

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (s *otpService) Issue(ctx context.Context, identifier string) (string, time.Time, error) {
	identifier = normalizeIdentifier(identifier)
	if identifier == "" {
		return "", time.Time{}, fmt.Errorf("%w: identifier is required", apperrors.ErrValidation)
	}

	code, err := utils.GenerateNumericCode(otpDigits)
	if err != nil {
		s.LogError(ctx, err, "Failed to generate one-time code")
		return "", time.Time{}, apperrors.NewInternalError("failed to generate code", err)
	}
	hash, err := utils.HashCode(code)
	if err != nil {
		s.LogError(ctx, err, "Failed to hash one-time code")
		return "", time.Time{}, apperrors.NewInternalError("failed to hash code", err)
	}

	now := s.now().UTC()
	stored := domain.OneTimeCode{
		Identifier: identifier,
		CodeHash:   hash,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if err := s.repo.ReplaceCode(ctx, stored); err != nil {
		s.LogError(ctx, err, "Failed to store one-time code", slog.String("identifier", identifier))
		return "", time.Time{}, fmt.Errorf("failed to store code: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyCode(ctx, identifier, code, stored.ExpiresAt); err != nil {
			s.LogError(ctx, err, "Failed to deliver one-time code", slog.String("identifier", identifier))
			return "", time.Time{}, fmt.Errorf("%w: %w", apperrors.ErrCodeDelivery, err)
		}
	}
	return code, stored.ExpiresAt, nil
}

func (s *otpService) Verify(ctx context.Context, identifier, candidate string) (bool, error) {
	identifier = normalizeIdentifier(identifier)
	if identifier == "" || candidate == "" {
		return false, nil
	}

	stored, err := s.repo.FindActiveCode(ctx, identifier, s.now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		s.LogError(ctx, err, "Failed to load one-time code", slog.String("identifier", identifier))
		return false, fmt.Errorf("failed to load code: %w", err)
	}
	if !utils.CheckCodeHash(candidate, stored.CodeHash) {
		s.LogDebug(ctx, "One-time code mismatch", slog.String("identifier", identifier))
		return false, nil
	}

	consumed, err := s.repo.ConsumeCode(ctx, identifier, stored.CodeHash)
	if err != nil {
		s.LogError(ctx, err, "Failed to consume one-time code", slog.String("identifier", identifier))
		return false, fmt.Errorf("failed to consume code: %w", err)
	}
	return consumed, nil
}
