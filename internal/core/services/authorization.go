package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
)

// requirePermission loads the acting principal and checks it holds perm.
// Unknown principals are unauthorized, not missing.
func requirePermission(ctx context.Context, users portsrepo.UserReader, userID string, perm domain.Permission) (*domain.User, error) {
	user, err := users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %s", apperrors.ErrUnauthorized, userID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.HasPermission(perm) {
		return nil, fmt.Errorf("%w: missing %s", apperrors.ErrUnauthorized, perm)
	}
	return user, nil
}
