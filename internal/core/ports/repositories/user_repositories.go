package repositories

import (
	"context"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
)

// UserReader defines read operations for principals
type UserReader interface {
	// FindUserByID retrieves a user with its permissions.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// UserWriter defines write operations for principals
type UserWriter interface {
	// SaveUser stores a user with its permissions. Used by provisioning and seeding.
	SaveUser(ctx context.Context, user domain.User) error
}

// UserRepositoryFacade combines all user-related repository interfaces
type UserRepositoryFacade interface {
	UserReader
	UserWriter
}
