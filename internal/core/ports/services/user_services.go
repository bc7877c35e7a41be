package services

import (
	"context"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
)

// UserReaderSvc defines read operations for principals
type UserReaderSvc interface {
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// UserWriterSvc defines write operations for principals
type UserWriterSvc interface {
	// CreateUser provisions a principal. The creator needs the manage_ledger permission.
	CreateUser(ctx context.Context, req dto.CreateUserRequest, creatorUserID string) (*domain.User, error)
}

// UserSvcFacade combines all user-related service interfaces
type UserSvcFacade interface {
	UserReaderSvc
	UserWriterSvc
}
