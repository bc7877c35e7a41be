package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
)

type UserRepository struct {
	s *Store
}

var _ portsrepo.UserRepositoryFacade = (*UserRepository)(nil)

// NewUserRepository returns a user store that is not tied to any set of books.
func NewUserRepository() *UserRepository {
	return &UserRepository{s: NewStore()}
}

func (r *UserRepository) SaveUser(ctx context.Context, user domain.User) error {
	return r.s.write(ctx, func() error {
		for id, existing := range r.s.users {
			if id != user.UserID && existing.Email == user.Email {
				return fmt.Errorf("%w: user with email %s", apperrors.ErrDuplicate, user.Email)
			}
		}
		user.Permissions = slices.Clone(user.Permissions)
		r.s.users[user.UserID] = user
		return nil
	})
}

func (r *UserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[userID]
	if !ok || user.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	user.Permissions = slices.Clone(user.Permissions)
	return &user, nil
}

type OTPRepository struct {
	s *Store
}

var _ portsrepo.OTPRepository = (*OTPRepository)(nil)

// NewOTPRepository returns a code store that is not tied to any set of books.
func NewOTPRepository() *OTPRepository {
	return &OTPRepository{s: NewStore()}
}

func (r *OTPRepository) ReplaceCode(ctx context.Context, code domain.OneTimeCode) error {
	return r.s.write(ctx, func() error {
		r.s.codes[code.Identifier] = code
		return nil
	})
}

func (r *OTPRepository) FindActiveCode(ctx context.Context, identifier string, now time.Time) (*domain.OneTimeCode, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	code, ok := r.s.codes[identifier]
	if !ok || code.Expired(now) {
		return nil, apperrors.ErrNotFound
	}
	return &code, nil
}

func (r *OTPRepository) ConsumeCode(ctx context.Context, identifier, codeHash string) (bool, error) {
	consumed := false
	err := r.s.write(ctx, func() error {
		code, ok := r.s.codes[identifier]
		if ok && code.CodeHash == codeHash {
			delete(r.s.codes, identifier)
			consumed = true
		}
		return nil
	})
	return consumed, err
}
