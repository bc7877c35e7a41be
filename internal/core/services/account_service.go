package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
)

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
	userRepo    portsrepo.UserReader
	resolver    providers.Resolver
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithProviderResolver makes CreateAccount reject bindings the resolver cannot serve.
func WithProviderResolver(resolver providers.Resolver) AccountServiceOption {
	return func(s *accountService) {
		s.resolver = resolver
	}
}

// NewAccountService creates a new account service. users authorizes account creation.
func NewAccountService(repo portsrepo.AccountRepositoryFacade, users portsrepo.UserReader, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo: repo,
		userRepo:    users,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	if _, err := requirePermission(ctx, s.userRepo, creatorUserID, domain.PermissionManageLedger); err != nil {
		return nil, err
	}
	if !req.AccountType.IsValid() {
		return nil, fmt.Errorf("%w: unknown account type %q", apperrors.ErrValidation, req.AccountType)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: name and code are required", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:    uuid.NewString(),
		Name:         req.Name,
		Code:         req.Code,
		AccountType:  req.AccountType,
		CurrencyCode: strings.ToUpper(req.CurrencyCode),
		Description:  req.Description,
		IsActive:     true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
		Balance: decimal.Zero,
	}

	if req.Provider != nil {
		if !req.Provider.Behavior.IsValid() {
			return nil, fmt.Errorf("%w: unknown provider behavior %q", apperrors.ErrValidation, req.Provider.Behavior)
		}
		account.Provider = &domain.ProviderBinding{
			Provider:  req.Provider.Provider,
			Behavior:  req.Provider.Behavior,
			SecretKey: req.Provider.SecretKey,
		}
		if s.resolver != nil {
			if _, err := s.resolver.ForAccount(account); err != nil {
				s.LogError(ctx, err, "Rejected provider binding",
					slog.String("provider", req.Provider.Provider),
					slog.String("behavior", string(req.Provider.Behavior)))
				return nil, err
			}
		}
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: account code %s is taken", apperrors.ErrDuplicate, req.Code)
		}
		s.LogError(ctx, err, "Failed to save account", slog.String("code", req.Code))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.LogInfo(ctx, "Account created",
		slog.String("account_id", account.AccountID),
		slog.String("code", account.Code),
		slog.String("account_type", string(account.AccountType)))
	return &account, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		s.LogError(ctx, err, "Failed to find account", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	return account, nil
}
