package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/platform/metrics"
	"github.com/SscSPs/disbursement_ledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// ledgerService posts balanced transactions and maintains account balances.
type ledgerService struct {
	BaseService
	accountRepo portsrepo.AccountReader
	ledgerRepo  portsrepo.LedgerRepositoryFacade
	userRepo    portsrepo.UserReader
	txManager   portsrepo.TransactionManager
}

// LedgerServiceOption is a functional option for configuring the ledger service
type LedgerServiceOption func(*ledgerService)

// WithLedgerMetrics counts postings in m.
func WithLedgerMetrics(m *metrics.Metrics) LedgerServiceOption {
	return func(s *ledgerService) {
		s.Metrics = m
	}
}

// NewLedgerService creates a new ledger service over one mode's books.
func NewLedgerService(repos portsrepo.RepositoryProvider, options ...LedgerServiceOption) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		accountRepo: repos.AccountRepo,
		ledgerRepo:  repos.LedgerRepo,
		userRepo:    repos.UserRepo,
		txManager:   repos.TxManager,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure ledgerService implements the LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// CreateTransaction posts a manual transaction in its own unit of work. The creator needs
// manage_ledger, and the disbursement tag is reserved for CreateTransactionInTx.
func (s *ledgerService) CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest, creatorUserID string) (*domain.Transaction, error) {
	if _, err := requirePermission(ctx, s.userRepo, creatorUserID, domain.PermissionManageLedger); err != nil {
		s.GetLogger(ctx).Warn("Transaction rejected", slog.String("user_id", creatorUserID), slog.String("error", err.Error()))
		return nil, err
	}
	if req.Metadata == domain.MetadataExpenseDisbursement {
		return nil, fmt.Errorf("%w: metadata %q is reserved for disbursements", apperrors.ErrValidation, req.Metadata)
	}

	// Reject malformed input before taking any lock.
	if _, err := checkEntries(req.Entries); err != nil {
		s.Metrics.IncLedgerTransaction(err)
		return nil, err
	}

	uow, err := s.txManager.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin unit of work for transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	txn, err := s.CreateTransactionInTx(ctx, uow, req, creatorUserID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(ctx); err != nil {
		s.LogError(ctx, err, "Failed to commit transaction", slog.String("transaction_id", txn.TransactionID))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.LogInfo(ctx, "Transaction posted",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("amount", txn.Amount.String()),
		slog.String("currency", txn.CurrencyCode))
	return txn, nil
}

// CreateTransactionInTx validates req and writes the transaction, its entries and the
// balance deltas through uow. The caller commits.
func (s *ledgerService) CreateTransactionInTx(ctx context.Context, uow portsrepo.UnitOfWork, req dto.CreateTransactionRequest, creatorUserID string) (txn *domain.Transaction, err error) {
	defer func() {
		s.Metrics.IncLedgerTransaction(err)
	}()

	rounded, err := checkEntries(req.Entries)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnbalancedTransaction) {
			s.LogError(ctx, err, "Rejected unbalanced transaction",
				slog.String("reference", req.Reference),
				slog.String("metadata", req.Metadata))
		}
		return nil, err
	}

	accountIDs := make([]string, 0, len(req.Entries))
	for _, e := range req.Entries {
		accountIDs = append(accountIDs, e.AccountID)
	}
	slices.Sort(accountIDs)
	accountIDs = slices.Compact(accountIDs)

	accounts, err := uow.Accounts().FindAccountsByIDsForUpdate(ctx, accountIDs)
	if err != nil {
		s.LogError(ctx, err, "Failed to lock accounts for posting")
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	currency := strings.ToUpper(req.CurrencyCode)
	for _, id := range accountIDs {
		acc, found := accounts[id]
		if !found {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, id)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
		if currency == "" {
			currency = acc.CurrencyCode
		}
		if acc.CurrencyCode != currency {
			return nil, fmt.Errorf("%w: account %s is in %s, transaction is in %s",
				apperrors.ErrValidation, id, acc.CurrencyCode, currency)
		}
	}

	now := time.Now().UTC()
	txnDate := req.TransactionDate
	if txnDate.IsZero() {
		txnDate = now
	}

	transaction := domain.Transaction{
		TransactionID:   uuid.NewString(),
		Description:     req.Description,
		TransactionDate: txnDate,
		Status:          domain.TransactionPosted,
		Reference:       req.Reference,
		Metadata:        req.Metadata,
		CurrencyCode:    currency,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	entries := make([]domain.LedgerEntry, len(req.Entries))
	total := decimal.Zero
	for i, e := range req.Entries {
		direction, amount := accounting.SplitSignedAmount(rounded[i])
		entries[i] = domain.LedgerEntry{
			EntryID:       uuid.NewString(),
			TransactionID: transaction.TransactionID,
			AccountID:     e.AccountID,
			Amount:        amount,
			Direction:     direction,
			CreatedAt:     now,
		}
		if direction == domain.Debit {
			total = total.Add(amount)
		}
	}
	transaction.Amount = total

	if err := accounting.ValidateEntriesBalance(entries); err != nil {
		s.LogError(ctx, err, "Entries failed the balance check after rounding")
		return nil, err
	}
	balanceChanges, err := accounting.BalanceChanges(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balance changes: %w", err)
	}

	if err := uow.Ledger().SaveTransaction(ctx, transaction, entries); err != nil {
		s.LogError(ctx, err, "Failed to save transaction", slog.String("transaction_id", transaction.TransactionID))
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}
	if err := uow.Accounts().UpdateAccountBalances(ctx, balanceChanges, creatorUserID, now); err != nil {
		s.LogError(ctx, err, "Failed to update account balances", slog.String("transaction_id", transaction.TransactionID))
		return nil, fmt.Errorf("failed to update account balances: %w", err)
	}

	transaction.Entries = entries
	return &transaction, nil
}

// checkEntries runs the input checks that need no database access and returns
// the amounts rounded to currency precision.
func checkEntries(entries []dto.EntryRequest) ([]decimal.Decimal, error) {
	if len(entries) < 2 {
		return nil, fmt.Errorf("%w: a transaction needs at least two entries", apperrors.ErrValidation)
	}
	amounts := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		if e.AccountID == "" {
			return nil, fmt.Errorf("%w: entry %d has no account", apperrors.ErrValidation, i)
		}
		if e.SignedAmount.IsZero() {
			return nil, fmt.Errorf("%w: entry %d for account %s has a zero amount", apperrors.ErrValidation, i, e.AccountID)
		}
		amounts[i] = e.SignedAmount
	}

	rounded, err := accounting.CheckSignedSum(amounts)
	if err != nil {
		return nil, err
	}
	for i, a := range rounded {
		if a.IsZero() {
			return nil, fmt.Errorf("%w: entry %d for account %s rounds to zero", apperrors.ErrValidation, i, entries[i].AccountID)
		}
	}
	return rounded, nil
}

// GetTransaction retrieves a transaction with its entries.
func (s *ledgerService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.ledgerRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find transaction", slog.String("transaction_id", transactionID))
		}
		return nil, err
	}
	entries, err := s.ledgerRepo.FindEntriesByTransactionID(ctx, transactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to find entries", slog.String("transaction_id", transactionID))
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}
	txn.Entries = entries
	return txn, nil
}

// GetAccountBalance returns the stored balance together with its display form.
func (s *ledgerService) GetAccountBalance(ctx context.Context, accountID string) (*dto.AccountBalanceResponse, error) {
	acc, err := s.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &dto.AccountBalanceResponse{
		AccountID:      acc.AccountID,
		AccountType:    acc.AccountType,
		CurrencyCode:   acc.CurrencyCode,
		Balance:        acc.Balance,
		DisplayBalance: accounting.DisplayBalance(acc.Balance, acc.AccountType),
	}, nil
}

// RecomputeAccountBalance sums every entry of the account and compares it with the stored balance.
func (s *ledgerService) RecomputeAccountBalance(ctx context.Context, accountID string) (*dto.BalanceReconciliationResponse, error) {
	acc, err := s.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	debits, credits, err := s.ledgerRepo.SumEntriesByAccount(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to sum entries", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to sum entries: %w", err)
	}
	recomputed := debits.Sub(credits)
	drift := acc.Balance.Sub(recomputed)
	if !drift.IsZero() {
		s.GetLogger(ctx).Error("Account balance drifted from its entries",
			slog.String("account_id", accountID),
			slog.String("stored", acc.Balance.String()),
			slog.String("recomputed", recomputed.String()))
	}
	return &dto.BalanceReconciliationResponse{
		AccountID:         accountID,
		StoredBalance:     acc.Balance,
		RecomputedBalance: recomputed,
		Drift:             drift,
	}, nil
}

func (s *ledgerService) findAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		s.LogError(ctx, err, "Failed to find account", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	return acc, nil
}
