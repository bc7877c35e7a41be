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
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/events"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/SscSPs/disbursement_ledger/internal/platform/metrics"
	"github.com/SscSPs/disbursement_ledger/internal/utils/accounting"
)

// DisbursementConfig carries the per-mode settings of the orchestrator.
type DisbursementConfig struct {
	Mode domain.Mode
	// DefaultExpenseAccountID is debited when an expense names no expense account.
	DefaultExpenseAccountID string
	// Concurrency bounds parallel payouts. 1 or less pays beneficiaries one after another.
	Concurrency int
	// PayoutTimeout bounds the provider calls made for a single beneficiary.
	PayoutTimeout time.Duration
	// StaleAfter is how long an expense may sit in PROCESSING_PAYMENT before
	// ReconcileExpense releases it. Zero disables the release.
	StaleAfter time.Duration
}

// disbursementService pays out expenses for one mode.
type disbursementService struct {
	BaseService
	cfg         DisbursementConfig
	expenseRepo portsrepo.ExpenseRepositoryFacade
	accountRepo portsrepo.AccountReader
	ledgerRepo  portsrepo.LedgerReader
	userRepo    portsrepo.UserReader
	txManager   portsrepo.TransactionManager
	ledger      portssvc.LedgerWriterSvc
	otp         portssvc.OTPSvcFacade
	resolver    providers.Resolver
	publisher   events.Publisher
	now         func() time.Time
}

// DisbursementServiceOption is a functional option for configuring the disbursement service
type DisbursementServiceOption func(*disbursementService)

// WithEventPublisher emits status transitions through p.
func WithEventPublisher(p events.Publisher) DisbursementServiceOption {
	return func(s *disbursementService) {
		s.publisher = p
	}
}

// WithDisbursementMetrics counts runs and payouts in m.
func WithDisbursementMetrics(m *metrics.Metrics) DisbursementServiceOption {
	return func(s *disbursementService) {
		s.Metrics = m
	}
}

// WithDisbursementClock replaces time.Now, for tests.
func WithDisbursementClock(now func() time.Time) DisbursementServiceOption {
	return func(s *disbursementService) {
		s.now = now
	}
}

// NewDisbursementService creates the orchestrator over one mode's books and provider registry.
func NewDisbursementService(
	cfg DisbursementConfig,
	repos portsrepo.RepositoryProvider,
	ledger portssvc.LedgerWriterSvc,
	otp portssvc.OTPSvcFacade,
	resolver providers.Resolver,
	options ...DisbursementServiceOption,
) portssvc.DisbursementSvcFacade {
	svc := &disbursementService{
		cfg:         cfg,
		expenseRepo: repos.ExpenseRepo,
		accountRepo: repos.AccountRepo,
		ledgerRepo:  repos.LedgerRepo,
		userRepo:    repos.UserRepo,
		txManager:   repos.TxManager,
		ledger:      ledger,
		otp:         otp,
		resolver:    resolver,
		now:         time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure disbursementService implements the DisbursementSvcFacade interface
var _ portssvc.DisbursementSvcFacade = (*disbursementService)(nil)

// disbursementRun carries the locked expense, its source account and rail into the payout and posting steps.
type disbursementRun struct {
	expense       domain.Expense
	beneficiaries []domain.ExpenseBeneficiary
	source        domain.Account
	debitAccount  domain.Account
	provider      providers.PaymentProvider
	from          domain.ExpenseStatus
	actingUserID  string
}

const (
	outcomeDisbursed      = "disbursed"
	outcomePartiallyPaid  = "partially_paid"
	outcomePaymentFailed  = "payment_failed"
	outcomeRejected       = "rejected"
	outcomePostingFailed  = "posting_failed"
	outcomeLedgerInvalid  = "ledger_invariant"
	disbursementMemoLimit = 100
)

func (s *disbursementService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, creatorUserID string) (*domain.Expense, error) {
	if _, err := requirePermission(ctx, s.userRepo, creatorUserID, domain.PermissionManageLedger); err != nil {
		return nil, err
	}
	if len(req.Beneficiaries) == 0 {
		return nil, fmt.Errorf("%w: an expense needs at least one beneficiary", apperrors.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: expense amount must be positive", apperrors.ErrValidation)
	}

	status := req.Status
	if status == "" {
		status = domain.ExpenseApproved
	}
	switch status {
	case domain.ExpensePending, domain.ExpenseCertified, domain.ExpenseApproved:
	default:
		return nil, fmt.Errorf("%w: an expense cannot be created as %s", apperrors.ErrValidation, status)
	}

	sum := decimal.Zero
	for i, b := range req.Beneficiaries {
		if !b.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: beneficiary %d amount must be positive", apperrors.ErrValidation, i)
		}
		sum = sum.Add(b.Amount)
	}
	if sum.Sub(req.Amount).Abs().GreaterThanOrEqual(accounting.BalanceEpsilon) {
		return nil, fmt.Errorf("%w: beneficiaries total %s, expense amount is %s",
			apperrors.ErrValidation, sum.String(), req.Amount.String())
	}

	currency := strings.ToUpper(req.CurrencyCode)
	for _, id := range []string{req.SourceAccountID, req.ExpenseAccountID} {
		if id == "" {
			continue
		}
		acc, err := s.accountRepo.FindAccountByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, id)
			}
			return nil, fmt.Errorf("failed to fetch account: %w", err)
		}
		if acc.CurrencyCode != currency {
			return nil, fmt.Errorf("%w: account %s is in %s, expense is in %s",
				apperrors.ErrValidation, id, acc.CurrencyCode, currency)
		}
	}

	now := s.now().UTC()
	expense := domain.Expense{
		ExpenseID:        uuid.NewString(),
		Description:      req.Description,
		Amount:           req.Amount,
		CurrencyCode:     currency,
		Status:           status,
		SourceAccountID:  req.SourceAccountID,
		ExpenseAccountID: req.ExpenseAccountID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	beneficiaries := make([]domain.ExpenseBeneficiary, len(req.Beneficiaries))
	for i, b := range req.Beneficiaries {
		beneficiaries[i] = domain.ExpenseBeneficiary{
			BeneficiaryID:  uuid.NewString(),
			ExpenseID:      expense.ExpenseID,
			Position:       i,
			Name:           b.Name,
			BankName:       b.BankName,
			BankCode:       b.BankCode,
			AccountNumber:  b.AccountNumber,
			Amount:         b.Amount,
			Status:         domain.BeneficiaryPending,
			SkipResolution: b.SkipResolution,
		}
	}

	if err := s.expenseRepo.SaveExpense(ctx, expense, beneficiaries); err != nil {
		s.LogError(ctx, err, "Failed to save expense", slog.String("expense_id", expense.ExpenseID))
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	s.LogInfo(ctx, "Expense created",
		slog.String("expense_id", expense.ExpenseID),
		slog.String("amount", expense.Amount.String()),
		slog.Int("beneficiaries", len(beneficiaries)))
	expense.Beneficiaries = beneficiaries
	return &expense, nil
}

func (s *disbursementService) GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error) {
	expense, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find expense", slog.String("expense_id", expenseID))
		}
		return nil, err
	}
	beneficiaries, err := s.expenseRepo.FindBeneficiariesByExpenseID(ctx, expenseID)
	if err != nil {
		s.LogError(ctx, err, "Failed to find beneficiaries", slog.String("expense_id", expenseID))
		return nil, fmt.Errorf("failed to fetch beneficiaries: %w", err)
	}
	expense.Beneficiaries = beneficiaries
	return expense, nil
}

// Disburse authorizes and locks the expense, pays every unpaid beneficiary and posts the
// ledger transaction once all of them are paid.
func (s *disbursementService) Disburse(ctx context.Context, req dto.DisburseRequest) (*dto.DisbursementResult, error) {
	if req.Mode != "" && req.Mode != s.cfg.Mode {
		return nil, fmt.Errorf("%w: request is for %s mode, service serves %s", apperrors.ErrValidation, req.Mode, s.cfg.Mode)
	}
	if req.ExpenseID == "" {
		return nil, fmt.Errorf("%w: expense ID is required", apperrors.ErrValidation)
	}
	ctx = withLogAttrs(ctx, s.GetLogger(ctx),
		slog.String("expense_id", req.ExpenseID),
		slog.String("mode", string(s.cfg.Mode)))

	// Authorize the payer and lock the expense.
	run, err := s.authorizeAndLock(ctx, req)
	if err != nil {
		s.Metrics.IncDisbursement(string(s.cfg.Mode), outcomeRejected)
		return nil, err
	}
	s.LogInfo(ctx, "Expense locked for payment",
		slog.String("from", string(run.from)),
		slog.String("source_account_id", run.source.AccountID),
		slog.String("provider", run.provider.Name()))

	// A client disconnect after the lock is not a cancellation: the payout finishes and
	// the expense lands in a resumable state.
	detached := context.WithoutCancel(ctx)

	// Pay each unpaid beneficiary.
	tally := s.payBeneficiaries(detached, run)

	// Any unpaid beneficiary leaves the expense resumable.
	if len(tally.failures) > 0 {
		return nil, s.settleFailedRun(detached, run, tally)
	}

	// Everyone is paid: post the disbursement.
	txn, err := s.postDisbursement(detached, run)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnbalancedTransaction) {
			s.LogError(detached, err, "Ledger invariant violated while posting disbursement, expense left in PROCESSING_PAYMENT")
			s.Metrics.IncDisbursement(string(s.cfg.Mode), outcomeLedgerInvalid)
			return nil, err
		}
		s.LogError(detached, err, "Failed to post disbursement")
		if uerr := s.expenseRepo.UpdateExpenseStatus(detached, run.expense.ExpenseID,
			domain.ExpenseProcessingPayment, domain.ExpensePartiallyPaid, run.actingUserID, s.now().UTC()); uerr != nil {
			s.LogError(detached, uerr, "Failed to release expense after posting failure")
		} else {
			s.publish(detached, run, domain.ExpenseProcessingPayment, domain.ExpensePartiallyPaid, tally.paidTotal(), 0)
		}
		s.Metrics.IncDisbursement(string(s.cfg.Mode), outcomePostingFailed)
		return nil, fmt.Errorf("all beneficiaries paid but posting failed, retry to post: %w", err)
	}

	s.publish(detached, run, domain.ExpenseProcessingPayment, domain.ExpenseDisbursed, tally.paidTotal(), 0)
	s.Metrics.IncDisbursement(string(s.cfg.Mode), outcomeDisbursed)
	s.LogInfo(detached, "Expense disbursed",
		slog.String("transaction_id", txn.TransactionID),
		slog.Int("paid", tally.paid),
		slog.Int("already_paid", tally.alreadyPaid))

	return &dto.DisbursementResult{
		ExpenseID:           run.expense.ExpenseID,
		Status:              domain.ExpenseDisbursed,
		Succeeded:           tally.paid,
		Failed:              0,
		AlreadyPaid:         tally.alreadyPaid,
		LedgerTransactionID: txn.TransactionID,
	}, nil
}

// authorizeAndLock verifies the payer, code and funds, then moves the expense into payment. Nothing changes unless every check passes.
func (s *disbursementService) authorizeAndLock(ctx context.Context, req dto.DisburseRequest) (*disbursementRun, error) {
	user, err := s.userRepo.FindUserByID(ctx, req.ActingUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %s", apperrors.ErrUnauthorized, req.ActingUserID)
		}
		s.LogError(ctx, err, "Failed to load acting user", slog.String("user_id", req.ActingUserID))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.HasPermission(domain.PermissionDisburse) {
		s.GetLogger(ctx).Warn("User lacks disbursement permission", slog.String("user_id", user.UserID))
		return nil, fmt.Errorf("%w: missing %s", apperrors.ErrUnauthorized, domain.PermissionDisburse)
	}

	ok, err := s.otp.Verify(ctx, user.Email, req.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.GetLogger(ctx).Warn("Disbursement code rejected", slog.String("user_id", user.UserID))
		return nil, apperrors.ErrInvalidOrExpiredCode
	}

	uow, err := s.txManager.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin unit of work for expense lock")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	expense, err := uow.Expenses().FindExpenseByIDForUpdate(ctx, req.ExpenseID)
	if err != nil {
		return nil, err
	}
	if !expense.Status.Disbursable() {
		return nil, fmt.Errorf("%w: expense %s is %s", apperrors.ErrInvalidState, expense.ExpenseID, expense.Status)
	}
	beneficiaries, err := uow.Expenses().FindBeneficiariesByExpenseID(ctx, expense.ExpenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch beneficiaries: %w", err)
	}
	if len(beneficiaries) == 0 {
		return nil, fmt.Errorf("%w: expense %s has no beneficiaries", apperrors.ErrValidation, expense.ExpenseID)
	}

	sourceID := req.SourceAccountID
	if sourceID == "" {
		sourceID = expense.SourceAccountID
	}
	if sourceID == "" {
		return nil, fmt.Errorf("%w: no funding account given or recorded", apperrors.ErrValidation)
	}
	if expense.SourceAccountID != "" && sourceID != expense.SourceAccountID && domain.PaidCount(beneficiaries) > 0 {
		return nil, fmt.Errorf("%w: funding account cannot change once beneficiaries are paid from %s",
			apperrors.ErrValidation, expense.SourceAccountID)
	}
	debitID := expense.ExpenseAccountID
	if debitID == "" {
		debitID = s.cfg.DefaultExpenseAccountID
	}
	if debitID == "" {
		return nil, fmt.Errorf("%w: no expense account on the expense and no default configured", apperrors.ErrValidation)
	}
	if debitID == sourceID {
		return nil, fmt.Errorf("%w: funding and expense account are the same", apperrors.ErrValidation)
	}

	accounts, err := uow.Accounts().FindAccountsByIDs(ctx, []string{sourceID, debitID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	source, found := accounts[sourceID]
	if !found {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, sourceID)
	}
	debitAccount, found := accounts[debitID]
	if !found {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, debitID)
	}
	for _, acc := range []domain.Account{source, debitAccount} {
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, acc.AccountID)
		}
		if acc.CurrencyCode != expense.CurrencyCode {
			return nil, fmt.Errorf("%w: account %s is in %s, expense is in %s",
				apperrors.ErrValidation, acc.AccountID, acc.CurrencyCode, expense.CurrencyCode)
		}
	}

	provider, err := s.resolver.ForAccount(source)
	if err != nil {
		return nil, err
	}

	available := accounting.DisplayBalance(source.Balance, source.AccountType)
	if available.LessThan(expense.Amount) {
		s.GetLogger(ctx).Warn("Funding account balance too low",
			slog.String("available", available.String()),
			slog.String("required", expense.Amount.String()))
		return nil, fmt.Errorf("%w: %s available, %s required",
			apperrors.ErrInsufficientLocalFunds, available.String(), expense.Amount.String())
	}

	if source.MirrorsExternalWallet() {
		unpaid := domain.UnpaidAmount(beneficiaries)
		wallet, err := provider.GetWalletBalance(ctx, expense.CurrencyCode)
		if err != nil {
			s.LogError(ctx, err, "Failed to read provider wallet balance", slog.String("provider", provider.Name()))
			return nil, err
		}
		if accounting.ToMinorUnits(wallet) < accounting.ToMinorUnits(unpaid) {
			s.GetLogger(ctx).Warn("Provider wallet balance too low",
				slog.String("provider", provider.Name()),
				slog.String("wallet", wallet.String()),
				slog.String("unpaid", unpaid.String()))
			return nil, fmt.Errorf("%w: %s holds %s, %s still to pay",
				apperrors.ErrInsufficientProviderFunds, provider.Name(), wallet.String(), unpaid.String())
		}
	}

	from := expense.Status
	now := s.now().UTC()
	expense.Status = domain.ExpenseProcessingPayment
	expense.SourceAccountID = sourceID
	expense.LastUpdatedAt = now
	expense.LastUpdatedBy = user.UserID
	if err := uow.Expenses().UpdateExpense(ctx, *expense); err != nil {
		s.LogError(ctx, err, "Failed to lock expense")
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	if err := uow.Commit(ctx); err != nil {
		s.LogError(ctx, err, "Failed to commit expense lock")
		return nil, fmt.Errorf("failed to commit expense lock: %w", err)
	}

	run := &disbursementRun{
		expense:       *expense,
		beneficiaries: beneficiaries,
		source:        source,
		debitAccount:  debitAccount,
		provider:      provider,
		from:          from,
		actingUserID:  user.UserID,
	}
	s.publish(ctx, run, from, domain.ExpenseProcessingPayment, domain.PaidCount(beneficiaries), 0)
	return run, nil
}

// settleFailedRun records the outcome of a run with at least one unpaid beneficiary.
func (s *disbursementService) settleFailedRun(ctx context.Context, run *disbursementRun, tally payoutTally) error {
	paid := tally.paidTotal()
	to := domain.ExpensePaymentFailed
	outcome := outcomePaymentFailed
	if paid > 0 {
		to = domain.ExpensePartiallyPaid
		outcome = outcomePartiallyPaid
	}

	if err := s.expenseRepo.UpdateExpenseStatus(ctx, run.expense.ExpenseID,
		domain.ExpenseProcessingPayment, to, run.actingUserID, s.now().UTC()); err != nil {
		s.LogError(ctx, err, "Failed to record payout outcome", slog.String("to", string(to)))
	} else {
		s.publish(ctx, run, domain.ExpenseProcessingPayment, to, paid, len(tally.failures))
	}
	s.Metrics.IncDisbursement(string(s.cfg.Mode), outcome)

	s.GetLogger(ctx).Warn("Disbursement incomplete",
		slog.String("status", string(to)),
		slog.Int("paid", paid),
		slog.Int("failed", len(tally.failures)))

	return &apperrors.DisbursementError{
		ExpenseID: run.expense.ExpenseID,
		Outcome:   string(to),
		Succeeded: paid,
		Failed:    len(tally.failures),
		Failures:  tally.failures,
	}
}

// postDisbursement writes one posting for the full amount, linked to the expense in the same unit of work.
func (s *disbursementService) postDisbursement(ctx context.Context, run *disbursementRun) (*domain.Transaction, error) {
	uow, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	expense, err := uow.Expenses().FindExpenseByIDForUpdate(ctx, run.expense.ExpenseID)
	if err != nil {
		return nil, err
	}
	if expense.Status != domain.ExpenseProcessingPayment {
		return nil, fmt.Errorf("%w: expense %s is %s, expected %s",
			apperrors.ErrInvalidState, expense.ExpenseID, expense.Status, domain.ExpenseProcessingPayment)
	}

	txn, err := s.ledger.CreateTransactionInTx(ctx, uow, dto.CreateTransactionRequest{
		Description:  "Disbursement: " + expense.Description,
		Reference:    expense.ExpenseID,
		Metadata:     domain.MetadataExpenseDisbursement,
		CurrencyCode: expense.CurrencyCode,
		Entries: []dto.EntryRequest{
			{AccountID: run.debitAccount.AccountID, SignedAmount: expense.Amount},
			{AccountID: run.source.AccountID, SignedAmount: expense.Amount.Neg()},
		},
	}, run.actingUserID)
	if err != nil {
		return nil, err
	}

	expense.LedgerTransactionID = txn.TransactionID
	expense.Status = domain.ExpenseDisbursed
	expense.LastUpdatedAt = s.now().UTC()
	expense.LastUpdatedBy = run.actingUserID
	if err := uow.Expenses().UpdateExpense(ctx, *expense); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit disbursement posting: %w", err)
	}
	return txn, nil
}

func (s *disbursementService) publish(ctx context.Context, run *disbursementRun, from, to domain.ExpenseStatus, succeeded, failed int) {
	if s.publisher == nil {
		return
	}
	evt := domain.ExpenseStatusChanged{
		EventID:      uuid.NewString(),
		ExpenseID:    run.expense.ExpenseID,
		From:         from,
		To:           to,
		ActingUserID: run.actingUserID,
		Mode:         s.cfg.Mode,
		Succeeded:    succeeded,
		Failed:       failed,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.publisher.PublishExpenseStatusChanged(context.WithoutCancel(ctx), evt); err != nil {
		s.LogWarn(ctx, err, "Failed to publish expense status change",
			slog.String("from", string(from)),
			slog.String("to", string(to)))
	}
}

func (s *disbursementService) ResolveAccountHolder(ctx context.Context, accountID string, req dto.ResolveAccountHolderRequest) (*domain.AccountHolder, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	provider, err := s.resolver.ForAccount(*account)
	if err != nil {
		return nil, err
	}
	holder, err := provider.ResolveAccountHolder(ctx, req.AccountNumber, req.BankCode)
	if err != nil {
		s.LogWarn(ctx, err, "Account holder lookup failed",
			slog.String("provider", provider.Name()),
			slog.String("bank_code", req.BankCode))
		return nil, err
	}
	return holder, nil
}

func withLogAttrs(ctx context.Context, logger *slog.Logger, attrs ...any) context.Context {
	return middleware.WithLogger(ctx, logger.With(attrs...))
}

func memo(description string) string {
	runes := []rune(description)
	if len(runes) <= disbursementMemoLimit {
		return description
	}
	return string(runes[:disbursementMemoLimit])
}
