package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/core/services"
	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/providers/registry"
	"github.com/SscSPs/disbursement_ledger/internal/providers/simulated"
	"github.com/SscSPs/disbursement_ledger/internal/repositories/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ExpenseStatusChanged
}

func (p *recordingPublisher) PublishExpenseStatusChanged(ctx context.Context, evt domain.ExpenseStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) transitions(expenseID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.ExpenseID == expenseID {
			out = append(out, string(e.From)+"->"+string(e.To))
		}
	}
	return out
}

// failingLedger stands in for the ledger when a posting has to fail.
type failingLedger struct {
	err error
}

func (f failingLedger) CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest, creatorUserID string) (*domain.Transaction, error) {
	return nil, f.err
}

func (f failingLedger) CreateTransactionInTx(ctx context.Context, uow portsrepo.UnitOfWork, req dto.CreateTransactionRequest, creatorUserID string) (*domain.Transaction, error) {
	return nil, f.err
}

const (
	payerEmail  = "payer@example.com"
	staleWindow = 15 * time.Minute
)

type DisbursementServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	repos     portsrepo.RepositoryProvider
	sim       *simulated.Provider
	wallet    *simulated.Provider
	registry  *registry.Registry
	clock     *fakeClock
	publisher *recordingPublisher
	ledger    portssvc.LedgerSvcFacade
	otp       portssvc.OTPSvcFacade
	cfg       services.DisbursementConfig
	service   portssvc.DisbursementSvcFacade
}

func (suite *DisbursementServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.repos = memory.NewStore().RepositoryProvider()
	suite.sim = simulated.New()
	suite.wallet = simulated.New()
	suite.registry = registry.New(domain.ModeLive, suite.sim)
	suite.registry.Register("fakebank", "sk_live_fakebank", func(string) providers.PaymentProvider { return suite.wallet })
	suite.clock = newFakeClock()
	suite.publisher = &recordingPublisher{}
	suite.ledger = services.NewLedgerService(suite.repos)
	suite.otp = services.NewOTPService(suite.repos.OTPRepo, 0, services.WithClock(suite.clock.Now))
	suite.cfg = services.DisbursementConfig{
		Mode:                    domain.ModeLive,
		DefaultExpenseAccountID: "general-expense",
		Concurrency:             1,
		PayoutTimeout:           5 * time.Second,
		StaleAfter:              staleWindow,
	}
	suite.service = suite.newService(suite.cfg, suite.ledger)

	simulatedBinding := &domain.ProviderBinding{Provider: simulated.Name, Behavior: domain.ProviderSimulated}
	for _, acc := range []domain.Account{
		{AccountID: "funding", Name: "Operating wallet", Code: "1000", AccountType: domain.Asset, CurrencyCode: "NGN", IsActive: true, Provider: simulatedBinding},
		{AccountID: "funding-2", Name: "Reserve wallet", Code: "1001", AccountType: domain.Asset, CurrencyCode: "NGN", IsActive: true, Provider: simulatedBinding},
		{AccountID: "real-wallet", Name: "Fakebank wallet", Code: "1002", AccountType: domain.Asset, CurrencyCode: "NGN", IsActive: true,
			Provider: &domain.ProviderBinding{Provider: "fakebank", Behavior: domain.ProviderReal}},
		{AccountID: "capital", Name: "Capital", Code: "3000", AccountType: domain.Equity, CurrencyCode: "NGN", IsActive: true},
		{AccountID: "travel", Name: "Travel", Code: "5000", AccountType: domain.ExpenseAccount, CurrencyCode: "NGN", IsActive: true},
		{AccountID: "general-expense", Name: "General expense", Code: "5999", AccountType: domain.ExpenseAccount, CurrencyCode: "NGN", IsActive: true},
		{AccountID: "usd-expense", Name: "Dollar expense", Code: "5100", AccountType: domain.ExpenseAccount, CurrencyCode: "USD", IsActive: true},
	} {
		suite.Require().NoError(suite.repos.AccountRepo.SaveAccount(suite.ctx, acc))
	}

	for _, u := range []domain.User{
		{UserID: "payer", Email: payerEmail, Name: "Payer", Permissions: []domain.Permission{domain.PermissionDisburse}},
		{UserID: "payer-2", Email: "second@example.com", Name: "Second payer", Permissions: []domain.Permission{domain.PermissionDisburse}},
		{UserID: "viewer", Email: "viewer@example.com", Name: "Viewer"},
		{UserID: "auditor", Email: "auditor@example.com", Name: "Auditor", Permissions: []domain.Permission{domain.PermissionManageLedger}},
		{UserID: "creator", Email: "creator@example.com", Name: "Creator", Permissions: []domain.Permission{domain.PermissionManageLedger}},
	} {
		suite.Require().NoError(suite.repos.UserRepo.SaveUser(suite.ctx, u))
	}
}

func (suite *DisbursementServiceTestSuite) newService(cfg services.DisbursementConfig, ledger portssvc.LedgerWriterSvc) portssvc.DisbursementSvcFacade {
	return services.NewDisbursementService(cfg, suite.repos, ledger, suite.otp, suite.registry,
		services.WithEventPublisher(suite.publisher),
		services.WithDisbursementClock(suite.clock.Now))
}

func (suite *DisbursementServiceTestSuite) fund(accountID string, amount string) {
	_, err := suite.ledger.CreateTransaction(suite.ctx, dto.CreateTransactionRequest{
		Description: "Owner funding",
		Entries:     entries(accountID, amount, "capital", "-"+amount),
	}, "creator")
	suite.Require().NoError(err)
}

func (suite *DisbursementServiceTestSuite) newExpense(sourceID string, amounts ...string) *domain.Expense {
	req := dto.CreateExpenseRequest{
		Description:      "Field trip",
		CurrencyCode:     "NGN",
		SourceAccountID:  sourceID,
		ExpenseAccountID: "travel",
	}
	total := decimal.Zero
	for i, a := range amounts {
		amount := decimal.RequireFromString(a)
		total = total.Add(amount)
		req.Beneficiaries = append(req.Beneficiaries, dto.BeneficiaryRequest{
			Name:          fmt.Sprintf("Beneficiary %d", i+1),
			BankName:      "Test Bank",
			BankCode:      "058",
			AccountNumber: fmt.Sprintf("00000000%02d", i+1),
			Amount:        amount,
		})
	}
	req.Amount = total
	expense, err := suite.service.CreateExpense(suite.ctx, req, "creator")
	suite.Require().NoError(err)
	return expense
}

func (suite *DisbursementServiceTestSuite) code(email string) string {
	code, _, err := suite.otp.Issue(suite.ctx, email)
	suite.Require().NoError(err)
	return code
}

func (suite *DisbursementServiceTestSuite) disburse(svc portssvc.DisbursementSvcFacade, expenseID string) (*dto.DisbursementResult, error) {
	return svc.Disburse(suite.ctx, dto.DisburseRequest{
		ExpenseID:    expenseID,
		ActingUserID: "payer",
		Code:         suite.code(payerEmail),
		Mode:         domain.ModeLive,
	})
}

func (suite *DisbursementServiceTestSuite) expense(expenseID string) *domain.Expense {
	e, err := suite.service.GetExpense(suite.ctx, expenseID)
	suite.Require().NoError(err)
	return e
}

func (suite *DisbursementServiceTestSuite) display(accountID string) decimal.Decimal {
	bal, err := suite.ledger.GetAccountBalance(suite.ctx, accountID)
	suite.Require().NoError(err)
	return bal.DisplayBalance
}

func (suite *DisbursementServiceTestSuite) postings(expenseID string) []domain.Transaction {
	txns, err := suite.repos.LedgerRepo.FindTransactionsByReference(suite.ctx, expenseID)
	suite.Require().NoError(err)
	return txns
}

// sendOutOfBand leaves a beneficiary the way a run that died after InitiateTransfer does.
func (suite *DisbursementServiceTestSuite) sendOutOfBand(b domain.ExpenseBeneficiary, reference string) {
	suite.Require().NoError(suite.repos.ExpenseRepo.RecordBeneficiaryAttempt(suite.ctx, b.BeneficiaryID, reference, "", 1, suite.clock.Now()))
	_, err := suite.sim.InitiateTransfer(suite.ctx, domain.TransferRequest{
		Amount:       b.Amount,
		CurrencyCode: "NGN",
		Recipient:    domain.RecipientRequest{Name: b.Name, AccountNumber: b.AccountNumber, BankCode: b.BankCode},
		Reference:    reference,
	})
	suite.Require().NoError(err)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_AllBeneficiariesPaid() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800", "1200")

	res, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
	suite.Equal(2, res.Succeeded)
	suite.Equal(0, res.AlreadyPaid)
	suite.NotEmpty(res.LedgerTransactionID)

	suite.True(suite.display("funding").Equal(amount("7000")))
	suite.True(suite.display("travel").Equal(amount("3000")))

	txns := suite.postings(exp.ExpenseID)
	suite.Require().Len(txns, 1)
	suite.Equal(domain.MetadataExpenseDisbursement, txns[0].Metadata)
	txn, err := suite.ledger.GetTransaction(suite.ctx, res.LedgerTransactionID)
	suite.Require().NoError(err)
	suite.Len(txn.Entries, 2)
	suite.True(txn.Amount.Equal(amount("3000")))

	stored := suite.expense(exp.ExpenseID)
	suite.Equal(domain.ExpenseDisbursed, stored.Status)
	suite.Equal(res.LedgerTransactionID, stored.LedgerTransactionID)
	for _, b := range stored.Beneficiaries {
		suite.Equal(domain.BeneficiaryPaid, b.Status)
		suite.NotNil(b.PaidAt)
		suite.Equal(1, b.Attempts)
		suite.Regexp(`^dsb_[0-9a-f]{32}_1$`, b.TransferReference)
	}

	transfers := suite.sim.Transfers()
	suite.Require().Len(transfers, 2)
	suite.True(transfers[0].Amount.Equal(amount("1800")))
	suite.True(transfers[1].Amount.Equal(amount("1200")))
	suite.Equal("SIMULATED 0000000001", transfers[0].Recipient.Name, "resolved holder name is used")
	suite.Equal("Field trip", transfers[0].Memo)

	suite.Equal([]string{"APPROVED->PROCESSING_PAYMENT", "PROCESSING_PAYMENT->DISBURSED"},
		suite.publisher.transitions(exp.ExpenseID))
}

func (suite *DisbursementServiceTestSuite) TestDisburse_DefaultExpenseAccount() {
	suite.fund("funding", "500")
	exp, err := suite.service.CreateExpense(suite.ctx, dto.CreateExpenseRequest{
		Description:     "Stationery",
		Amount:          amount("500"),
		CurrencyCode:    "ngn",
		SourceAccountID: "funding",
		Beneficiaries: []dto.BeneficiaryRequest{
			{Name: "Shop", BankCode: "058", AccountNumber: "0000000099", Amount: amount("500"), SkipResolution: true},
		},
	}, "creator")
	suite.Require().NoError(err)
	suite.Equal("NGN", exp.CurrencyCode)

	_, err = suite.disburse(suite.service, exp.ExpenseID)
	suite.Require().NoError(err)
	suite.True(suite.display("general-expense").Equal(amount("500")))
	suite.Equal(0, suite.sim.Calls("resolve"), "resolution skipped")
	suite.Equal("Shop", suite.sim.Transfers()[0].Recipient.Name)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_PartialThenResume() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1000", "1000", "1000")
	suite.sim.SetOutcome("0000000003", simulated.OutcomeReject)

	res, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.Nil(res)
	de, ok := apperrors.AsDisbursementError(err)
	suite.Require().True(ok, "got %v", err)
	suite.Equal(string(domain.ExpensePartiallyPaid), de.Outcome)
	suite.Equal(2, de.Succeeded)
	suite.Equal(1, de.Failed)
	suite.ErrorIs(err, apperrors.ErrTransferRejected)
	suite.Contains(err.Error(), "2 of 3 beneficiaries paid")

	stored := suite.expense(exp.ExpenseID)
	suite.Equal(domain.ExpensePartiallyPaid, stored.Status)
	suite.Empty(suite.postings(exp.ExpenseID), "nothing posted until every beneficiary is paid")
	suite.True(suite.display("funding").Equal(amount("10000")))
	failed := stored.Beneficiaries[2]
	suite.Equal(domain.BeneficiaryPending, failed.Status)
	suite.NotEmpty(failed.LastError)
	suite.Equal(domain.PayoutReady, failed.PayoutState())

	suite.sim.SetOutcome("0000000003", simulated.OutcomeSuccess)
	res, err = suite.disburse(suite.service, exp.ExpenseID)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
	suite.Equal(1, res.Succeeded)
	suite.Equal(2, res.AlreadyPaid)
	suite.Len(suite.sim.Transfers(), 3, "paid beneficiaries are never sent again")
	suite.Equal(1, suite.sim.Calls("verify"), "only the failed attempt is checked")
	suite.Equal(3, suite.sim.Calls("register_recipient"), "recipient handle is reused")
	suite.Len(suite.postings(exp.ExpenseID), 1)
	suite.True(suite.display("funding").Equal(amount("7000")))

	retried := suite.expense(exp.ExpenseID).Beneficiaries[2]
	suite.Equal(2, retried.Attempts)
	suite.Regexp(`_2$`, retried.TransferReference)

	suite.Equal([]string{
		"APPROVED->PROCESSING_PAYMENT",
		"PROCESSING_PAYMENT->PARTIALLY_PAID",
		"PARTIALLY_PAID->PROCESSING_PAYMENT",
		"PROCESSING_PAYMENT->DISBURSED",
	}, suite.publisher.transitions(exp.ExpenseID))
}

func (suite *DisbursementServiceTestSuite) TestDisburse_NothingPaid() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "2500")
	suite.sim.SetOutcome("0000000001", simulated.OutcomeUnavailable)

	_, err := suite.disburse(suite.service, exp.ExpenseID)

	de, ok := apperrors.AsDisbursementError(err)
	suite.Require().True(ok)
	suite.Equal(string(domain.ExpensePaymentFailed), de.Outcome)
	suite.Equal(0, de.Succeeded)
	suite.ErrorIs(err, apperrors.ErrProviderUnavailable)
	suite.Equal(domain.ExpensePaymentFailed, suite.expense(exp.ExpenseID).Status)
	suite.Empty(suite.expense(exp.ExpenseID).Beneficiaries[0].TransferReference, "failed before any transfer was attempted")

	suite.sim.SetOutcome("0000000001", simulated.OutcomeSuccess)
	res, err := suite.disburse(suite.service, exp.ExpenseID)
	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_UnresolvableAccount() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1000", "1000")
	suite.sim.SetOutcome("0000000001", simulated.OutcomeUnresolvable)

	_, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.ErrorIs(err, apperrors.ErrResolutionFailed)
	suite.Equal(domain.ExpensePartiallyPaid, suite.expense(exp.ExpenseID).Status)
	suite.Len(suite.sim.Transfers(), 1)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_LostOutcomeConfirmedWithoutResend() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800")
	suite.sendOutOfBand(exp.Beneficiaries[0], "dsb_lost_1")

	res, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
	suite.Equal(1, res.Succeeded)
	suite.Equal(1, suite.sim.Calls("transfer"), "confirmed transfer is not sent again")
	suite.Equal(1, suite.sim.Calls("verify"))
	b := suite.expense(exp.ExpenseID).Beneficiaries[0]
	suite.Equal(domain.BeneficiaryPaid, b.Status)
	suite.Equal("dsb_lost_1", b.TransferReference)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_PendingTransferIsNotResent() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800")
	suite.sim.SetOutcome("0000000001", simulated.OutcomePending)
	suite.sendOutOfBand(exp.Beneficiaries[0], "dsb_pending_1")

	_, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.ErrorIs(err, apperrors.ErrTransferPending)
	suite.Equal(domain.ExpensePaymentFailed, suite.expense(exp.ExpenseID).Status)
	suite.Equal(1, suite.sim.Calls("transfer"))
	suite.Equal(domain.PayoutInFlight, suite.expense(exp.ExpenseID).Beneficiaries[0].PayoutState())

	suite.sim.SettleTransfer("dsb_pending_1", domain.TransferSuccess)
	res, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
	suite.Equal(1, suite.sim.Calls("transfer"))
}

func (suite *DisbursementServiceTestSuite) TestDisburse_FailedTransferAtProviderIsRetried() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800")
	suite.sendOutOfBand(exp.Beneficiaries[0], "dsb_reversed_1")
	suite.sim.SettleTransfer("dsb_reversed_1", domain.TransferFailed)

	res, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
	suite.Equal(2, suite.sim.Calls("transfer"))
	suite.Equal(2, suite.expense(exp.ExpenseID).Beneficiaries[0].Attempts)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_AcceptedPendingCountsAsPaid() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800")
	suite.sim.SetOutcome("0000000001", simulated.OutcomePending)

	res, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
	suite.Equal(domain.BeneficiaryPaid, suite.expense(exp.ExpenseID).Beneficiaries[0].Status)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_InsufficientLocalFunds() {
	suite.fund("funding", "1000")
	exp := suite.newExpense("funding", "1800", "1200")

	_, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.ErrorIs(err, apperrors.ErrInsufficientLocalFunds)
	suite.Equal(domain.ExpenseApproved, suite.expense(exp.ExpenseID).Status)
	suite.Equal(0, suite.sim.Calls("resolve"))
	suite.Equal(0, suite.sim.Calls("transfer"))
	suite.Empty(suite.publisher.transitions(exp.ExpenseID))
}

func (suite *DisbursementServiceTestSuite) TestDisburse_InsufficientProviderFunds() {
	suite.fund("real-wallet", "10000")
	suite.wallet.SetBalance("NGN", amount("2999.99"))
	exp := suite.newExpense("real-wallet", "1800", "1200")

	_, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.ErrorIs(err, apperrors.ErrInsufficientProviderFunds)
	suite.Equal(domain.ExpenseApproved, suite.expense(exp.ExpenseID).Status)
	suite.Equal(1, suite.wallet.Calls("balance"))
	suite.Equal(0, suite.wallet.Calls("transfer"))

	suite.wallet.SetBalance("NGN", amount("3000"))
	res, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
	suite.Len(suite.wallet.Transfers(), 2)
	suite.Empty(suite.sim.Transfers(), "REAL bindings never touch the simulated rail")
}

func (suite *DisbursementServiceTestSuite) TestDisburse_Unauthorized() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800")

	for _, userID := range []string{"viewer", "auditor", "ghost"} {
		suite.Run(userID, func() {
			_, err := suite.service.Disburse(suite.ctx, dto.DisburseRequest{
				ExpenseID:    exp.ExpenseID,
				ActingUserID: userID,
				Code:         "123456",
				Mode:         domain.ModeLive,
			})
			suite.ErrorIs(err, apperrors.ErrUnauthorized)
		})
	}
	suite.Equal(domain.ExpenseApproved, suite.expense(exp.ExpenseID).Status)
	suite.Equal(0, suite.sim.Calls("transfer"))
}

func (suite *DisbursementServiceTestSuite) TestDisburse_InvalidCode() {
	suite.fund("funding", "10000")
	first := suite.newExpense("funding", "1000")
	second := suite.newExpense("funding", "1000")

	code := suite.code(payerEmail)
	_, err := suite.service.Disburse(suite.ctx, dto.DisburseRequest{
		ExpenseID: first.ExpenseID, ActingUserID: "payer", Code: wrongCode(code),
	})
	suite.ErrorIs(err, apperrors.ErrInvalidOrExpiredCode)
	suite.Equal(domain.ExpenseApproved, suite.expense(first.ExpenseID).Status)

	code = suite.code(payerEmail)
	_, err = suite.service.Disburse(suite.ctx, dto.DisburseRequest{
		ExpenseID: first.ExpenseID, ActingUserID: "payer", Code: code,
	})
	suite.Require().NoError(err)

	_, err = suite.service.Disburse(suite.ctx, dto.DisburseRequest{
		ExpenseID: second.ExpenseID, ActingUserID: "payer", Code: code,
	})
	suite.ErrorIs(err, apperrors.ErrInvalidOrExpiredCode, "a code authorizes one run")

	code = suite.code(payerEmail)
	suite.clock.Advance(11 * time.Minute)
	_, err = suite.service.Disburse(suite.ctx, dto.DisburseRequest{
		ExpenseID: second.ExpenseID, ActingUserID: "payer", Code: code,
	})
	suite.ErrorIs(err, apperrors.ErrInvalidOrExpiredCode, "expired code")
	suite.Equal(domain.ExpenseApproved, suite.expense(second.ExpenseID).Status)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_NotDisbursable() {
	suite.fund("funding", "10000")
	done := suite.newExpense("funding", "1000")
	_, err := suite.disburse(suite.service, done.ExpenseID)
	suite.Require().NoError(err)

	_, err = suite.disburse(suite.service, done.ExpenseID)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.Len(suite.sim.Transfers(), 1)
	suite.Len(suite.postings(done.ExpenseID), 1)

	pending, err := suite.service.CreateExpense(suite.ctx, dto.CreateExpenseRequest{
		Description:     "Awaiting approval",
		Amount:          amount("10"),
		CurrencyCode:    "NGN",
		Status:          domain.ExpensePending,
		SourceAccountID: "funding",
		Beneficiaries:   []dto.BeneficiaryRequest{{Name: "A", BankCode: "058", AccountNumber: "0000000001", Amount: amount("10")}},
	}, "creator")
	suite.Require().NoError(err)
	_, err = suite.disburse(suite.service, pending.ExpenseID)
	suite.ErrorIs(err, apperrors.ErrInvalidState)

	_, err = suite.disburse(suite.service, "missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_RequestValidation() {
	exp := suite.newExpense("funding", "1000")

	_, err := suite.service.Disburse(suite.ctx, dto.DisburseRequest{
		ExpenseID: exp.ExpenseID, ActingUserID: "payer", Code: "123456", Mode: domain.ModeTest,
	})
	suite.ErrorIs(err, apperrors.ErrValidation, "mode mismatch")

	_, err = suite.service.Disburse(suite.ctx, dto.DisburseRequest{ActingUserID: "payer", Code: "123456"})
	suite.ErrorIs(err, apperrors.ErrValidation, "missing expense")
}

func (suite *DisbursementServiceTestSuite) TestDisburse_SourceLockedAfterPartialPayment() {
	suite.fund("funding", "10000")
	suite.fund("funding-2", "10000")
	exp := suite.newExpense("funding", "1000", "1000")
	suite.sim.SetOutcome("0000000002", simulated.OutcomeReject)
	_, err := suite.disburse(suite.service, exp.ExpenseID)
	suite.Require().Error(err)

	_, err = suite.service.Disburse(suite.ctx, dto.DisburseRequest{
		ExpenseID:       exp.ExpenseID,
		SourceAccountID: "funding-2",
		ActingUserID:    "payer",
		Code:            suite.code(payerEmail),
	})

	suite.ErrorIs(err, apperrors.ErrValidation)
	stored := suite.expense(exp.ExpenseID)
	suite.Equal(domain.ExpensePartiallyPaid, stored.Status)
	suite.Equal("funding", stored.SourceAccountID)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_SourceFromRequest() {
	suite.fund("funding-2", "10000")
	exp := suite.newExpense("", "1000")

	_, err := suite.disburse(suite.service, exp.ExpenseID)
	suite.ErrorIs(err, apperrors.ErrValidation, "no funding account anywhere")

	_, err = suite.service.Disburse(suite.ctx, dto.DisburseRequest{
		ExpenseID:       exp.ExpenseID,
		SourceAccountID: "funding-2",
		ActingUserID:    "payer",
		Code:            suite.code(payerEmail),
	})
	suite.Require().NoError(err)
	suite.Equal("funding-2", suite.expense(exp.ExpenseID).SourceAccountID)
	suite.True(suite.display("funding-2").Equal(amount("9000")))
}

func (suite *DisbursementServiceTestSuite) TestDisburse_PostingFailureLeavesResumableState() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800", "1200")
	broken := suite.newService(suite.cfg, failingLedger{err: errors.New("connection reset")})

	_, err := suite.disburse(broken, exp.ExpenseID)

	suite.Require().Error(err)
	suite.Contains(err.Error(), "retry to post")
	suite.Equal(domain.ExpensePartiallyPaid, suite.expense(exp.ExpenseID).Status)
	suite.Empty(suite.postings(exp.ExpenseID))

	res, err := suite.disburse(suite.service, exp.ExpenseID)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)
	suite.Equal(0, res.Succeeded)
	suite.Equal(2, res.AlreadyPaid)
	suite.Len(suite.sim.Transfers(), 2)
	suite.Len(suite.postings(exp.ExpenseID), 1)
	suite.True(suite.display("funding").Equal(amount("7000")))
}

func (suite *DisbursementServiceTestSuite) TestDisburse_UnbalancedPostingKeepsLock() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800")
	broken := suite.newService(suite.cfg, failingLedger{err: apperrors.ErrUnbalancedTransaction})

	_, err := suite.disburse(broken, exp.ExpenseID)

	suite.ErrorIs(err, apperrors.ErrUnbalancedTransaction)
	suite.Equal(domain.ExpenseProcessingPayment, suite.expense(exp.ExpenseID).Status)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_ConcurrentCallsPayOnce() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800", "1200")
	codes := map[string]string{
		"payer":   suite.code(payerEmail),
		"payer-2": suite.code("second@example.com"),
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(codes))
	for userID, code := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.service.Disburse(suite.ctx, dto.DisburseRequest{
				ExpenseID: exp.ExpenseID, ActingUserID: userID, Code: code,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrInvalidState):
			rejected++
		default:
			suite.Failf("unexpected error", "%v", err)
		}
	}
	suite.Equal(1, succeeded)
	suite.Equal(1, rejected)
	suite.Len(suite.sim.Transfers(), 2)
	suite.Len(suite.postings(exp.ExpenseID), 1)
}

func (suite *DisbursementServiceTestSuite) TestDisburse_ConcurrentPayouts() {
	cfg := suite.cfg
	cfg.Concurrency = 3
	svc := suite.newService(cfg, suite.ledger)
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "600", "600", "600", "600", "600")
	suite.sim.SetOutcome("0000000004", simulated.OutcomeReject)

	_, err := suite.disburse(svc, exp.ExpenseID)
	de, ok := apperrors.AsDisbursementError(err)
	suite.Require().True(ok)
	suite.Equal(4, de.Succeeded)
	suite.Require().Len(de.Failures, 1)
	suite.Equal(exp.Beneficiaries[3].BeneficiaryID, de.Failures[0].BeneficiaryID)

	suite.sim.SetOutcome("0000000004", simulated.OutcomeSuccess)
	res, err := suite.disburse(svc, exp.ExpenseID)
	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDisbursed, res.Status)

	refs := map[string]bool{}
	for _, t := range suite.sim.Transfers() {
		suite.False(refs[t.Reference], "reference %s reused", t.Reference)
		refs[t.Reference] = true
	}
	suite.Len(refs, 5)
}

func (suite *DisbursementServiceTestSuite) lockAsIfRunDied(expenseID string) {
	uow, err := suite.repos.TxManager.Begin(suite.ctx)
	suite.Require().NoError(err)
	exp, err := uow.Expenses().FindExpenseByIDForUpdate(suite.ctx, expenseID)
	suite.Require().NoError(err)
	exp.Status = domain.ExpenseProcessingPayment
	exp.LastUpdatedAt = suite.clock.Now()
	exp.LastUpdatedBy = "payer"
	suite.Require().NoError(uow.Expenses().UpdateExpense(suite.ctx, *exp))
	suite.Require().NoError(uow.Commit(suite.ctx))
}

func (suite *DisbursementServiceTestSuite) TestReconcileExpense_ReleasesStaleLock() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800", "1200")
	suite.sendOutOfBand(exp.Beneficiaries[0], "dsb_died_1")
	suite.lockAsIfRunDied(exp.ExpenseID)

	report, err := suite.service.ReconcileExpense(suite.ctx, exp.ExpenseID, "auditor")
	suite.Require().NoError(err)
	suite.False(report.Released, "lock is still fresh")
	suite.Equal(domain.ExpenseProcessingPayment, report.Status)
	suite.Equal(domain.TransferSuccess, report.Beneficiaries[0].ProviderStatus)
	suite.Equal(domain.BeneficiaryPending, report.Beneficiaries[0].Status, "a live run owns the expense")
	suite.Equal(domain.BeneficiaryPending, suite.expense(exp.ExpenseID).Beneficiaries[0].Status)

	suite.clock.Advance(staleWindow + time.Minute)
	report, err = suite.service.ReconcileExpense(suite.ctx, exp.ExpenseID, "auditor")
	suite.Require().NoError(err)
	suite.True(report.Released)
	suite.Equal(domain.ExpensePartiallyPaid, report.Status)
	suite.True(report.PaidAmount.Equal(amount("1800")))
	suite.True(report.PostedAmount.IsZero())
	suite.True(report.UnpostedAmount.Equal(amount("1800")))
	suite.Equal(domain.BeneficiaryPaid, suite.expense(exp.ExpenseID).Beneficiaries[0].Status)
	suite.Equal([]string{"PROCESSING_PAYMENT->PARTIALLY_PAID"}, suite.publisher.transitions(exp.ExpenseID))

	res, err := suite.disburse(suite.service, exp.ExpenseID)
	suite.Require().NoError(err)
	suite.Equal(1, res.Succeeded)
	suite.Equal(1, res.AlreadyPaid)
	suite.Len(suite.sim.Transfers(), 2)
}

func (suite *DisbursementServiceTestSuite) TestReconcileExpense_StaleWithNothingPaid() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800")
	suite.lockAsIfRunDied(exp.ExpenseID)
	suite.clock.Advance(staleWindow + time.Second)

	report, err := suite.service.ReconcileExpense(suite.ctx, exp.ExpenseID, "payer")
	suite.Require().NoError(err)
	suite.True(report.Released)
	suite.Equal(domain.ExpensePaymentFailed, report.Status)
	suite.Equal(0, suite.sim.Calls("verify"), "no reference, nothing to ask")
}

func (suite *DisbursementServiceTestSuite) TestReconcileExpense_Disbursed() {
	suite.fund("funding", "10000")
	exp := suite.newExpense("funding", "1800", "1200")
	_, err := suite.disburse(suite.service, exp.ExpenseID)
	suite.Require().NoError(err)

	report, err := suite.service.ReconcileExpense(suite.ctx, exp.ExpenseID, "auditor")

	suite.Require().NoError(err)
	suite.False(report.Released)
	suite.Equal(domain.ExpenseDisbursed, report.Status)
	suite.True(report.PaidAmount.Equal(amount("3000")))
	suite.True(report.PostedAmount.Equal(amount("3000")))
	suite.True(report.UnpostedAmount.IsZero())
	suite.Require().Len(report.Beneficiaries, 2)
	for _, line := range report.Beneficiaries {
		suite.Equal(domain.TransferSuccess, line.ProviderStatus)
		suite.Empty(line.Error)
	}

	_, err = suite.service.ReconcileExpense(suite.ctx, exp.ExpenseID, "viewer")
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
	_, err = suite.service.ReconcileExpense(suite.ctx, "missing", "auditor")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *DisbursementServiceTestSuite) TestCreateExpense_Validation() {
	beneficiary := func(a string) dto.BeneficiaryRequest {
		return dto.BeneficiaryRequest{Name: "A", BankCode: "058", AccountNumber: "0000000001", Amount: amount(a)}
	}
	tests := []struct {
		name    string
		req     dto.CreateExpenseRequest
		wantErr error
	}{
		{
			name:    "no beneficiaries",
			req:     dto.CreateExpenseRequest{Amount: amount("10"), CurrencyCode: "NGN"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "beneficiaries do not add up",
			req:     dto.CreateExpenseRequest{Amount: amount("3000"), CurrencyCode: "NGN", Beneficiaries: []dto.BeneficiaryRequest{beneficiary("1800"), beneficiary("1199.99")}},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "negative beneficiary",
			req:     dto.CreateExpenseRequest{Amount: amount("10"), CurrencyCode: "NGN", Beneficiaries: []dto.BeneficiaryRequest{beneficiary("20"), beneficiary("-10")}},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "created already disbursed",
			req:     dto.CreateExpenseRequest{Amount: amount("10"), CurrencyCode: "NGN", Status: domain.ExpenseDisbursed, Beneficiaries: []dto.BeneficiaryRequest{beneficiary("10")}},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "unknown source account",
			req:     dto.CreateExpenseRequest{Amount: amount("10"), CurrencyCode: "NGN", SourceAccountID: "nowhere", Beneficiaries: []dto.BeneficiaryRequest{beneficiary("10")}},
			wantErr: apperrors.ErrAccountNotFound,
		},
		{
			name:    "expense account in another currency",
			req:     dto.CreateExpenseRequest{Amount: amount("10"), CurrencyCode: "NGN", ExpenseAccountID: "usd-expense", Beneficiaries: []dto.BeneficiaryRequest{beneficiary("10")}},
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			tt.req.Description = tt.name
			exp, err := suite.service.CreateExpense(suite.ctx, tt.req, "creator")
			suite.ErrorIs(err, tt.wantErr)
			suite.Nil(exp)
		})
	}
}

func (suite *DisbursementServiceTestSuite) TestCreateExpense_RequiresManageLedger() {
	req := dto.CreateExpenseRequest{
		Description:     "Unapproved spend",
		Amount:          amount("100"),
		CurrencyCode:    "NGN",
		SourceAccountID: "funding",
		Beneficiaries:   []dto.BeneficiaryRequest{{Name: "A", BankCode: "058", AccountNumber: "0000000001", Amount: amount("100")}},
	}
	for _, userID := range []string{"payer", "viewer", "ghost"} {
		suite.Run(userID, func() {
			exp, err := suite.service.CreateExpense(suite.ctx, req, userID)
			suite.ErrorIs(err, apperrors.ErrUnauthorized)
			suite.Nil(exp)
		})
	}
}

func (suite *DisbursementServiceTestSuite) TestCreateExpense_SubCentDifferenceAccepted() {
	exp, err := suite.service.CreateExpense(suite.ctx, dto.CreateExpenseRequest{
		Description:  "Rounded split",
		Amount:       amount("100"),
		CurrencyCode: "NGN",
		Beneficiaries: []dto.BeneficiaryRequest{
			{Name: "A", BankCode: "058", AccountNumber: "0000000001", Amount: amount("33.333")},
			{Name: "B", BankCode: "058", AccountNumber: "0000000002", Amount: amount("33.333")},
			{Name: "C", BankCode: "058", AccountNumber: "0000000003", Amount: amount("33.333")},
		},
	}, "creator")

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseApproved, exp.Status)
	stored := suite.expense(exp.ExpenseID)
	suite.Require().Len(stored.Beneficiaries, 3)
	for i, b := range stored.Beneficiaries {
		suite.Equal(i, b.Position)
		suite.Equal(domain.BeneficiaryPending, b.Status)
	}
}

func (suite *DisbursementServiceTestSuite) TestResolveAccountHolder() {
	holder, err := suite.service.ResolveAccountHolder(suite.ctx, "funding", dto.ResolveAccountHolderRequest{AccountNumber: "0123456789", BankCode: "058"})
	suite.Require().NoError(err)
	suite.Equal("SIMULATED 0123456789", holder.AccountName)

	suite.sim.SetOutcome("0123456789", simulated.OutcomeUnresolvable)
	_, err = suite.service.ResolveAccountHolder(suite.ctx, "funding", dto.ResolveAccountHolderRequest{AccountNumber: "0123456789", BankCode: "058"})
	suite.ErrorIs(err, apperrors.ErrResolutionFailed)

	_, err = suite.service.ResolveAccountHolder(suite.ctx, "travel", dto.ResolveAccountHolderRequest{AccountNumber: "0123456789", BankCode: "058"})
	suite.ErrorIs(err, apperrors.ErrValidation, "account has no provider")

	_, err = suite.service.ResolveAccountHolder(suite.ctx, "missing", dto.ResolveAccountHolderRequest{AccountNumber: "0123456789", BankCode: "058"})
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
}

func TestDisbursementService(t *testing.T) {
	suite.Run(t, new(DisbursementServiceTestSuite))
}
