// Package simulated is an in-process payment rail. Accounts bound with SIMULATED behavior pay through it,
// and it doubles as the provider fake in service tests.
package simulated

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Name = "simulated"

// Outcome decides how the rail treats transfers to an account number.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePending
	OutcomeReject
	OutcomeUnavailable
	OutcomeUnresolvable
)

type transfer struct {
	req    domain.TransferRequest
	status domain.TransferStatus
}

// Provider keeps every transfer in memory keyed by reference.
type Provider struct {
	mu         sync.Mutex
	balances   map[string]decimal.Decimal
	outcomes   map[string]Outcome
	recipients map[string]domain.RecipientRequest
	transfers  map[string]*transfer
	order      []string
	calls      map[string]int
}

var _ providers.PaymentProvider = (*Provider)(nil)

// New creates a rail with an effectively unlimited NGN float.
func New() *Provider {
	return &Provider{
		balances:   map[string]decimal.Decimal{"NGN": decimal.NewFromInt(1_000_000_000)},
		outcomes:   map[string]Outcome{},
		recipients: map[string]domain.RecipientRequest{},
		transfers:  map[string]*transfer{},
		calls:      map[string]int{},
	}
}

func (p *Provider) Name() string { return Name }

// SetBalance sets the float for a currency.
func (p *Provider) SetBalance(currencyCode string, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[strings.ToUpper(currencyCode)] = amount
}

// SetOutcome makes every later call for accountNumber behave as o.
func (p *Provider) SetOutcome(accountNumber string, o Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o == OutcomeSuccess {
		delete(p.outcomes, accountNumber)
		return
	}
	p.outcomes[accountNumber] = o
}

// SettleTransfer moves a pending transfer to status.
func (p *Provider) SettleTransfer(reference string, status domain.TransferStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.transfers[reference]; ok {
		t.status = status
	}
}

// Transfers returns accepted transfers in the order they were made.
func (p *Provider) Transfers() []domain.TransferRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.TransferRequest, 0, len(p.order))
	for _, ref := range p.order {
		out = append(out, p.transfers[ref].req)
	}
	return out
}

// Calls reports how many times op was invoked.
func (p *Provider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *Provider) record(op string) {
	p.calls[op]++
}

func (p *Provider) ResolveAccountHolder(ctx context.Context, accountNumber, bankCode string) (*domain.AccountHolder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("resolve")
	switch p.outcomes[accountNumber] {
	case OutcomeUnresolvable:
		return nil, providers.NewProviderError(Name, "resolve", "unknown account "+accountNumber, apperrors.ErrResolutionFailed)
	case OutcomeUnavailable:
		return nil, providers.NewProviderError(Name, "resolve", "rail offline", apperrors.ErrProviderUnavailable)
	}
	return &domain.AccountHolder{
		AccountName:   "SIMULATED " + accountNumber,
		AccountNumber: accountNumber,
		BankCode:      bankCode,
	}, nil
}

func (p *Provider) RegisterRecipient(ctx context.Context, req domain.RecipientRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("register_recipient")
	if p.outcomes[req.AccountNumber] == OutcomeUnavailable {
		return "", providers.NewProviderError(Name, "register_recipient", "rail offline", apperrors.ErrProviderUnavailable)
	}
	handle := fmt.Sprintf("SIM_RCP_%s_%s", req.BankCode, req.AccountNumber)
	p.recipients[handle] = req
	return handle, nil
}

func (p *Provider) InitiateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("transfer")

	if existing, ok := p.transfers[req.Reference]; ok {
		return nil, providers.NewProviderError(Name, "transfer", "duplicate reference, current status "+string(existing.status), apperrors.ErrTransferRejected)
	}

	recipient := req.Recipient
	if r, ok := p.recipients[req.RecipientHandle]; ok {
		recipient = r
	}
	switch p.outcomes[recipient.AccountNumber] {
	case OutcomeReject:
		return nil, providers.NewProviderError(Name, "transfer", "recipient bank declined", apperrors.ErrTransferRejected)
	case OutcomeUnavailable:
		return nil, providers.NewProviderError(Name, "transfer", "rail offline", apperrors.ErrProviderUnavailable)
	}

	currency := strings.ToUpper(req.CurrencyCode)
	if p.balances[currency].LessThan(req.Amount) {
		return nil, providers.NewProviderError(Name, "transfer", "insufficient float", apperrors.ErrTransferRejected)
	}
	p.balances[currency] = p.balances[currency].Sub(req.Amount)

	status := domain.TransferSuccess
	if p.outcomes[recipient.AccountNumber] == OutcomePending {
		status = domain.TransferPending
	}
	req.Recipient = recipient
	p.transfers[req.Reference] = &transfer{req: req, status: status}
	p.order = append(p.order, req.Reference)

	return &domain.TransferResult{
		Reference:  req.Reference,
		ProviderID: "SIM_TRF_" + uuid.NewString(),
		Status:     status,
		Message:    "simulated transfer accepted",
	}, nil
}

func (p *Provider) CheckTransferStatus(ctx context.Context, reference string) (domain.TransferStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("verify")
	t, ok := p.transfers[reference]
	if !ok {
		return domain.TransferNotFound, nil
	}
	return t.status, nil
}

func (p *Provider) GetWalletBalance(ctx context.Context, currencyCode string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("balance")
	return p.balances[strings.ToUpper(currencyCode)], nil
}
