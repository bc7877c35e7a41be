// Package paystack adapts the Paystack transfers API. Amounts on the wire are in kobo.
package paystack

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	"github.com/SscSPs/disbursement_ledger/internal/providers/httpclient"
	"github.com/SscSPs/disbursement_ledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

const (
	Name           = "paystack"
	DefaultBaseURL = "https://api.paystack.co"
)

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type resolveData struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type recipientData struct {
	RecipientCode string `json:"recipient_code"`
}

type transferData struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

type balanceData struct {
	Currency string `json:"currency"`
	Balance  int64  `json:"balance"`
}

// Provider talks to Paystack over a shared httpclient.
type Provider struct {
	client *httpclient.Client
}

var _ providers.PaymentProvider = (*Provider)(nil)

// New creates a Paystack adapter. cfg.Provider is forced to Name.
func New(cfg httpclient.Config) *Provider {
	cfg.Provider = Name
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Provider{client: httpclient.New(cfg)}
}

func (p *Provider) Name() string { return Name }

func decode[T any](resp *httpclient.Response, op string) (*envelope[T], error) {
	var env envelope[T]
	if err := resp.Decode(&env); err != nil {
		return nil, providers.NewProviderError(Name, op, "malformed response: "+err.Error(), apperrors.ErrProviderUnavailable)
	}
	return &env, nil
}

func (p *Provider) ResolveAccountHolder(ctx context.Context, accountNumber, bankCode string) (*domain.AccountHolder, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)
	resp, err := p.client.Get(ctx, "resolve", "/bank/resolve?"+q.Encode())
	if err != nil {
		return nil, err
	}
	env, err := decode[resolveData](resp, "resolve")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || !env.Status || env.Data.AccountName == "" {
		return nil, providers.NewProviderError(Name, "resolve", env.Message, apperrors.ErrResolutionFailed)
	}
	return &domain.AccountHolder{
		AccountName:   env.Data.AccountName,
		AccountNumber: env.Data.AccountNumber,
		BankCode:      bankCode,
	}, nil
}

// RegisterRecipient creates a NUBAN recipient. Paystack deduplicates on account details, so a retry returns the same code.
func (p *Provider) RegisterRecipient(ctx context.Context, req domain.RecipientRequest) (string, error) {
	body := map[string]any{
		"type":           "nuban",
		"name":           req.Name,
		"account_number": req.AccountNumber,
		"bank_code":      req.BankCode,
		"currency":       req.CurrencyCode,
	}
	resp, err := p.client.PostIdempotent(ctx, "register_recipient", "/transferrecipient", body)
	if err != nil {
		return "", err
	}
	env, err := decode[recipientData](resp, "register_recipient")
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Status || env.Data.RecipientCode == "" {
		return "", providers.NewProviderError(Name, "register_recipient", env.Message, apperrors.ErrTransferRejected)
	}
	return env.Data.RecipientCode, nil
}

func (p *Provider) InitiateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	recipient := req.RecipientHandle
	if recipient == "" {
		var err error
		if recipient, err = p.RegisterRecipient(ctx, req.Recipient); err != nil {
			return nil, err
		}
	}

	body := map[string]any{
		"source":    "balance",
		"amount":    accounting.ToMinorUnits(req.Amount),
		"recipient": recipient,
		"reason":    req.Memo,
		"reference": req.Reference,
		"currency":  req.CurrencyCode,
	}
	resp, err := p.client.Post(ctx, "transfer", "/transfer", body)
	if err != nil {
		return nil, err
	}
	env, err := decode[transferData](resp, "transfer")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		return nil, providers.NewProviderError(Name, "transfer", env.Message, apperrors.ErrTransferRejected)
	}

	status := mapStatus(env.Data.Status)
	if status == domain.TransferFailed {
		return nil, providers.NewProviderError(Name, "transfer", env.Message, apperrors.ErrTransferRejected)
	}
	reference := env.Data.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &domain.TransferResult{
		Reference:  reference,
		ProviderID: env.Data.TransferCode,
		Status:     status,
		Message:    env.Message,
	}, nil
}

func (p *Provider) CheckTransferStatus(ctx context.Context, reference string) (domain.TransferStatus, error) {
	resp, err := p.client.Get(ctx, "verify", "/transfer/verify/"+url.PathEscape(reference))
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.TransferNotFound, nil
	}
	env, err := decode[transferData](resp, "verify")
	if err != nil {
		return "", err
	}
	if !env.Status {
		if strings.Contains(strings.ToLower(env.Message), "not found") {
			return domain.TransferNotFound, nil
		}
		return "", providers.NewProviderError(Name, "verify", env.Message, apperrors.ErrProviderUnavailable)
	}
	return mapStatus(env.Data.Status), nil
}

func (p *Provider) GetWalletBalance(ctx context.Context, currencyCode string) (decimal.Decimal, error) {
	resp, err := p.client.Get(ctx, "balance", "/balance")
	if err != nil {
		return decimal.Zero, err
	}
	env, err := decode[[]balanceData](resp, "balance")
	if err != nil {
		return decimal.Zero, err
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		return decimal.Zero, providers.NewProviderError(Name, "balance", env.Message, apperrors.ErrProviderUnavailable)
	}
	for _, b := range env.Data {
		if strings.EqualFold(b.Currency, currencyCode) {
			return accounting.FromMinorUnits(b.Balance), nil
		}
	}
	return decimal.Zero, providers.NewProviderError(Name, "balance", fmt.Sprintf("no %s wallet", currencyCode), apperrors.ErrProviderUnavailable)
}

func mapStatus(s string) domain.TransferStatus {
	switch strings.ToLower(s) {
	case "success":
		return domain.TransferSuccess
	case "failed", "reversed", "abandoned", "rejected", "blocked":
		return domain.TransferFailed
	default:
		return domain.TransferPending
	}
}
