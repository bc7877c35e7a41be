// Package flutterwave adapts the Flutterwave v3 transfers API. Amounts on the wire are in major units.
package flutterwave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	"github.com/SscSPs/disbursement_ledger/internal/providers/httpclient"
	"github.com/shopspring/decimal"
)

const (
	Name           = "flutterwave"
	DefaultBaseURL = "https://api.flutterwave.com/v3"
)

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (e *envelope[T]) ok() bool { return e.Status == "success" }

type resolveData struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type beneficiaryData struct {
	ID int64 `json:"id"`
}

type transferData struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type balanceData struct {
	Currency         string          `json:"currency"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

// Provider talks to Flutterwave over a shared httpclient.
type Provider struct {
	client *httpclient.Client
}

var _ providers.PaymentProvider = (*Provider)(nil)

// New creates a Flutterwave adapter. cfg.Provider is forced to Name.
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
	body := map[string]string{"account_number": accountNumber, "account_bank": bankCode}
	resp, err := p.client.PostIdempotent(ctx, "resolve", "/accounts/resolve", body)
	if err != nil {
		return nil, err
	}
	env, err := decode[resolveData](resp, "resolve")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || !env.ok() || env.Data.AccountName == "" {
		return nil, providers.NewProviderError(Name, "resolve", env.Message, apperrors.ErrResolutionFailed)
	}
	return &domain.AccountHolder{
		AccountName:   env.Data.AccountName,
		AccountNumber: env.Data.AccountNumber,
		BankCode:      bankCode,
	}, nil
}

func (p *Provider) RegisterRecipient(ctx context.Context, req domain.RecipientRequest) (string, error) {
	body := map[string]string{
		"account_bank":     req.BankCode,
		"account_number":   req.AccountNumber,
		"beneficiary_name": req.Name,
		"currency":         req.CurrencyCode,
	}
	resp, err := p.client.PostIdempotent(ctx, "register_recipient", "/beneficiaries", body)
	if err != nil {
		return "", err
	}
	env, err := decode[beneficiaryData](resp, "register_recipient")
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.ok() || env.Data.ID == 0 {
		return "", providers.NewProviderError(Name, "register_recipient", env.Message, apperrors.ErrTransferRejected)
	}
	return strconv.FormatInt(env.Data.ID, 10), nil
}

// InitiateTransfer pays straight to the bank details. The beneficiary handle is informational on this rail.
func (p *Provider) InitiateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	body := map[string]any{
		"account_bank":     req.Recipient.BankCode,
		"account_number":   req.Recipient.AccountNumber,
		"beneficiary_name": req.Recipient.Name,
		"amount":           json.RawMessage(req.Amount.StringFixed(2)),
		"currency":         req.CurrencyCode,
		"narration":        req.Memo,
		"reference":        req.Reference,
		"debit_currency":   req.CurrencyCode,
	}
	if id, err := strconv.ParseInt(req.RecipientHandle, 10, 64); err == nil {
		body["beneficiary"] = id
	}

	resp, err := p.client.Post(ctx, "transfer", "/transfers", body)
	if err != nil {
		return nil, err
	}
	env, err := decode[transferData](resp, "transfer")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.ok() {
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
		ProviderID: strconv.FormatInt(env.Data.ID, 10),
		Status:     status,
		Message:    env.Message,
	}, nil
}

func (p *Provider) CheckTransferStatus(ctx context.Context, reference string) (domain.TransferStatus, error) {
	q := url.Values{}
	q.Set("reference", reference)
	resp, err := p.client.Get(ctx, "verify", "/transfers?"+q.Encode())
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.TransferNotFound, nil
	}
	env, err := decode[[]transferData](resp, "verify")
	if err != nil {
		return "", err
	}
	if !env.ok() {
		return "", providers.NewProviderError(Name, "verify", env.Message, apperrors.ErrProviderUnavailable)
	}
	for _, t := range env.Data {
		if t.Reference == reference {
			return mapStatus(t.Status), nil
		}
	}
	return domain.TransferNotFound, nil
}

func (p *Provider) GetWalletBalance(ctx context.Context, currencyCode string) (decimal.Decimal, error) {
	resp, err := p.client.Get(ctx, "balance", "/balances/"+url.PathEscape(strings.ToUpper(currencyCode)))
	if err != nil {
		return decimal.Zero, err
	}
	env, err := decode[balanceData](resp, "balance")
	if err != nil {
		return decimal.Zero, err
	}
	if resp.StatusCode != http.StatusOK || !env.ok() {
		return decimal.Zero, providers.NewProviderError(Name, "balance", env.Message, apperrors.ErrProviderUnavailable)
	}
	return env.Data.AvailableBalance, nil
}

func mapStatus(s string) domain.TransferStatus {
	switch strings.ToUpper(s) {
	case "SUCCESSFUL", "SUCCESS":
		return domain.TransferSuccess
	case "FAILED":
		return domain.TransferFailed
	default:
		return domain.TransferPending
	}
}
