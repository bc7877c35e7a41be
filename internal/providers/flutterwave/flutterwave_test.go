package flutterwave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/providers/httpclient"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(httpclient.Config{BaseURL: srv.URL, SecretKey: "FLWSECK_TEST", Timeout: time.Second})
}

func TestResolveAccountHolder(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/resolve", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "044", body["account_bank"])
		_, _ = w.Write([]byte(`{"status":"success","message":"Account details fetched","data":{"account_number":"0690000032","account_name":"Pastor Bright"}}`))
	})

	holder, err := p.ResolveAccountHolder(context.Background(), "0690000032", "044")
	require.NoError(t, err)
	assert.Equal(t, "Pastor Bright", holder.AccountName)
}

func TestResolveAccountHolder_Fails(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Sorry, that account number is invalid","data":null}`))
	})

	_, err := p.ResolveAccountHolder(context.Background(), "1", "044")
	assert.ErrorIs(t, err, apperrors.ErrResolutionFailed)
}

func TestRegisterRecipient(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/beneficiaries", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","message":"Beneficiary created","data":{"id":4321}}`))
	})

	handle, err := p.RegisterRecipient(context.Background(), domain.RecipientRequest{Name: "A", AccountNumber: "1", BankCode: "044", CurrencyCode: "NGN"})
	require.NoError(t, err)
	assert.Equal(t, "4321", handle)
}

func TestInitiateTransfer_SendsMajorUnits(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(1200), body["amount"], "amount is a JSON number")
		assert.Equal(t, float64(4321), body["beneficiary"])
		assert.Equal(t, "ref-1", body["reference"])
		_, _ = w.Write([]byte(`{"status":"success","message":"Transfer Queued Successfully","data":{"id":99,"reference":"ref-1","status":"NEW"}}`))
	})

	res, err := p.InitiateTransfer(context.Background(), domain.TransferRequest{
		Amount:          decimal.NewFromInt(1200),
		CurrencyCode:    "NGN",
		RecipientHandle: "4321",
		Recipient:       domain.RecipientRequest{Name: "A", AccountNumber: "1", BankCode: "044"},
		Reference:       "ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferPending, res.Status)
	assert.Equal(t, "99", res.ProviderID)
}

func TestInitiateTransfer_AmountIsExactNumber(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var body map[string]any
		require.NoError(t, dec.Decode(&body))
		amount, ok := body["amount"].(json.Number)
		require.True(t, ok, "amount must be a number, got %T", body["amount"])
		assert.Equal(t, json.Number("1250.56"), amount)
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":100,"reference":"ref-2","status":"NEW"}}`))
	})

	_, err := p.InitiateTransfer(context.Background(), domain.TransferRequest{
		Amount:       decimal.RequireFromString("1250.555"),
		CurrencyCode: "NGN",
		Reference:    "ref-2",
	})
	require.NoError(t, err)
}

func TestInitiateTransfer_Rejected(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Insufficient balance"}`))
	})

	_, err := p.InitiateTransfer(context.Background(), domain.TransferRequest{Amount: decimal.NewFromInt(1), Reference: "ref"})
	assert.ErrorIs(t, err, apperrors.ErrTransferRejected)
}

func TestCheckTransferStatus(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("reference") {
		case "ok":
			_, _ = w.Write([]byte(`{"status":"success","data":[{"id":1,"reference":"ok","status":"SUCCESSFUL"}]}`))
		case "bad":
			_, _ = w.Write([]byte(`{"status":"success","data":[{"id":2,"reference":"bad","status":"FAILED"}]}`))
		default:
			_, _ = w.Write([]byte(`{"status":"success","data":[]}`))
		}
	})

	status, err := p.CheckTransferStatus(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferSuccess, status)

	status, err = p.CheckTransferStatus(context.Background(), "bad")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferFailed, status)

	status, err = p.CheckTransferStatus(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferNotFound, status)
}

func TestGetWalletBalance(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/balances/NGN", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","data":{"currency":"NGN","available_balance":2500.75}}`))
	})

	bal, err := p.GetWalletBalance(context.Background(), "ngn")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2500.75").Equal(bal))
}
