package registry

import (
	"testing"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	"github.com/SscSPs/disbursement_ledger/internal/providers/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyedProvider struct {
	*simulated.Provider
	key string
}

func (k *keyedProvider) Name() string { return "paystack" }

func newTestRegistry(built *[]string) *Registry {
	r := New(domain.ModeTest, simulated.New())
	r.Register("paystack", "sk_test_default", func(key string) providers.PaymentProvider {
		*built = append(*built, key)
		return &keyedProvider{Provider: simulated.New(), key: key}
	})
	return r
}

func TestForAccount_SimulatedBehavior(t *testing.T) {
	var built []string
	r := newTestRegistry(&built)

	p, err := r.ForAccount(domain.Account{AccountID: "a", Provider: &domain.ProviderBinding{Provider: "paystack", Behavior: domain.ProviderSimulated}})
	require.NoError(t, err)
	assert.Equal(t, simulated.Name, p.Name())
	assert.Empty(t, built)
}

func TestForAccount_RealUsesDefaultKeyAndCaches(t *testing.T) {
	var built []string
	r := newTestRegistry(&built)
	acc := domain.Account{AccountID: "a", Provider: &domain.ProviderBinding{Provider: "paystack", Behavior: domain.ProviderReal}}

	first, err := r.ForAccount(acc)
	require.NoError(t, err)
	second, err := r.ForAccount(acc)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"sk_test_default"}, built)
	assert.Equal(t, "sk_test_default", first.(*keyedProvider).key)
}

func TestForAccount_AccountKeyOverridesDefault(t *testing.T) {
	var built []string
	r := newTestRegistry(&built)

	p, err := r.ForAccount(domain.Account{AccountID: "a", Provider: &domain.ProviderBinding{Provider: "paystack", Behavior: domain.ProviderReal, SecretKey: "sk_test_own"}})
	require.NoError(t, err)
	assert.Equal(t, "sk_test_own", p.(*keyedProvider).key)
}

func TestForAccount_Errors(t *testing.T) {
	r := New(domain.ModeLive, nil)
	r.Register("paystack", "", func(key string) providers.PaymentProvider { return simulated.New() })

	tests := []struct {
		name    string
		account domain.Account
	}{
		{"unbound", domain.Account{AccountID: "a"}},
		{"unknown rail", domain.Account{AccountID: "a", Provider: &domain.ProviderBinding{Provider: "nope", Behavior: domain.ProviderReal}}},
		{"missing key", domain.Account{AccountID: "a", Provider: &domain.ProviderBinding{Provider: "paystack", Behavior: domain.ProviderReal}}},
		{"no simulated rail", domain.Account{AccountID: "a", Provider: &domain.ProviderBinding{Provider: "paystack", Behavior: domain.ProviderSimulated}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ForAccount(tt.account)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}
