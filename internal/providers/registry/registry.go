// Package registry selects the payment rail for a funding account.
package registry

import (
	"fmt"
	"sync"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
)

// Factory builds a rail client authenticated with secretKey.
type Factory func(secretKey string) providers.PaymentProvider

type rail struct {
	factory    Factory
	defaultKey string
}

// Registry is built once per mode. Clients are cached per rail and key so breaker state survives across requests.
type Registry struct {
	mu        sync.Mutex
	mode      domain.Mode
	simulated providers.PaymentProvider
	rails     map[string]rail
	clients   map[string]providers.PaymentProvider
}

var _ providers.Resolver = (*Registry)(nil)

// New creates a registry. simulated serves every SIMULATED binding.
func New(mode domain.Mode, simulated providers.PaymentProvider) *Registry {
	return &Registry{
		mode:      mode,
		simulated: simulated,
		rails:     map[string]rail{},
		clients:   map[string]providers.PaymentProvider{},
	}
}

// Register adds a rail. defaultKey is the mode's configured secret and may be empty.
func (r *Registry) Register(name, defaultKey string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rails[name] = rail{factory: factory, defaultKey: defaultKey}
}

// Mode reports which books this registry serves.
func (r *Registry) Mode() domain.Mode {
	return r.mode
}

// ForAccount returns the rail bound to account.
func (r *Registry) ForAccount(account domain.Account) (providers.PaymentProvider, error) {
	binding := account.Provider
	if binding == nil {
		return nil, fmt.Errorf("%w: account %s is not bound to a payment provider", apperrors.ErrValidation, account.AccountID)
	}
	if binding.Behavior == domain.ProviderSimulated {
		if r.simulated == nil {
			return nil, fmt.Errorf("%w: simulated provider not configured", apperrors.ErrValidation)
		}
		return r.simulated, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rl, ok := r.rails[binding.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment provider %q", apperrors.ErrValidation, binding.Provider)
	}
	key := binding.SecretKey
	if key == "" {
		key = rl.defaultKey
	}
	if key == "" {
		return nil, fmt.Errorf("%w: no %s secret key configured for %s mode", apperrors.ErrValidation, binding.Provider, r.mode)
	}

	cacheKey := binding.Provider + "\x00" + key
	if client, ok := r.clients[cacheKey]; ok {
		return client, nil
	}
	client := rl.factory(key)
	r.clients[cacheKey] = client
	return client, nil
}
