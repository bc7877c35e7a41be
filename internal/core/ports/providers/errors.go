package providers

import "fmt"

// ProviderError wraps one of the apperrors provider sentinels with the rail's own message.
type ProviderError struct {
	Provider string
	Op       string
	Message  string
	Err      error
}

// NewProviderError builds a ProviderError around kind, one of the apperrors provider sentinels.
func NewProviderError(provider, op, message string, kind error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Message: message, Err: kind}
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %s", e.Provider, e.Op, e.Err, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
