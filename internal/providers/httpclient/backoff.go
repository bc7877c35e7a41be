package httpclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryPolicy is the schedule for idempotent calls: jittered exponential delays
// between base and maxDelay, at most maxRetries retries, stopped by ctx.
func retryPolicy(ctx context.Context, base, maxDelay time.Duration, maxRetries int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.MaxInterval = maxDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.5
	exp.MaxElapsedTime = 0
	exp.Reset()

	var b backoff.BackOff = exp
	if maxRetries < 0 {
		maxRetries = 0
	}
	b = backoff.WithMaxRetries(b, uint64(maxRetries))
	return backoff.WithContext(b, ctx)
}
