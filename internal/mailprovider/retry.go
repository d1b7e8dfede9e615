package mailprovider

import (
	"context"
	"math/rand"
	"time"

	"github.com/inboxpilot/folderengine/pkg/metrics"
)

// RetryPolicy bounds retries for transient provider errors. Each provider
// carries its own policy since rate-limit behaviour differs between them.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) normalised() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 250 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	return p
}

// backoff returns the delay before the given retry attempt (1-based),
// exponential with up to 25% jitter, capped at MaxDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

// withRetry runs fn, retrying transient errors only. Conflict outcomes are not
// errors and never reach this path; auth and permanent errors return
// immediately.
func withRetry(ctx context.Context, provider, operation string, policy RetryPolicy, fn func() error) error {
	policy = policy.normalised()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.ProviderRetries.WithLabelValues(provider, operation).Inc()
			select {
			case <-ctx.Done():
				return transportError(provider, operation, ctx.Err())
			case <-time.After(policy.backoff(attempt - 1)):
			}
		}

		lastErr = fn()
		if lastErr == nil || !IsTransient(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return transportError(provider, operation, ctx.Err())
		}
	}
	return lastErr
}
