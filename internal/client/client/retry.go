package client

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds the exponential backoff applied to transient failures.
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
	Cap        time.Duration
}

// DefaultRetryPolicy retries three times, starting at 200ms and capped at 5s.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Base: 200 * time.Millisecond, Cap: 5 * time.Second}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = DefaultRetryPolicy.Base
	}
	b := retry.NewExponential(base)
	if p.Cap > 0 {
		b = retry.WithCappedDuration(p.Cap, b)
	}
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// withRetry runs fn, retrying only while it fails with ErrUnavailable.
func withRetry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}
