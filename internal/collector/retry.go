package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"TrendAdvisor/internal/model"
)

// RetryPolicy controls how often an UpstreamProviderError is retried.
type RetryPolicy struct {
	Retries int
	Backoff time.Duration
}

// DefaultRetryPolicy retries once after half a second.
var DefaultRetryPolicy = RetryPolicy{Retries: 1, Backoff: 500 * time.Millisecond}

// Do calls fn, retrying with exponential backoff while it fails with an
// UpstreamProviderError. Any other error is returned immediately.
func Do[T any](ctx context.Context, p RetryPolicy, label string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i <= p.Retries; i++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !IsUpstream(err) || i == p.Retries {
			break
		}
		backoff := p.Backoff * time.Duration(1<<uint(i))
		log.Printf("[WARN] %s failed (attempt %d/%d): %v, retrying in %v", label, i+1, p.Retries+1, err, backoff)
		select {
		case <-ctx.Done():
			return zero, errors.Join(lastErr, ctx.Err())
		case <-time.After(backoff):
		}
	}
	if IsUpstream(lastErr) && p.Retries > 0 {
		return zero, fmt.Errorf("all %d attempts exhausted: %w", p.Retries+1, lastErr)
	}
	return zero, lastErr
}

// RetryingFetcher wraps a Fetcher with a RetryPolicy.
type RetryingFetcher struct {
	Fetcher
	Policy RetryPolicy
}

func NewRetryingFetcher(f Fetcher, p RetryPolicy) *RetryingFetcher {
	return &RetryingFetcher{Fetcher: f, Policy: p}
}

func (r *RetryingFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	return Do(ctx, r.Policy, r.Fetcher.Name()+" "+symbol, func(ctx context.Context) ([]model.OHLCV, error) {
		return r.Fetcher.FetchDailyBars(ctx, symbol, days)
	})
}
