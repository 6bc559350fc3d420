package llm

import (
	"context"
	"sync"
	"time"
)

// pollInterval is how long a throttled caller sleeps before rechecking
// the bucket.
const pollInterval = 100 * time.Millisecond

// RateLimitedProvider caps completions at a fixed number of requests per
// minute, smoothing bursts from concurrent question handlers so the
// backend's rate limits are not tripped.
type RateLimitedProvider struct {
	provider   Provider
	rpm        int
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewRateLimitedProvider wraps provider with a token bucket allowing at
// most rpm requests per minute. The bucket starts full.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider:   provider,
		rpm:        rpm,
		tokens:     rpm,
		lastRefill: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// acquire blocks until a token is available or the context ends.
func (r *RateLimitedProvider) acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()

		// Tokens accrue continuously at rpm per minute, capped at rpm.
		refill := int(now.Sub(r.lastRefill).Seconds() * float64(r.rpm) / 60.0)
		if refill > 0 {
			r.tokens += refill
			if r.tokens > r.rpm {
				r.tokens = r.rpm
			}
			r.lastRefill = now
		}

		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
