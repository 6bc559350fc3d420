package embeddings

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultMaxAttempts = 4
	defaultBaseDelay   = time.Second
)

// RetryingEmbedder wraps an Embedder with bounded retries and exponential
// backoff. The index build uses it so transient provider errors (rate
// limits, timeouts) don't abort a long run, while a persistently failing
// provider still surfaces an error after the attempt budget is spent.
type RetryingEmbedder struct {
	inner       Embedder
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetryingEmbedder wraps inner with up to maxAttempts attempts per batch.
func NewRetryingEmbedder(inner Embedder, maxAttempts int, baseDelay time.Duration) *RetryingEmbedder {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &RetryingEmbedder{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

func (r *RetryingEmbedder) Name() string {
	return r.inner.Name()
}

func (r *RetryingEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

func (r *RetryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		vectors, err := r.inner.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", r.maxAttempts, lastErr)
}
