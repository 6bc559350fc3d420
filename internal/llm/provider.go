package llm

import "context"

// Provider is a chat-completion backend. The answer composer treats it as
// the single suspension point on the query path, so implementations must
// honor the request context for cancellation and timeouts.
type Provider interface {
	// Complete runs one chat completion and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the backend, for logs.
	Name() string
}
