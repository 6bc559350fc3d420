package llm

import (
	"context"
	"os"
	"testing"
)

func TestNewProviderUnsupported(t *testing.T) {
	if _, err := NewProvider("cohere", "some-model"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewProviderOllamaNoKeyRequired(t *testing.T) {
	p, err := NewProvider("ollama", "llama3")
	if err != nil {
		t.Fatalf("NewProvider(ollama): %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Name() = %q, want ollama", p.Name())
	}
}

func TestNewProviderOpenAIRequiresKey(t *testing.T) {
	old := os.Getenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	defer os.Setenv("OPENAI_API_KEY", old)

	if _, err := NewProvider("openai", "gpt-4o-mini"); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is unset")
	}
}

type countingProvider struct {
	calls int
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	c.calls++
	return &CompletionResponse{Content: "ok"}, nil
}

func TestRateLimitedProviderPassesThrough(t *testing.T) {
	inner := &countingProvider{}
	limited := NewRateLimitedProvider(inner, 60)

	for i := 0; i < 3; i++ {
		resp, err := limited.Complete(context.Background(), CompletionRequest{})
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if resp.Content != "ok" {
			t.Errorf("unexpected content %q", resp.Content)
		}
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRateLimitedProviderHonorsContext(t *testing.T) {
	inner := &countingProvider{}
	limited := NewRateLimitedProvider(inner, 1)

	// Consume the only token, then cancel while waiting for the next.
	if _, err := limited.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("first Complete: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := limited.Complete(ctx, CompletionRequest{}); err == nil {
		t.Fatal("expected context error while rate limited")
	}
}
