package cmd

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/askmto/askmto/internal/config"
	"github.com/askmto/askmto/internal/embeddings"
	"github.com/askmto/askmto/internal/llm"
)

// loadConfig loads and validates the config, providing a friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `askmto init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Verbose mode switches to console
// output with debug level.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// createEmbedderFromConfig creates the embedder named by the config,
// wrapped with retries so transient provider errors don't abort a build.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}

	var inner embeddings.Embedder
	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		inner = embeddings.NewOpenAIEmbedder(apiKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	case config.ProviderOllama:
		dims := cfg.EmbeddingDimensions
		if dims == 0 {
			dims = 768
		}
		inner = embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, dims, os.Getenv("OLLAMA_HOST"))
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}

	return embeddings.NewRetryingEmbedder(inner, 4, time.Second), nil
}

// createLLMProviderFromConfig creates the completion provider, rate limited
// when the config asks for it.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM)
	}
	return provider, nil
}
