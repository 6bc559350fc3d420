package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:            ProviderOpenAI,
		Model:               "gpt-4o-mini",
		EmbeddingProvider:   ProviderOpenAI,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 0,

		Host:        "127.0.0.1",
		Port:        8000,
		CORSOrigins: []string{"http://localhost:3000", "http://localhost:3001"},

		IndexDir:   "vectorstore",
		PromptFile: "prompt.yaml",

		ChunkSize:    1200,
		ChunkOverlap: 200,
		ChunkMinSize: 200,

		OCREnabled:  true,
		OCRMinChars: 100,
		OCRLanguage: "eng",
		OCRDPI:      300,

		TopK:            5,
		SimilarityFloor: 0,

		HistoryTurns:   4,
		MaxTokens:      1024,
		Temperature:    0,
		RequestTimeout: 60,
		RateLimitRPM:   60,
	}
}
