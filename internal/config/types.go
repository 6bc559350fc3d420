package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level askmto configuration, corresponding to .askmto.yml.
type Config struct {
	Provider            ProviderType `yaml:"provider" koanf:"provider"`
	Model               string       `yaml:"model" koanf:"model"`
	EmbeddingProvider   ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string       `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions int          `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`

	Host        string   `yaml:"host" koanf:"host"`
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`

	IndexDir   string `yaml:"index_dir" koanf:"index_dir"`
	PromptFile string `yaml:"prompt_file" koanf:"prompt_file"`

	ChunkSize    int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	ChunkMinSize int `yaml:"chunk_min_size" koanf:"chunk_min_size"`

	OCREnabled  bool   `yaml:"ocr_enabled" koanf:"ocr_enabled"`
	OCRMinChars int    `yaml:"ocr_min_chars" koanf:"ocr_min_chars"`
	OCRLanguage string `yaml:"ocr_language" koanf:"ocr_language"`
	OCRDPI      int    `yaml:"ocr_dpi" koanf:"ocr_dpi"`

	TopK            int     `yaml:"top_k" koanf:"top_k"`
	SimilarityFloor float64 `yaml:"similarity_floor" koanf:"similarity_floor"`

	HistoryTurns   int     `yaml:"history_turns" koanf:"history_turns"`
	MaxTokens      int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature    float64 `yaml:"temperature" koanf:"temperature"`
	RequestTimeout int     `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
	RateLimitRPM   int     `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
}
