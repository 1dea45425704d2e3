package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend and provider names accepted by Load.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	ProviderOllama     = "ollama"
	ProviderOpenAI     = "openai"
	ProviderExtractive = "extractive"
	ProviderAnthropic  = "anthropic"
)

type Config struct {
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	// Storage
	Backend string `yaml:"backend"`
	DBPath  string `yaml:"db_path"`

	// Index and retrieval
	IndexEngine       string  `yaml:"index_engine"`
	UseIndex          bool    `yaml:"use_index"`
	IndexSnapshotPath string  `yaml:"index_snapshot_path"`
	MinConfidence     float64 `yaml:"min_confidence"`
	TopK              int     `yaml:"top_k"`
	HybridWeight      float64 `yaml:"hybrid_weight"`
	NearDupThreshold  float64 `yaml:"near_dup_threshold"`

	// Decay
	DecayRate              float64       `yaml:"decay_rate"`
	ForgetThreshold        float64       `yaml:"forget_threshold"`
	ConsolidationThreshold float64       `yaml:"consolidation_threshold"`
	MinAgeDays             int           `yaml:"min_age_days"`
	DecayInterval          time.Duration `yaml:"decay_interval"`

	// Embeddings
	EmbeddingProvider    string        `yaml:"embedding_provider"`
	OllamaBaseURL        string        `yaml:"ollama_base_url"`
	EmbeddingModel       string        `yaml:"embedding_model"`
	OpenAIAPIKey         string        `yaml:"-"`
	OpenAIBaseURL        string        `yaml:"openai_base_url"`
	OpenAIEmbeddingModel string        `yaml:"openai_embedding_model"`
	EmbedRetries         int           `yaml:"embed_retries"`
	EmbedRetryBackoff    time.Duration `yaml:"embed_retry_backoff"`
	EmbedCacheEntries    int64         `yaml:"embed_cache_entries"`

	// Summarization
	SummarizerProvider string `yaml:"summarizer_provider"`
	SummaryModel       string `yaml:"summary_model"`
	AnthropicAPIKey    string `yaml:"-"`
	AnthropicModel     string `yaml:"anthropic_model"`
	AnthropicBaseURL   string `yaml:"anthropic_base_url"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:      8741,
		LogLevel:  "info",
		LogFormat: "json",

		Backend: BackendSQLite,
		DBPath:  "/data/memory.db",

		IndexEngine:      "flat",
		UseIndex:         true,
		MinConfidence:    0.45,
		TopK:             5,
		HybridWeight:     0.7,
		NearDupThreshold: 0.92,

		DecayRate:              0.05,
		ForgetThreshold:        0.20,
		ConsolidationThreshold: 0.40,
		MinAgeDays:             1,

		EmbeddingProvider: ProviderOllama,
		OllamaBaseURL:     "http://localhost:11434",
		EmbeddingModel:    "nomic-embed-text",
		EmbedRetries:      3,
		EmbedRetryBackoff: 500 * time.Millisecond,
		EmbedCacheEntries: 10_000,

		SummarizerProvider: ProviderExtractive,
		SummaryModel:       "qwen2.5:1.5b",
		AnthropicModel:     "claude-3-5-haiku-latest",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.overlayEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Port = envInt("PORT", c.Port)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envStr("LOG_FORMAT", c.LogFormat)
	c.LogFile = envStr("LOG_FILE", c.LogFile)

	c.Backend = envStr("BACKEND", c.Backend)
	c.DBPath = envStr("MEMORY_DB_PATH", c.DBPath)

	c.IndexEngine = envStr("INDEX_ENGINE", c.IndexEngine)
	c.UseIndex = envBool("USE_INDEX", c.UseIndex)
	c.IndexSnapshotPath = envStr("INDEX_SNAPSHOT_PATH", c.IndexSnapshotPath)
	c.MinConfidence = envFloat("MIN_CONFIDENCE", c.MinConfidence)
	c.TopK = envInt("TOP_K", c.TopK)
	c.HybridWeight = envFloat("HYBRID_WEIGHT", c.HybridWeight)
	c.NearDupThreshold = envFloat("NEAR_DUP_THRESHOLD", c.NearDupThreshold)

	c.DecayRate = envFloat("DECAY_RATE", c.DecayRate)
	c.ForgetThreshold = envFloat("FORGET_THRESHOLD", c.ForgetThreshold)
	c.ConsolidationThreshold = envFloat("CONSOLIDATION_THRESHOLD", c.ConsolidationThreshold)
	c.MinAgeDays = envInt("MIN_AGE_DAYS", c.MinAgeDays)
	c.DecayInterval = envDuration("DECAY_INTERVAL", c.DecayInterval)

	c.EmbeddingProvider = envStr("EMBEDDING_PROVIDER", c.EmbeddingProvider)
	c.OllamaBaseURL = envStr("OLLAMA_BASE_URL", c.OllamaBaseURL)
	c.EmbeddingModel = envStr("EMBEDDING_MODEL", c.EmbeddingModel)
	c.OpenAIAPIKey = envStr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = envStr("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIEmbeddingModel = envStr("OPENAI_EMBEDDING_MODEL", c.OpenAIEmbeddingModel)
	c.EmbedRetries = envInt("EMBED_RETRIES", c.EmbedRetries)
	c.EmbedRetryBackoff = envDuration("EMBED_RETRY_BACKOFF", c.EmbedRetryBackoff)
	c.EmbedCacheEntries = int64(envInt("EMBED_CACHE_ENTRIES", int(c.EmbedCacheEntries)))

	c.SummarizerProvider = envStr("SUMMARIZER_PROVIDER", c.SummarizerProvider)
	c.SummaryModel = envStr("SUMMARY_MODEL", c.SummaryModel)
	c.AnthropicAPIKey = envStr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envStr("ANTHROPIC_MODEL", c.AnthropicModel)
	c.AnthropicBaseURL = envStr("ANTHROPIC_BASE_URL", c.AnthropicBaseURL)
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("MEMORY_DB_PATH must not be empty for the sqlite backend")
		}
	default:
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendMemory, BackendSQLite, c.Backend)
	}
	if c.IndexEngine != "flat" && c.IndexEngine != "chromem" {
		return fmt.Errorf("INDEX_ENGINE must be flat or chromem, got %q", c.IndexEngine)
	}
	if c.TopK < 1 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.HybridWeight < 0 || c.HybridWeight > 1 {
		return fmt.Errorf("HYBRID_WEIGHT must be in [0,1], got %f", c.HybridWeight)
	}
	if c.MinConfidence < -1 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be in [-1,1], got %f", c.MinConfidence)
	}
	if c.NearDupThreshold > 1 {
		return fmt.Errorf("NEAR_DUP_THRESHOLD must be <= 1, got %f", c.NearDupThreshold)
	}
	if c.DecayRate < 0 {
		return fmt.Errorf("DECAY_RATE must be >= 0, got %f", c.DecayRate)
	}
	if c.ForgetThreshold < 0 || c.ConsolidationThreshold > 1 || c.ForgetThreshold >= c.ConsolidationThreshold {
		return fmt.Errorf("need 0 <= FORGET_THRESHOLD < CONSOLIDATION_THRESHOLD <= 1, got %f and %f",
			c.ForgetThreshold, c.ConsolidationThreshold)
	}
	if c.MinAgeDays < 0 {
		return fmt.Errorf("MIN_AGE_DAYS must be >= 0, got %d", c.MinAgeDays)
	}
	if c.DecayInterval < 0 {
		return fmt.Errorf("DECAY_INTERVAL must not be negative, got %s", c.DecayInterval)
	}
	switch c.EmbeddingProvider {
	case ProviderOllama:
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL must not be empty")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai embedding provider")
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be ollama or openai, got %q", c.EmbeddingProvider)
	}
	if c.EmbedRetries < 1 {
		return fmt.Errorf("EMBED_RETRIES must be at least 1, got %d", c.EmbedRetries)
	}
	switch c.SummarizerProvider {
	case ProviderExtractive, ProviderOllama:
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic summarizer")
		}
	default:
		return fmt.Errorf("SUMMARIZER_PROVIDER must be extractive, ollama or anthropic, got %q", c.SummarizerProvider)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
