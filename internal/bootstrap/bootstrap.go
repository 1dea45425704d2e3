// Package bootstrap wires a memory.Service from configuration. The server and
// memctl share it so both run against the same stack.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/config"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/embedding"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/search"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/store"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/summarizer"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vectorstore"
)

// HealthChecker is implemented by embedding providers that can be probed.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// App holds the wired service and the resources that must be released.
type App struct {
	Service *memory.Service
	// EmbeddingCheck is nil when the provider cannot be probed.
	EmbeddingCheck HealthChecker
	EmbeddingModel string

	backend store.Backend
	cached  *embedding.CachedEmbedder
}

// New builds the full stack. The index is not loaded; callers decide whether
// to load a snapshot or rebuild.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	backend, cache, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	provider, check := newProvider(cfg)
	cached, err := embedding.NewCachedEmbedder(provider, cache, cfg.EmbedCacheEntries, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	embedder := embedding.WithRetry(cached, cfg.EmbedRetries, cfg.EmbedRetryBackoff, logger)

	builder, err := vectorstore.NewBuilder(cfg.IndexEngine)
	if err != nil {
		cached.Close()
		backend.Close()
		return nil, err
	}
	holder := vectorstore.NewHolder(builder, cfg.MinConfidence)

	retriever := search.NewHybridRetriever(backend, holder, embedder, cfg.HybridWeight, cfg.UseIndex, logger)
	decay := memory.NewDecayEngine(backend, newSummarizer(cfg, logger), memory.DecayConfig{
		DecayRate:              cfg.DecayRate,
		ForgetThreshold:        cfg.ForgetThreshold,
		ConsolidationThreshold: cfg.ConsolidationThreshold,
		MinAgeDays:             cfg.MinAgeDays,
	}, logger)
	dedup := memory.NewDeduplicator(backend, holder, cfg.NearDupThreshold)

	svc := memory.NewService(backend, holder, retriever, embedder, decay, dedup, memory.Options{
		TopK:         cfg.TopK,
		SnapshotPath: cfg.IndexSnapshotPath,
	}, logger)

	logger.Info("memory stack ready",
		"backend", backend.Name(),
		"index_engine", holder.Engine(),
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", provider.Model(),
		"summarizer", cfg.SummarizerProvider,
	)

	return &App{
		Service:        svc,
		EmbeddingCheck: check,
		EmbeddingModel: provider.Model(),
		backend:        backend,
		cached:         cached,
	}, nil
}

// Close releases the embedding memo and the backend.
func (a *App) Close() error {
	a.cached.Close()
	return a.backend.Close()
}

func openBackend(cfg *config.Config) (store.Backend, embedding.PersistentCache, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemoryBackend(), nil, nil
	case config.BackendSQLite:
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return store.NewSQLiteBackend(db), store.NewEmbeddingCacheStore(db), nil
	default:
		return nil, nil, errors.New("unknown backend: " + cfg.Backend)
	}
}

func newProvider(cfg *config.Config) (embedding.Provider, HealthChecker) {
	if cfg.EmbeddingProvider == config.ProviderOpenAI {
		return embedding.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.OpenAIBaseURL), nil
	}
	c := embedding.NewOllamaClient(cfg.OllamaBaseURL, cfg.EmbeddingModel)
	return c, c
}

func newSummarizer(cfg *config.Config, logger *slog.Logger) summarizer.Summarizer {
	extractive := summarizer.NewExtractive()
	switch cfg.SummarizerProvider {
	case config.ProviderOllama:
		return summarizer.WithFallback(summarizer.NewOllamaSummarizer(cfg.OllamaBaseURL, cfg.SummaryModel), extractive, logger)
	case config.ProviderAnthropic:
		return summarizer.WithFallback(
			summarizer.NewAnthropicSummarizer(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL),
			extractive, logger)
	default:
		return extractive
	}
}
