package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/ristretto"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vector"
)

// PersistentCache stores embeddings across restarts. store.EmbeddingCacheStore
// implements it.
type PersistentCache interface {
	Get(ctx context.Context, contentHash string) (*models.EmbeddingCacheEntry, error)
	Put(ctx context.Context, entry *models.EmbeddingCacheEntry) error
}

// CachedEmbedder wraps a Provider with two cache layers keyed by content
// hash: an in-process ristretto memo and an optional persistent cache.
type CachedEmbedder struct {
	next   Provider
	memo   *ristretto.Cache
	cache  PersistentCache
	logger *slog.Logger
}

// NewCachedEmbedder builds the wrapper. memoEntries bounds the in-process
// memo; cache may be nil.
func NewCachedEmbedder(next Provider, cache PersistentCache, memoEntries int64, logger *slog.Logger) (*CachedEmbedder, error) {
	if memoEntries <= 0 {
		memoEntries = 10_000
	}
	memo, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: memoEntries * 10,
		MaxCost:     memoEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding memo: %w", err)
	}
	return &CachedEmbedder{next: next, memo: memo, cache: cache, logger: logger}, nil
}

func (e *CachedEmbedder) Model() string { return e.next.Model() }

// Embed returns the embedding for text, using cache when available.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	hash := ContentHash(text)

	if v, ok := e.memo.Get(hash); ok {
		return copyVec(v.([]float32)), nil
	}

	if e.cache != nil {
		entry, err := e.cache.Get(ctx, hash)
		if err != nil {
			e.logger.Warn("embedding cache lookup failed", "error", err)
		} else if entry != nil && entry.Model == e.next.Model() {
			if vec := vector.BytesToFloat32(entry.Embedding); len(vec) > 0 {
				e.memo.Set(hash, vec, 1)
				return copyVec(vec), nil
			}
		}
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.memo.Set(hash, copyVec(vec), 1)
	if e.cache != nil {
		err := e.cache.Put(ctx, &models.EmbeddingCacheEntry{
			ContentHash: hash,
			Embedding:   vector.Float32ToBytes(vec),
			Dimension:   len(vec),
			Model:       e.next.Model(),
		})
		if err != nil {
			// Non-fatal: the vector is still good.
			e.logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

// Wait blocks until pending memo writes are visible.
func (e *CachedEmbedder) Wait() { e.memo.Wait() }

// Close releases the memo's background goroutines.
func (e *CachedEmbedder) Close() { e.memo.Close() }

// ContentHash computes a SHA-256 hash of text content.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}

func copyVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
