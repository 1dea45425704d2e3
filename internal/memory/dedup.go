package memory

import (
	"context"
	"fmt"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/embedding"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/store"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vectorstore"
)

// DedupResult captures the outcome of a duplicate check.
type DedupResult struct {
	// ExactDuplicateID is set when a record with identical content exists.
	ExactDuplicateID string
	// NearDuplicateID is set when the closest indexed record has a similarity
	// of at least the near-duplicate threshold. It does NOT block storage.
	NearDuplicateID   string
	NearDupSimilarity float64
}

// Deduplicator checks new text against existing records.
type Deduplicator struct {
	backend   store.Backend
	index     *vectorstore.Holder
	threshold float64
}

// NewDeduplicator builds a checker. A threshold <= 0 disables the
// near-duplicate signal.
func NewDeduplicator(backend store.Backend, index *vectorstore.Holder, threshold float64) *Deduplicator {
	return &Deduplicator{backend: backend, index: index, threshold: threshold}
}

// CheckExact looks for a record with the same content hash.
func (d *Deduplicator) CheckExact(ctx context.Context, text string) (*DedupResult, error) {
	existing, err := d.backend.FindByContentHash(ctx, embedding.ContentHash(text))
	if err != nil {
		return nil, fmt.Errorf("find by content hash: %w", err)
	}
	result := &DedupResult{}
	if existing != nil {
		result.ExactDuplicateID = existing.ID
	}
	return result, nil
}

// CheckNear fills in the near-duplicate fields from the live index.
func (d *Deduplicator) CheckNear(ctx context.Context, vec []float32, result *DedupResult) error {
	if d.threshold <= 0 || d.index == nil {
		return nil
	}
	idx := d.index.Current()
	if idx == nil || idx.Dimension() != len(vec) {
		return nil
	}
	hits, err := idx.Search(ctx, vec, 1)
	if err != nil {
		return fmt.Errorf("near duplicate search: %w", err)
	}
	if len(hits) > 0 && hits[0].Score >= d.threshold {
		result.NearDuplicateID = hits[0].ID
		result.NearDupSimilarity = hits[0].Score
	}
	return nil
}
