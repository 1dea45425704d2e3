package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/philippgille/chromem-go"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vector"
)

const chromemCollection = "narrative_memory"

var errNoEmbedFunc = errors.New("chromem index only accepts precomputed embeddings")

// ChromemIndex serves searches from an in-process chromem-go collection.
// A fresh DB is created per build, so the value is immutable once returned.
type ChromemIndex struct {
	col     *chromem.Collection
	order   map[string]int
	dim     int
	skipped int
}

// ChromemBuilder builds ChromemIndex values.
type ChromemBuilder struct{}

func (ChromemBuilder) Engine() string { return EngineChromem }

func (ChromemBuilder) Build(ctx context.Context, records []*models.Record) (Index, error) {
	kept, dim, skipped := collect(records)
	if len(kept) == 0 {
		return nil, ErrNoEmbeddings
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(chromemCollection, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	idx := &ChromemIndex{
		col:     col,
		order:   make(map[string]int, len(kept)),
		dim:     dim,
		skipped: skipped,
	}
	for i, r := range kept {
		doc := chromem.Document{
			ID:        r.ID,
			Content:   r.Text(),
			Embedding: vector.Normalize(r.Embedding),
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("add document %s: %w", r.ID, err)
		}
		idx.order[r.ID] = i
	}
	return idx, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedFunc
}

func (c *ChromemIndex) Engine() string { return EngineChromem }
func (c *ChromemIndex) Len() int       { return len(c.order) }
func (c *ChromemIndex) Dimension() int { return c.dim }
func (c *ChromemIndex) Skipped() int   { return c.skipped }

func (c *ChromemIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(c.order) == 0 {
		return nil, nil
	}
	if len(query) != c.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), c.dim)
	}
	// chromem-go requires nResults <= collection size
	if k > len(c.order) {
		k = len(c.order)
	}
	results, err := c.col.QueryEmbedding(ctx, vector.Normalize(query), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{ID: r.ID, Score: float64(r.Similarity)})
	}
	// chromem ranks concurrently; restore build order among equal scores.
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return c.order[hits[a].ID] < c.order[hits[b].ID]
	})
	return hits, nil
}
