package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

// Engine names accepted by NewBuilder.
const (
	EngineFlat    = "flat"
	EngineChromem = "chromem"
)

var (
	ErrNoEmbeddings      = errors.New("no record carries an embedding")
	ErrDimensionMismatch = errors.New("query dimension does not match index")
	ErrUnknownEngine     = errors.New("unknown index engine")
)

// Hit is one nearest-neighbour candidate.
type Hit struct {
	ID    string
	Score float64
}

// Index is an immutable nearest-neighbour index over normalized embeddings.
// Search returns at most k hits ordered by descending inner product; ties keep
// build order.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Len() int
	Dimension() int
	Skipped() int
	Engine() string
}

// Builder constructs a fresh Index from a full set of records.
type Builder interface {
	Build(ctx context.Context, records []*models.Record) (Index, error)
	Engine() string
}

// NewBuilder returns the builder for the named engine.
func NewBuilder(engine string) (Builder, error) {
	switch engine {
	case "", EngineFlat:
		return FlatBuilder{}, nil
	case EngineChromem:
		return ChromemBuilder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// collect picks indexable records: those with an embedding whose dimension
// agrees with the first embedding seen. It returns the kept records and the
// number skipped for a dimension mismatch.
func collect(records []*models.Record) ([]*models.Record, int, int) {
	var kept []*models.Record
	dim, skipped := 0, 0
	for _, r := range records {
		if r == nil || !r.HasEmbedding() {
			continue
		}
		if dim == 0 {
			dim = len(r.Embedding)
		}
		if len(r.Embedding) != dim {
			skipped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dim, skipped
}
