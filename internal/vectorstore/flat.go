package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vector"
)

// FlatIndex is an exact inner-product index: a row-major matrix of
// normalized vectors with a parallel ID slice.
type FlatIndex struct {
	ids     []string
	matrix  []float32
	dim     int
	skipped int
}

// FlatBuilder builds FlatIndex values.
type FlatBuilder struct{}

func (FlatBuilder) Engine() string { return EngineFlat }

func (FlatBuilder) Build(_ context.Context, records []*models.Record) (Index, error) {
	return BuildFlat(records)
}

// BuildFlat normalizes every indexable record into a new FlatIndex.
func BuildFlat(records []*models.Record) (*FlatIndex, error) {
	kept, dim, skipped := collect(records)
	if len(kept) == 0 {
		return nil, ErrNoEmbeddings
	}
	idx := &FlatIndex{
		ids:     make([]string, 0, len(kept)),
		matrix:  make([]float32, 0, len(kept)*dim),
		dim:     dim,
		skipped: skipped,
	}
	for _, r := range kept {
		idx.ids = append(idx.ids, r.ID)
		idx.matrix = append(idx.matrix, vector.Normalize(r.Embedding)...)
	}
	return idx, nil
}

// newFlatFromMatrix wraps an already-normalized matrix, as read from a snapshot.
func newFlatFromMatrix(ids []string, matrix []float32, dim int) (*FlatIndex, error) {
	if dim <= 0 || len(matrix) != len(ids)*dim {
		return nil, fmt.Errorf("matrix of %d floats does not fit %d ids of dimension %d", len(matrix), len(ids), dim)
	}
	if len(ids) == 0 {
		return nil, ErrNoEmbeddings
	}
	return &FlatIndex{ids: ids, matrix: matrix, dim: dim}, nil
}

func (f *FlatIndex) Engine() string { return EngineFlat }
func (f *FlatIndex) Len() int       { return len(f.ids) }
func (f *FlatIndex) Dimension() int { return f.dim }
func (f *FlatIndex) Skipped() int   { return f.skipped }

// IDs returns the indexed IDs in row order.
func (f *FlatIndex) IDs() []string {
	out := make([]string, len(f.ids))
	copy(out, f.ids)
	return out
}

func (f *FlatIndex) row(i int) []float32 {
	return f.matrix[i*f.dim : (i+1)*f.dim]
}

func (f *FlatIndex) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	q := vector.Normalize(query)

	hits := make([]Hit, len(f.ids))
	for i, id := range f.ids {
		hits[i] = Hit{ID: id, Score: vector.Dot(q, f.row(i))}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
