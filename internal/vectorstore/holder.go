package vectorstore

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

// DefaultMinConfidence is the similarity floor applied to indexed searches.
const DefaultMinConfidence = 0.45

type live struct {
	idx Index
}

// Holder owns the live index. Rebuilds construct a new Index off to the side
// and swap it in atomically, so readers see either the old or the new one.
type Holder struct {
	builder       Builder
	minConfidence float64
	current       atomic.Pointer[live]
}

func NewHolder(builder Builder, minConfidence float64) *Holder {
	return &Holder{builder: builder, minConfidence: minConfidence}
}

// Engine returns the configured engine name.
func (h *Holder) Engine() string { return h.builder.Engine() }

// Current returns the live index, or nil when none has been built.
func (h *Holder) Current() Index {
	if l := h.current.Load(); l != nil {
		return l.idx
	}
	return nil
}

// Ready reports whether a non-empty index is live.
func (h *Holder) Ready() bool {
	idx := h.Current()
	return idx != nil && idx.Len() > 0
}

// Swap replaces the live index. A nil idx clears it.
func (h *Holder) Swap(idx Index) {
	if idx == nil {
		h.current.Store(nil)
		return
	}
	h.current.Store(&live{idx: idx})
}

// Rebuild builds a fresh index from records and swaps it in. When no record
// has an embedding the live index is cleared and ErrNoEmbeddings returned.
// Any other build failure leaves the previous index in place.
func (h *Holder) Rebuild(ctx context.Context, records []*models.Record) (models.IndexStatus, error) {
	idx, err := h.builder.Build(ctx, records)
	if errors.Is(err, ErrNoEmbeddings) {
		h.Swap(nil)
		return h.Status(), err
	}
	if err != nil {
		return h.Status(), err
	}
	h.Swap(idx)
	return h.Status(), nil
}

// Search queries the live index and drops hits below the confidence floor.
// An unbuilt index yields no hits and no error.
func (h *Holder) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	idx := h.Current()
	if idx == nil {
		return nil, nil
	}
	hits, err := idx.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := hits[:0]
	for _, hit := range hits {
		if hit.Score >= h.minConfidence {
			out = append(out, hit)
		}
	}
	return out, nil
}

// Status describes the live index.
func (h *Holder) Status() models.IndexStatus {
	st := models.IndexStatus{Engine: h.builder.Engine()}
	if idx := h.Current(); idx != nil {
		st.Built = true
		st.Size = idx.Len()
		st.Dimension = idx.Dimension()
		st.Skipped = idx.Skipped()
	}
	return st
}
