package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Default values applied to freshly ingested records.
const (
	DefaultImportance  = 0.5
	DefaultAccessCount = 1
)

var (
	ErrMissingID        = errors.New("record id is required")
	ErrMissingContent   = errors.New("record needs a summary or raw text")
	ErrInvalidScore     = errors.New("importance score must be within [0, 1]")
	ErrInvalidAccess    = errors.New("access count must be at least 1")
	ErrInvalidEmbedding = errors.New("embedding contains a non-finite value")
)

// Record is a single narrative memory: text, its embedding and the
// bookkeeping the decay engine works on.
type Record struct {
	ID             string    `json:"id"`
	ContentSummary string    `json:"contentSummary"`
	Raw            string    `json:"raw"`
	Embedding      []float32 `json:"-"`
	ContentHash    string    `json:"contentHash,omitempty"`
	Metadata       Metadata  `json:"metadata"`
}

// Metadata holds the mutable scoring state of a record. Timestamp is set at
// creation and never changes; a zero Timestamp means "unknown".
type Metadata struct {
	ImportanceScore float64   `json:"importanceScore"`
	AccessCount     int       `json:"accessCount"`
	Timestamp       time.Time `json:"timestamp"`
	Consolidated    bool      `json:"consolidated"`

	// TimestampInvalid is set by persistent backends when the stored
	// timestamp could not be parsed. Timestamp is zero in that case.
	TimestampInvalid bool `json:"-"`
}

// NewRecord builds a validated record. The embedding may be empty: such
// records live in the store but never enter the vector index.
func NewRecord(id, summary, raw string, embedding []float32, meta Metadata) (*Record, error) {
	r := &Record{
		ID:             id,
		ContentSummary: summary,
		Raw:            raw,
		Embedding:      embedding,
		Metadata:       meta,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the invariants every stored record must satisfy.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(r.ContentSummary) == "" && strings.TrimSpace(r.Raw) == "" {
		return ErrMissingContent
	}
	if r.Metadata.ImportanceScore < 0 || r.Metadata.ImportanceScore > 1 {
		return fmt.Errorf("%w: got %f", ErrInvalidScore, r.Metadata.ImportanceScore)
	}
	if r.Metadata.AccessCount < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidAccess, r.Metadata.AccessCount)
	}
	for _, v := range r.Embedding {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrInvalidEmbedding
		}
	}
	return nil
}

// HasEmbedding reports whether the record can be indexed.
func (r *Record) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// Text returns the text used for lexical matching and display: the summary,
// or the raw text when no summary exists.
func (r *Record) Text() string {
	if r.ContentSummary != "" {
		return r.ContentSummary
	}
	return r.Raw
}

// Clone returns a deep copy so callers can't mutate store-owned state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Embedding != nil {
		c.Embedding = make([]float32, len(r.Embedding))
		copy(c.Embedding, r.Embedding)
	}
	return &c
}

// Patch is a partial update merged into a stored record by Backend.Update.
// Nil fields are left untouched.
type Patch struct {
	ImportanceScore *float64
	AccessCount     *int
	Consolidated    *bool
	ContentSummary  *string
	Raw             *string
	Embedding       []float32
}

// IsEmpty reports whether the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return p.ImportanceScore == nil && p.AccessCount == nil && p.Consolidated == nil &&
		p.ContentSummary == nil && p.Raw == nil && p.Embedding == nil
}

// Apply merges the patch into r. Consolidated can only move from false to
// true; an attempt to unset it is ignored.
func (p Patch) Apply(r *Record) {
	if p.ImportanceScore != nil {
		r.Metadata.ImportanceScore = Clamp01(*p.ImportanceScore)
	}
	if p.AccessCount != nil && *p.AccessCount > r.Metadata.AccessCount {
		r.Metadata.AccessCount = *p.AccessCount
	}
	if p.Consolidated != nil && *p.Consolidated {
		r.Metadata.Consolidated = true
	}
	if p.ContentSummary != nil {
		r.ContentSummary = *p.ContentSummary
	}
	if p.Raw != nil {
		r.Raw = *p.Raw
	}
	if p.Embedding != nil {
		r.Embedding = make([]float32, len(p.Embedding))
		copy(r.Embedding, p.Embedding)
	}
}

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EmbeddingCacheEntry stores a cached embedding keyed by content hash.
type EmbeddingCacheEntry struct {
	ContentHash string `json:"contentHash"`
	Embedding   []byte `json:"embedding"`
	Dimension   int    `json:"dimension"`
	Model       string `json:"model"`
	UpdatedAt   int64  `json:"updatedAt"`
}
