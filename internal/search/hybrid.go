package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/store"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vector"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vectorstore"
)

// Retrieval methods reported in Outcome.Method.
const (
	MethodIndex  = "index"
	MethodLinear = "linear"
)

const DefaultSemanticWeight = 0.7

// ErrQueryEmbedding wraps failures of the embedder during retrieval.
var ErrQueryEmbedding = errors.New("embed query")

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HybridRetriever ranks records by a blend of embedding similarity and query
// token overlap. When the index is live it ranks index candidates; otherwise
// it scans every record in the backend.
type HybridRetriever struct {
	backend        store.Backend
	index          *vectorstore.Holder
	embedder       Embedder
	semanticWeight float64
	useIndex       bool
	logger         *slog.Logger
}

func NewHybridRetriever(
	backend store.Backend,
	index *vectorstore.Holder,
	embedder Embedder,
	semanticWeight float64,
	useIndex bool,
	logger *slog.Logger,
) *HybridRetriever {
	return &HybridRetriever{
		backend:        backend,
		index:          index,
		embedder:       embedder,
		semanticWeight: semanticWeight,
		useIndex:       useIndex,
		logger:         logger,
	}
}

// Outcome is the ranked result of one retrieval.
type Outcome struct {
	Results []models.RetrievalResult
	Method  string
}

// Retrieve embeds query and returns up to topK records ranked by hybrid score.
// Every scored candidate has its access count bumped, including those cut by
// topK. An empty store yields no results without embedding the query.
func (h *HybridRetriever) Retrieve(ctx context.Context, query string, topK int) (*Outcome, error) {
	if topK <= 0 {
		return &Outcome{Method: h.method()}, nil
	}
	n, err := h.backend.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	if n == 0 {
		return &Outcome{Method: h.method()}, nil
	}
	qvec, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryEmbedding, err)
	}
	qtokens := Tokenize(query)

	var out *Outcome
	if h.method() == MethodIndex {
		out, err = h.indexed(ctx, qvec, qtokens, topK)
	} else {
		out, err = h.linear(ctx, qvec, qtokens)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out.Results, func(i, j int) bool {
		return out.Results[i].Score > out.Results[j].Score
	})
	if len(out.Results) > topK {
		out.Results = out.Results[:topK]
	}
	return out, nil
}

func (h *HybridRetriever) method() string {
	if h.useIndex && h.index != nil && h.index.Ready() {
		return MethodIndex
	}
	return MethodLinear
}

func (h *HybridRetriever) indexed(ctx context.Context, qvec []float32, qtokens map[string]struct{}, topK int) (*Outcome, error) {
	hits, err := h.index.Search(ctx, qvec, 2*topK)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	results := make([]models.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		rec, err := h.backend.Get(ctx, hit.ID)
		if err != nil {
			return nil, fmt.Errorf("load candidate %s: %w", hit.ID, err)
		}
		if rec == nil {
			h.logger.Debug("skipping dangling index entry", "id", hit.ID)
			continue
		}
		if !h.touch(ctx, rec) {
			continue
		}
		results = append(results, h.score(rec, hit.Score, qtokens))
	}
	return &Outcome{Results: results, Method: MethodIndex}, nil
}

func (h *HybridRetriever) linear(ctx context.Context, qvec []float32, qtokens map[string]struct{}) (*Outcome, error) {
	records, err := h.backend.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	results := make([]models.RetrievalResult, 0, len(records))
	for _, rec := range records {
		if !rec.HasEmbedding() || len(rec.Embedding) != len(qvec) {
			continue
		}
		semantic := vector.CosineSimilarity(qvec, rec.Embedding)
		if !h.touch(ctx, rec) {
			continue
		}
		results = append(results, h.score(rec, semantic, qtokens))
	}
	return &Outcome{Results: results, Method: MethodLinear}, nil
}

// touch bumps the stored access count and mirrors it on rec. It reports
// false when the record vanished in the meantime.
func (h *HybridRetriever) touch(ctx context.Context, rec *models.Record) bool {
	ok, err := h.backend.IncrementAccess(ctx, rec.ID)
	if err != nil {
		h.logger.Warn("failed to increment access count", "id", rec.ID, "error", err)
		return true
	}
	if !ok {
		return false
	}
	rec.Metadata.AccessCount++
	return true
}

func (h *HybridRetriever) score(rec *models.Record, semantic float64, qtokens map[string]struct{}) models.RetrievalResult {
	lexical := LexicalOverlap(qtokens, Tokenize(rec.Text()))
	return models.RetrievalResult{
		Record:        rec,
		Score:         h.semanticWeight*semantic + (1-h.semanticWeight)*lexical,
		DebugSemantic: semantic,
		DebugLexical:  lexical,
	}
}

// Tokenize lowercases s and splits it on whitespace into a token set.
func Tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// LexicalOverlap is the fraction of query tokens present in the content.
func LexicalOverlap(query, content map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	n := 0
	for tok := range query {
		if _, ok := content[tok]; ok {
			n++
		}
	}
	return float64(n) / float64(len(query))
}
