package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/embedding"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/privacy"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/search"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/store"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vectorstore"
)

var (
	ErrEmptyQuery           = errors.New("query is empty")
	ErrEmptyText            = errors.New("text is empty")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrNotFound             = errors.New("memory not found")
	ErrNoSnapshotPath       = errors.New("no index snapshot path configured")
)

// Options tunes the service.
type Options struct {
	TopK            int
	SnapshotPath    string
	SnapshotTimeout time.Duration
}

// Service is the main facade for all memory operations. Ingest, rebuild,
// decay and snapshot I/O are serialized by a maintenance lock; retrieval
// runs concurrently with all of them.
type Service struct {
	backend   store.Backend
	index     *vectorstore.Holder
	retriever *search.HybridRetriever
	embedder  embedding.Provider
	decay     *DecayEngine
	dedup     *Deduplicator
	opts      Options
	logger    *slog.Logger

	maint sync.Mutex
	now   func() time.Time
}

// NewService creates a new memory service with all dependencies.
func NewService(
	backend store.Backend,
	index *vectorstore.Holder,
	retriever *search.HybridRetriever,
	embedder embedding.Provider,
	decay *DecayEngine,
	dedup *Deduplicator,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.SnapshotTimeout <= 0 {
		opts.SnapshotTimeout = 30 * time.Second
	}
	return &Service{
		backend:   backend,
		index:     index,
		retriever: retriever,
		embedder:  embedder,
		decay:     decay,
		dedup:     dedup,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest stores text as a new record and rebuilds the index. <private>
// blocks are removed first. Identical text returns the existing record with
// Deduplicated set. Text that cannot be embedded is rejected and never stored.
func (s *Service) Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error) {
	text := privacy.Redact(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	importance := models.DefaultImportance
	if req.ImportanceScore != nil {
		importance = *req.ImportanceScore
	}
	summary := privacy.Redact(req.Summary)
	if summary == "" {
		summary = makeSummary(text)
	}

	dup, err := s.dedup.CheckExact(ctx, text)
	if err != nil {
		s.logger.Warn("dedup check failed", "error", err)
		dup = &DedupResult{}
	}
	if dup.ExactDuplicateID != "" {
		return &models.IngestResponse{ID: dup.ExactDuplicateID, Deduplicated: true}, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyText) {
			return nil, ErrEmptyText
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	rec, err := models.NewRecord(uuid.New().String(), summary, text, vec, models.Metadata{
		ImportanceScore: importance,
		AccessCount:     models.DefaultAccessCount,
		Timestamp:       s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	rec.ContentHash = embedding.ContentHash(text)

	if err := s.dedup.CheckNear(ctx, vec, dup); err != nil {
		s.logger.Warn("near duplicate check failed", "error", err)
	}

	s.maint.Lock()
	defer s.maint.Unlock()

	// A concurrent ingest of the same text may have landed while embedding.
	if again, err := s.dedup.CheckExact(ctx, text); err == nil && again.ExactDuplicateID != "" {
		return &models.IngestResponse{ID: again.ExactDuplicateID, Deduplicated: true}, nil
	}
	if err := s.backend.Add(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	if _, err := s.rebuildLocked(ctx); err != nil {
		s.logger.Error("index rebuild after ingest failed", "id", rec.ID, "error", err)
	}

	s.logger.Info("memory ingested", "id", rec.ID, "chars", len(text))
	return &models.IngestResponse{
		ID:                rec.ID,
		NearDuplicateID:   dup.NearDuplicateID,
		NearDupSimilarity: dup.NearDupSimilarity,
	}, nil
}

// Retrieve ranks records against query. An empty result is reported through
// Insufficient rather than as an error.
func (s *Service) Retrieve(ctx context.Context, req *models.RetrieveRequest) (*models.RetrieveResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.opts.TopK
	}

	start := time.Now()
	out, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyText) {
			return nil, ErrEmptyQuery
		}
		if errors.Is(err, search.ErrQueryEmbedding) {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}

	resp := &models.RetrieveResponse{
		Results:      out.Results,
		Method:       out.Method,
		SearchTimeMs: int(time.Since(start).Milliseconds()),
	}
	if resp.Results == nil {
		resp.Results = []models.RetrievalResult{}
	}
	if len(resp.Results) == 0 {
		resp.Insufficient = true
		resp.Message = insufficientText
		return resp, nil
	}
	resp.Confidence = Confidence(resp.Results)
	resp.Context = BuildContext(resp.Results)
	return resp, nil
}

// RunDecayCycle applies one decay cycle. An empty store is reported as a
// no-op. The index is left as is; dangling entries are skipped at query time.
func (s *Service) RunDecayCycle(ctx context.Context) (*models.DecayReport, error) {
	s.maint.Lock()
	defer s.maint.Unlock()

	n, err := s.backend.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	if n == 0 {
		return &models.DecayReport{NoOp: true}, nil
	}

	start := time.Now()
	stats, err := s.decay.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("decay cycle: %w", err)
	}
	return &models.DecayReport{Stats: stats, DurationMs: time.Since(start).Milliseconds()}, nil
}

// Rebuild reconstructs the index from the store.
func (s *Service) Rebuild(ctx context.Context) (models.IndexStatus, error) {
	s.maint.Lock()
	defer s.maint.Unlock()
	return s.rebuildLocked(ctx)
}

func (s *Service) rebuildLocked(ctx context.Context) (models.IndexStatus, error) {
	records, err := s.backend.GetAll(ctx)
	if err != nil {
		return s.index.Status(), fmt.Errorf("load records: %w", err)
	}
	st, err := s.index.Rebuild(ctx, records)
	if errors.Is(err, vectorstore.ErrNoEmbeddings) {
		s.logger.Debug("index empty, retrieval will use linear scan")
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("rebuild index: %w", err)
	}
	if st.Skipped > 0 {
		s.logger.Warn("records skipped for dimension mismatch", "skipped", st.Skipped, "dimension", st.Dimension)
	}
	return st, nil
}

// SaveIndex writes the live index to the configured snapshot path.
func (s *Service) SaveIndex(ctx context.Context) (string, error) {
	s.maint.Lock()
	defer s.maint.Unlock()
	return s.saveLocked(ctx)
}

func (s *Service) saveLocked(ctx context.Context) (string, error) {
	if s.opts.SnapshotPath == "" {
		return "", ErrNoSnapshotPath
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.SnapshotTimeout)
	defer cancel()
	if err := s.index.Save(ctx, s.opts.SnapshotPath); err != nil {
		return "", fmt.Errorf("save index snapshot: %w", err)
	}
	s.logger.Info("index snapshot saved", "path", s.opts.SnapshotPath, "size", s.index.Status().Size)
	return s.opts.SnapshotPath, nil
}

// LoadIndex loads the snapshot. A snapshot that is unreadable, or that misses
// records present in the store, falls back to a rebuild from the store;
// loaded reports whether the snapshot was used.
func (s *Service) LoadIndex(ctx context.Context) (loaded bool, err error) {
	s.maint.Lock()
	defer s.maint.Unlock()

	if s.opts.SnapshotPath != "" {
		records, err := s.backend.GetAll(ctx)
		if err != nil {
			return false, fmt.Errorf("load records: %w", err)
		}
		lctx, cancel := context.WithTimeout(ctx, s.opts.SnapshotTimeout)
		lerr := s.index.Load(lctx, s.opts.SnapshotPath, records)
		cancel()
		if lerr == nil {
			s.logger.Info("index snapshot loaded", "path", s.opts.SnapshotPath, "size", s.index.Status().Size)
			return true, nil
		}
		s.logger.Warn("index snapshot unusable, rebuilding from store", "path", s.opts.SnapshotPath, "error", lerr)
	}
	if _, err := s.rebuildLocked(ctx); err != nil {
		return false, err
	}
	return false, nil
}

// Repair embeds records that are missing an embedding, rebuilds the index
// and saves a snapshot when a path is configured.
func (s *Service) Repair(ctx context.Context) (*models.RepairReport, error) {
	s.maint.Lock()
	defer s.maint.Unlock()

	records, err := s.backend.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	report := &models.RepairReport{Scanned: len(records)}
	for _, r := range records {
		if r.HasEmbedding() {
			continue
		}
		text := r.Raw
		if strings.TrimSpace(text) == "" {
			text = r.ContentSummary
		}
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			report.Failed++
			s.logger.Warn("repair: embedding failed", "id", r.ID, "error", err)
			continue
		}
		ok, err := s.backend.Update(ctx, r.ID, models.Patch{Embedding: vec})
		if err != nil || !ok {
			report.Failed++
			s.logger.Warn("repair: update failed", "id", r.ID, "error", err)
			continue
		}
		report.Embedded++
	}

	st, err := s.rebuildLocked(ctx)
	if err != nil {
		return nil, err
	}
	report.Index = st

	if s.opts.SnapshotPath != "" && st.Built {
		path, err := s.saveLocked(ctx)
		if err != nil {
			s.logger.Warn("repair: snapshot save failed", "error", err)
		} else {
			report.SavedPath = path
		}
	}
	return report, nil
}

// Stats summarizes the store and the live index.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	records, err := s.backend.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	st := &models.Stats{Records: len(records), Index: s.index.Status()}
	for _, r := range records {
		if r.HasEmbedding() {
			st.WithEmbeddings++
		}
		if r.Metadata.Consolidated {
			st.Consolidated++
		}
	}
	return st, nil
}

// List returns every record in insertion order.
func (s *Service) List(ctx context.Context) ([]*models.Record, error) {
	records, err := s.backend.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if records == nil {
		records = []*models.Record{}
	}
	return records, nil
}

// Get fetches a record by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Record, error) {
	r, err := s.backend.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

// Delete removes a record and rebuilds the index.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.maint.Lock()
	defer s.maint.Unlock()

	ok, err := s.backend.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	if _, err := s.rebuildLocked(ctx); err != nil {
		s.logger.Error("index rebuild after delete failed", "id", id, "error", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.backend.Count(ctx)
}

// IndexStatus describes the live index.
func (s *Service) IndexStatus() models.IndexStatus {
	return s.index.Status()
}

// BackendName reports which storage variant is in use.
func (s *Service) BackendName() string {
	return s.backend.Name()
}
