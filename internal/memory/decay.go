package memory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/store"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/summarizer"
)

// Summary length bounds used when consolidating a record.
const (
	consolidateMinLen = 20
	consolidateMaxLen = 80
)

// DecayConfig holds the decay curve and classification thresholds.
type DecayConfig struct {
	DecayRate              float64
	ForgetThreshold        float64
	ConsolidationThreshold float64
	MinAgeDays             int
}

func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		DecayRate:              0.05,
		ForgetThreshold:        0.20,
		ConsolidationThreshold: 0.40,
		MinAgeDays:             1,
	}
}

// Validate checks 0 <= forget < consolidation <= 1 and a non-negative rate.
func (c DecayConfig) Validate() error {
	if c.DecayRate < 0 {
		return fmt.Errorf("decay rate must be >= 0, got %f", c.DecayRate)
	}
	if c.ForgetThreshold < 0 || c.ConsolidationThreshold > 1 || c.ForgetThreshold >= c.ConsolidationThreshold {
		return fmt.Errorf("need 0 <= forget (%f) < consolidation (%f) <= 1",
			c.ForgetThreshold, c.ConsolidationThreshold)
	}
	if c.MinAgeDays < 0 {
		return fmt.Errorf("min age days must be >= 0, got %d", c.MinAgeDays)
	}
	return nil
}

// Action is what a decay cycle does with a record.
type Action int

const (
	Retain Action = iota
	Consolidate
	Forget
)

func (a Action) String() string {
	switch a {
	case Consolidate:
		return "consolidate"
	case Forget:
		return "forget"
	default:
		return "retain"
	}
}

// DecayEngine recomputes importance scores and applies the
// retain/consolidate/forget classification through a Backend.
type DecayEngine struct {
	backend    store.Backend
	summarizer summarizer.Summarizer
	cfg        DecayConfig
	now        func() time.Time
	logger     *slog.Logger
}

func NewDecayEngine(backend store.Backend, sum summarizer.Summarizer, cfg DecayConfig, logger *slog.Logger) *DecayEngine {
	return &DecayEngine{
		backend:    backend,
		summarizer: sum,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the time source.
func (e *DecayEngine) WithClock(now func() time.Time) *DecayEngine {
	e.now = now
	return e
}

// Score returns the decayed importance for meta at now. Records with a
// missing or unparsable timestamp, or younger than MinAgeDays whole days,
// keep their score.
func (e *DecayEngine) Score(meta models.Metadata, now time.Time) float64 {
	old := meta.ImportanceScore
	if meta.Timestamp.IsZero() || meta.TimestampInvalid {
		return old
	}
	age := int(math.Floor(now.Sub(meta.Timestamp).Hours() / 24))
	if age < e.cfg.MinAgeDays {
		return old
	}
	access := meta.AccessCount
	if access < 1 {
		access = 1
	}
	return models.Clamp01(old * math.Exp(-e.cfg.DecayRate*float64(age)/(math.Log(float64(access))+1)))
}

// Classify maps a score to an action.
func (e *DecayEngine) Classify(score float64) Action {
	switch {
	case score < e.cfg.ForgetThreshold:
		return Forget
	case score < e.cfg.ConsolidationThreshold:
		return Consolidate
	default:
		return Retain
	}
}

// Run executes one decay cycle over every record. Per-record failures are
// counted in Errors and the cycle carries on; changes already applied are
// never rolled back.
func (e *DecayEngine) Run(ctx context.Context) (models.DecayStats, error) {
	var stats models.DecayStats

	records, err := e.backend.GetAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("load records: %w", err)
	}
	stats.Total = len(records)
	now := e.now()

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := e.apply(ctx, r, now, &stats); err != nil {
			stats.Errors++
			e.logger.Warn("decay failed for record", "id", r.ID, "error", err)
		}
	}

	e.logger.Info("decay cycle complete",
		"total", stats.Total,
		"updated", stats.Updated,
		"consolidated", stats.Consolidated,
		"forgotten", stats.Forgotten,
		"errors", stats.Errors,
	)
	return stats, nil
}

func (e *DecayEngine) apply(ctx context.Context, r *models.Record, now time.Time, stats *models.DecayStats) error {
	if r.Metadata.TimestampInvalid {
		e.logger.Warn("unparsable timestamp, keeping score", "id", r.ID)
	}
	old := r.Metadata.ImportanceScore
	score := e.Score(r.Metadata, now)

	switch e.Classify(score) {
	case Forget:
		ok, err := e.backend.Delete(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if !ok {
			return fmt.Errorf("delete: record vanished")
		}
		stats.Forgotten++
		e.logger.Debug("forgot record", "id", r.ID, "score", score)

	case Consolidate:
		patch := models.Patch{ImportanceScore: &score}
		attempted := !r.Metadata.Consolidated
		if attempted {
			if gist, ok := e.summarize(ctx, r); ok {
				yes := true
				patch.ContentSummary = &gist
				patch.Raw = &gist
				patch.Consolidated = &yes
			}
		}
		ok, err := e.backend.Update(ctx, r.ID, patch)
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		if !ok {
			return fmt.Errorf("update: record vanished")
		}
		stats.Updated++
		if attempted {
			stats.Consolidated++
			e.logger.Debug("consolidated record", "id", r.ID, "score", score, "summarized", patch.Consolidated != nil)
		}

	case Retain:
		if math.Abs(score-old) <= 0.01 {
			return nil
		}
		ok, err := e.backend.Update(ctx, r.ID, models.Patch{ImportanceScore: &score})
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		if !ok {
			return fmt.Errorf("update: record vanished")
		}
		stats.Updated++
	}
	return nil
}

// summarize condenses the record's raw text (or its summary when raw is
// empty). It reports false when there is nothing usable. A panicking
// summarizer is treated like a failing one.
func (e *DecayEngine) summarize(ctx context.Context, r *models.Record) (gist string, ok bool) {
	if e.summarizer == nil {
		return "", false
	}
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("summarizer panicked, keeping original text", "id", r.ID, "panic", rec)
			gist, ok = "", false
		}
	}()
	text := r.Raw
	if strings.TrimSpace(text) == "" {
		text = r.ContentSummary
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	gist, err := e.summarizer.Summarize(ctx, text, consolidateMinLen, consolidateMaxLen)
	if err != nil {
		e.logger.Warn("summarization failed, keeping original text", "id", r.ID, "error", err)
		return "", false
	}
	gist = strings.TrimSpace(gist)
	if gist == "" {
		e.logger.Warn("summarizer returned empty text, keeping original", "id", r.ID)
		return "", false
	}
	return gist, true
}
