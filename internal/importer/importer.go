// Package importer loads story files from disk into the memory store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

// Result reports what happened during an import.
type Result struct {
	Found        int `json:"found"`
	Stored       int `json:"stored"`
	Deduplicated int `json:"deduplicated"`
	Errors       int `json:"errors"`
}

// Ingester is the part of memory.Service the importer needs.
type Ingester interface {
	Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error)
}

// Importer ingests every story found under a set of directories. Re-running
// an import is safe: unchanged files are deduplicated by content hash.
type Importer struct {
	svc    Ingester
	logger *slog.Logger
}

func New(svc Ingester, logger *slog.Logger) *Importer {
	return &Importer{svc: svc, logger: logger}
}

// Import scans dirs and ingests each story. Per-file failures are counted and
// logged; an unavailable embedder aborts the run.
func (im *Importer) Import(ctx context.Context, dirs []string) (*Result, error) {
	stories, err := ScanStories(dirs)
	if err != nil {
		return nil, err
	}

	result := &Result{Found: len(stories)}
	for _, story := range stories {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		resp, err := im.svc.Ingest(ctx, &models.IngestRequest{
			Text:            story.Body,
			Summary:         story.Summary,
			ImportanceScore: story.Importance,
		})
		if errors.Is(err, memory.ErrEmbeddingUnavailable) {
			return result, fmt.Errorf("import %s: %w", story.Path, err)
		}
		if err != nil {
			im.logger.Error("failed to import story", "path", story.Path, "error", err)
			result.Errors++
			continue
		}
		if resp.Deduplicated {
			result.Deduplicated++
			continue
		}
		result.Stored++
		im.logger.Debug("story imported", "path", story.Path, "id", resp.ID)
	}

	im.logger.Info("import complete",
		"found", result.Found,
		"stored", result.Stored,
		"deduplicated", result.Deduplicated,
		"errors", result.Errors,
	)
	return result, nil
}
