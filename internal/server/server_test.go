package server

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/config"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/search"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/store"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/testutil"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vectorstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backend = config.BackendMemory
	cfg.Port = 0
	cfg.IndexSnapshotPath = filepath.Join(t.TempDir(), "index.snap")
	cfg.DecayInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, discardLogger()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunDecayLoopForgetsFaintRecords(t *testing.T) {
	logger := discardLogger()
	backend := store.NewMemoryBackend()
	holder := vectorstore.NewHolder(vectorstore.FlatBuilder{}, vectorstore.DefaultMinConfidence)
	embedder := &testutil.HashEmbedder{Dim: 16}
	svc := memory.NewService(backend, holder,
		search.NewHybridRetriever(backend, holder, embedder, search.DefaultSemanticWeight, true, logger),
		embedder,
		memory.NewDecayEngine(backend, nil, memory.DefaultDecayConfig(), logger),
		memory.NewDeduplicator(backend, holder, 0),
		memory.Options{}, logger)

	faint := 0.1
	_, err := svc.Ingest(context.Background(), &models.IngestRequest{Text: "a passing remark", ImportanceScore: &faint})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunDecayLoop(ctx, svc, 10*time.Millisecond, logger)

	assert.Eventually(t, func() bool {
		n, err := svc.Count(context.Background())
		return err == nil && n == 0
	}, 5*time.Second, 10*time.Millisecond)
}
