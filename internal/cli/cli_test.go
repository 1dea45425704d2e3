package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/testutil"
)

// setupEnv points memctl at a temp SQLite database and a fake Ollama.
func setupEnv(t *testing.T) {
	t.Helper()
	emb := &testutil.HashEmbedder{Dim: 32}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec, _ := emb.Embed(r.Context(), req.Input)
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{vec}})
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("BACKEND", "sqlite")
	t.Setenv("MEMORY_DB_PATH", filepath.Join(dir, "memory.db"))
	t.Setenv("INDEX_SNAPSHOT_PATH", filepath.Join(dir, "index.snap"))
	t.Setenv("OLLAMA_BASE_URL", srv.URL)
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBED_RETRY_BACKOFF", "1ms")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), err
}

func TestIngestAndSearch(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "ingest", "the dragon fought the knight")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.NotEmpty(t, id)

	out, err = run(t, "", "ingest", "the dragon fought the knight")
	require.NoError(t, err)
	assert.Contains(t, out, id+" (already stored)")

	out, err = run(t, "bread rises in a warm kitchen\n", "ingest", "--importance", "0.8")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out, err = run(t, "", "search", "dragon", "knight")
	require.NoError(t, err)
	assert.Contains(t, out, "1. [")
	assert.Contains(t, out, "the dragon fought the knight")
	assert.Contains(t, out, "via index")

	out, err = run(t, "", "search", "--json", "dragon knight")
	require.NoError(t, err)
	var resp models.RetrieveResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, id, resp.Results[0].Record.ID)
}

func TestIngestRejectsEmptyText(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "   ", "ingest")
	assert.Error(t, err)
}

func TestSearchInsufficient(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "", "search", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "I don't have enough information")
}

func TestDecayStatsAndReindex(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "decay")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to decay")

	_, err = run(t, "", "ingest", "--importance", "0.1", "a passing remark")
	require.NoError(t, err)
	_, err = run(t, "", "ingest", "the dragon fought the knight")
	require.NoError(t, err)

	out, err = run(t, "", "decay")
	require.NoError(t, err)
	assert.Contains(t, out, "total 2")
	assert.Contains(t, out, "forgotten 1")

	out, err = run(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "backend:         sqlite")
	assert.Contains(t, out, "records:         1")

	out, err = run(t, "", "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "index: 1 vectors, dimension 32")

	out, err = run(t, "", "reindex", "--repair")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 1, embedded 0, failed 0")
}

func TestInvalidConfigFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("BACKEND", "postgres")
	_, err := run(t, "", "stats")
	assert.Error(t, err)
}

func TestImportDirectory(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.md"), []byte("---\nimportance: 0.9\n---\nthe harbour burned"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.txt"), []byte("the dragon slept"), 0o644))

	out, err := run(t, "", "import", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "found 2, stored 2, already stored 0, errors 0")

	out, err = run(t, "", "import", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "found 2, stored 0, already stored 2, errors 0")
}
