package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/store"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/summarizer"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/testutil"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func daysAgo(d int) time.Time {
	return testNow.Add(-time.Duration(d) * 24 * time.Hour)
}

func addRecord(t *testing.T, b store.Backend, id string, score float64, access int, ts time.Time) *models.Record {
	t.Helper()
	r, err := models.NewRecord(id, "summary of "+id, "the long raw text of "+id, []float32{1, 0}, models.Metadata{
		ImportanceScore: score,
		AccessCount:     access,
		Timestamp:       ts,
	})
	require.NoError(t, err)
	require.NoError(t, b.Add(context.Background(), r))
	return r
}

func newEngine(b store.Backend, sum summarizer.Summarizer) *DecayEngine {
	return NewDecayEngine(b, sum, DefaultDecayConfig(), discardLogger()).WithClock(func() time.Time { return testNow })
}

func TestDecayScore(t *testing.T) {
	e := newEngine(store.NewMemoryBackend(), nil)

	tests := []struct {
		name string
		meta models.Metadata
		want float64
	}{
		{"young record keeps score", models.Metadata{ImportanceScore: 0.5, AccessCount: 1, Timestamp: testNow}, 0.5},
		{"23 hours is age 0", models.Metadata{ImportanceScore: 0.5, AccessCount: 1, Timestamp: testNow.Add(-23 * time.Hour)}, 0.5},
		{"missing timestamp keeps score", models.Metadata{ImportanceScore: 0.7, AccessCount: 1}, 0.7},
		{"future timestamp keeps score", models.Metadata{ImportanceScore: 0.7, AccessCount: 1, Timestamp: testNow.Add(48 * time.Hour)}, 0.7},
		{"seven days, one access", models.Metadata{ImportanceScore: 0.5, AccessCount: 1, Timestamp: daysAgo(7)}, 0.5 * math.Exp(-0.35)},
		{"access slows decay", models.Metadata{ImportanceScore: 0.5, AccessCount: 10, Timestamp: daysAgo(7)},
			0.5 * math.Exp(-0.35/(math.Log(10)+1))},
		{"partial days floor", models.Metadata{ImportanceScore: 0.5, AccessCount: 1, Timestamp: testNow.Add(-(7*24 + 23) * time.Hour)}, 0.5 * math.Exp(-0.35)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.Score(tt.meta, testNow), 1e-12)
		})
	}
}

func TestDecayScoreStaysInUnitInterval(t *testing.T) {
	e := newEngine(store.NewMemoryBackend(), nil)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		meta := models.Metadata{
			ImportanceScore: rng.Float64(),
			AccessCount:     1 + rng.Intn(500),
			Timestamp:       daysAgo(rng.Intn(3650)),
		}
		s := e.Score(meta, testNow)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestDecayScoreMonotonicInAccessCount(t *testing.T) {
	e := newEngine(store.NewMemoryBackend(), nil)
	for _, age := range []int{1, 7, 30, 365} {
		prev := -1.0
		for access := 1; access <= 200; access++ {
			s := e.Score(models.Metadata{ImportanceScore: 0.8, AccessCount: access, Timestamp: daysAgo(age)}, testNow)
			assert.GreaterOrEqual(t, s, prev, "age %d access %d", age, access)
			prev = s
		}
	}
}

func TestClassify(t *testing.T) {
	e := newEngine(store.NewMemoryBackend(), nil)
	assert.Equal(t, Forget, e.Classify(0.19))
	assert.Equal(t, Consolidate, e.Classify(0.20))
	assert.Equal(t, Consolidate, e.Classify(0.39))
	assert.Equal(t, Retain, e.Classify(0.40))
	assert.Equal(t, "forget", Forget.String())
}

func TestDecayYoungRecordUnchanged(t *testing.T) {
	b := store.NewMemoryBackend()
	addRecord(t, b, "young", 0.5, 1, testNow)

	stats, err := newEngine(b, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DecayStats{Total: 1}, stats)

	got, err := b.Get(context.Background(), "young")
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.Metadata.ImportanceScore)
}

func TestDecayForgetsLowScore(t *testing.T) {
	b := store.NewMemoryBackend()
	addRecord(t, b, "faint", 0.15, 1, testNow)

	stats, err := newEngine(b, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Forgotten)

	got, err := b.Get(context.Background(), "faint")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecayConsolidates(t *testing.T) {
	b := store.NewMemoryBackend()
	addRecord(t, b, "fading", 0.5, 1, daysAgo(7))
	sum := &testutil.Summarizer{Output: "  gist of the story  "}

	stats, err := newEngine(b, sum).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Consolidated)
	assert.Equal(t, 1, stats.Updated)
	require.Len(t, sum.Calls, 1)
	assert.Equal(t, "the long raw text of fading", sum.Calls[0])

	got, err := b.Get(context.Background(), "fading")
	require.NoError(t, err)
	assert.True(t, got.Metadata.Consolidated)
	assert.Equal(t, "gist of the story", got.Raw)
	assert.Equal(t, "gist of the story", got.ContentSummary)
	assert.InDelta(t, 0.352, got.Metadata.ImportanceScore, 0.001)
}

func TestDecayConsolidateUsesSummaryWhenRawEmpty(t *testing.T) {
	b := store.NewMemoryBackend()
	r, err := models.NewRecord("s", "only a summary", "", []float32{1}, models.Metadata{
		ImportanceScore: 0.5, AccessCount: 1, Timestamp: daysAgo(7),
	})
	require.NoError(t, err)
	require.NoError(t, b.Add(context.Background(), r))
	sum := &testutil.Summarizer{Output: "gist"}

	_, err = newEngine(b, sum).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Calls, 1)
	assert.Equal(t, "only a summary", sum.Calls[0])
}

func TestDecaySummarizerFailureKeepsText(t *testing.T) {
	for name, sum := range map[string]*testutil.Summarizer{
		"error": {Err: errors.New("model offline")},
		"empty": {Output: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			b := store.NewMemoryBackend()
			orig := addRecord(t, b, "fading", 0.5, 1, daysAgo(7))

			stats, err := newEngine(b, sum).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Consolidated, "attempts are counted")
			assert.Equal(t, 1, stats.Updated)
			assert.Equal(t, 0, stats.Errors)

			got, err := b.Get(context.Background(), "fading")
			require.NoError(t, err)
			assert.False(t, got.Metadata.Consolidated)
			assert.Equal(t, orig.Raw, got.Raw)
			assert.InDelta(t, 0.352, got.Metadata.ImportanceScore, 0.001)
		})
	}
}

type panickingSummarizer struct{}

func (panickingSummarizer) Summarize(context.Context, string, int, int) (string, error) {
	panic("model crashed")
}

func TestDecaySummarizerPanicKeepsText(t *testing.T) {
	b := store.NewMemoryBackend()
	orig := addRecord(t, b, "fading", 0.5, 1, daysAgo(7))

	var stats models.DecayStats
	require.NotPanics(t, func() {
		var err error
		stats, err = newEngine(b, panickingSummarizer{}).Run(context.Background())
		require.NoError(t, err)
	})
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 0, stats.Errors)

	got, err := b.Get(context.Background(), "fading")
	require.NoError(t, err)
	assert.False(t, got.Metadata.Consolidated)
	assert.Equal(t, orig.Raw, got.Raw)
}

func TestDecayWithoutSummarizerStillScores(t *testing.T) {
	b := store.NewMemoryBackend()
	addRecord(t, b, "fading", 0.9, 1, daysAgo(30))

	stats, err := newEngine(b, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	got, err := b.Get(context.Background(), "fading")
	require.NoError(t, err)
	assert.False(t, got.Metadata.Consolidated)
	assert.InDelta(t, 0.9*math.Exp(-1.5), got.Metadata.ImportanceScore, 1e-9)
}

func TestDecayAlreadyConsolidatedSkipsSummarizer(t *testing.T) {
	b := store.NewMemoryBackend()
	addRecord(t, b, "done", 0.5, 1, daysAgo(7))
	yes := true
	_, err := b.Update(context.Background(), "done", models.Patch{Consolidated: &yes})
	require.NoError(t, err)
	sum := &testutil.Summarizer{Output: "should not be used"}

	stats, err := newEngine(b, sum).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Calls)
	assert.Equal(t, 0, stats.Consolidated)
	assert.Equal(t, 1, stats.Updated)
}

func TestDecayRetainPersistsOnlySignificantChange(t *testing.T) {
	b := store.NewMemoryBackend()
	addRecord(t, b, "strong", 0.9, 1, daysAgo(2))   // 0.9 → 0.814
	addRecord(t, b, "steady", 0.5, 100, daysAgo(1)) // 0.5 → 0.4956

	stats, err := newEngine(b, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	strong, err := b.Get(context.Background(), "strong")
	require.NoError(t, err)
	assert.InDelta(t, 0.9*math.Exp(-0.1), strong.Metadata.ImportanceScore, 1e-9)

	steady, err := b.Get(context.Background(), "steady")
	require.NoError(t, err)
	assert.Equal(t, 0.5, steady.Metadata.ImportanceScore)
}

// flakyBackend fails mutations for selected IDs.
type flakyBackend struct {
	store.Backend
	failUpdate map[string]bool
	failDelete map[string]bool
	vanish     map[string]bool
}

func (f *flakyBackend) Update(ctx context.Context, id string, p models.Patch) (bool, error) {
	if f.failUpdate[id] {
		return false, errors.New("disk full")
	}
	if f.vanish[id] {
		return false, nil
	}
	return f.Backend.Update(ctx, id, p)
}

func (f *flakyBackend) Delete(ctx context.Context, id string) (bool, error) {
	if f.failDelete[id] {
		return false, errors.New("locked")
	}
	if f.vanish[id] {
		return false, nil
	}
	return f.Backend.Delete(ctx, id)
}

func TestDecayTalliesPerRecordErrors(t *testing.T) {
	inner := store.NewMemoryBackend()
	addRecord(t, inner, "update-fails", 0.9, 1, daysAgo(30))
	addRecord(t, inner, "delete-fails", 0.1, 1, testNow)
	addRecord(t, inner, "vanished", 0.1, 1, testNow)
	addRecord(t, inner, "fine", 0.1, 1, testNow)
	b := &flakyBackend{
		Backend:    inner,
		failUpdate: map[string]bool{"update-fails": true},
		failDelete: map[string]bool{"delete-fails": true},
		vanish:     map[string]bool{"vanished": true},
	}

	stats, err := newEngine(b, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Errors)
	assert.Equal(t, 1, stats.Forgotten)
}

func TestDecayUnparsableTimestampKeepsScore(t *testing.T) {
	db, err := store.Open(t.TempDir() + "/decay.db")
	require.NoError(t, err)
	defer db.Close()
	b := store.NewSQLiteBackend(db)
	addRecord(t, b, "garbled", 0.9, 1, daysAgo(3))
	addRecord(t, b, "faint", 0.1, 1, daysAgo(3))
	addRecord(t, b, "ok", 0.9, 1, daysAgo(3))
	_, err = db.Exec(`UPDATE records SET timestamp = 'yesterday-ish' WHERE id IN ('garbled', 'faint')`)
	require.NoError(t, err)

	stats, err := newEngine(b, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DecayStats{Total: 3, Updated: 1, Forgotten: 1}, stats)

	garbled, err := b.Get(context.Background(), "garbled")
	require.NoError(t, err)
	require.NotNil(t, garbled)
	assert.Equal(t, 0.9, garbled.Metadata.ImportanceScore)

	faint, err := b.Get(context.Background(), "faint")
	require.NoError(t, err)
	assert.Nil(t, faint, "a faint record is forgotten even without a usable timestamp")
}

func TestDecayStopsOnCancelledContext(t *testing.T) {
	b := store.NewMemoryBackend()
	addRecord(t, b, "a", 0.9, 1, daysAgo(3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(b, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecayConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultDecayConfig().Validate())

	bad := DefaultDecayConfig()
	bad.ForgetThreshold = 0.5
	assert.Error(t, bad.Validate())

	bad = DefaultDecayConfig()
	bad.DecayRate = -1
	assert.Error(t, bad.Validate())

	bad = DefaultDecayConfig()
	bad.ConsolidationThreshold = 1.2
	assert.Error(t, bad.Validate())
}
