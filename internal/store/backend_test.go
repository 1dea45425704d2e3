package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newRecord(t *testing.T, text string) *models.Record {
	t.Helper()
	r, err := models.NewRecord(uuid.New().String(), text, text, []float32{1, 0, 0}, models.Metadata{
		ImportanceScore: models.DefaultImportance,
		AccessCount:     models.DefaultAccessCount,
		Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return r
}

// backends runs fn against every Backend implementation.
func backends(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryBackend())
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, NewSQLiteBackend(setupTestDB(t)))
	})
}

func TestBackendAddGet(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		r := newRecord(t, "the dragon slept under the mountain")
		r.ContentHash = "abc"
		require.NoError(t, b.Add(ctx, r))

		got, err := b.Get(ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, r.ID, got.ID)
		assert.Equal(t, r.ContentSummary, got.ContentSummary)
		assert.Equal(t, r.Embedding, got.Embedding)
		assert.Equal(t, "abc", got.ContentHash)
		assert.Equal(t, 0.5, got.Metadata.ImportanceScore)
		assert.Equal(t, 1, got.Metadata.AccessCount)
		assert.True(t, r.Metadata.Timestamp.Equal(got.Metadata.Timestamp))
		assert.False(t, got.Metadata.Consolidated)

		missing, err := b.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestBackendRejectsDuplicateID(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		r := newRecord(t, "one")
		require.NoError(t, b.Add(ctx, r))
		assert.ErrorIs(t, b.Add(ctx, r), ErrDuplicateID)
	})
}

func TestBackendRejectsInvalidRecord(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		r := newRecord(t, "x")
		r.Metadata.ImportanceScore = 1.5
		assert.ErrorIs(t, b.Add(context.Background(), r), models.ErrInvalidScore)
	})
}

func TestBackendUpdateMergesPatch(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		r := newRecord(t, "original raw text")
		require.NoError(t, b.Add(ctx, r))

		score := 0.3
		summary := "short"
		ok, err := b.Update(ctx, r.ID, models.Patch{ImportanceScore: &score, ContentSummary: &summary})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := b.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.3, got.Metadata.ImportanceScore)
		assert.Equal(t, "short", got.ContentSummary)
		assert.Equal(t, "original raw text", got.Raw, "untouched fields survive")
		assert.Equal(t, r.Embedding, got.Embedding)
	})
}

func TestBackendUpdateKeepsInvariants(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		r := newRecord(t, "text")
		require.NoError(t, b.Add(ctx, r))

		yes, no := true, false
		lower := 0
		_, err := b.Update(ctx, r.ID, models.Patch{Consolidated: &yes})
		require.NoError(t, err)
		_, err = b.Update(ctx, r.ID, models.Patch{Consolidated: &no, AccessCount: &lower})
		require.NoError(t, err)

		got, err := b.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, got.Metadata.Consolidated, "consolidated never reverts")
		assert.Equal(t, 1, got.Metadata.AccessCount, "access count never decreases")
	})
}

func TestBackendMissingRecordOperations(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		score := 0.1

		ok, err := b.Update(ctx, "ghost", models.Patch{ImportanceScore: &score})
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = b.Delete(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = b.IncrementAccess(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestBackendDeleteAndGetAllOrder(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		a, m, z := newRecord(t, "a"), newRecord(t, "m"), newRecord(t, "z")
		for _, r := range []*models.Record{a, m, z} {
			require.NoError(t, b.Add(ctx, r))
		}

		ok, err := b.Delete(ctx, m.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		all, err := b.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, a.ID, all[0].ID)
		assert.Equal(t, z.ID, all[1].ID)

		n, err := b.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestBackendFindByContentHash(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		r := newRecord(t, "hashed")
		r.ContentHash = "h1"
		require.NoError(t, b.Add(ctx, r))

		got, err := b.FindByContentHash(ctx, "h1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, r.ID, got.ID)

		got, err = b.FindByContentHash(ctx, "h2")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = b.FindByContentHash(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestBackendConcurrentIncrementAccess(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		r := newRecord(t, "popular")
		require.NoError(t, b.Add(ctx, r))

		const workers = 20
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := b.IncrementAccess(ctx, r.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := b.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 1+workers, got.Metadata.AccessCount)
	})
}

func TestMemoryBackendReturnsCopies(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	r := newRecord(t, "immutable")
	require.NoError(t, b.Add(ctx, r))

	got, err := b.Get(ctx, r.ID)
	require.NoError(t, err)
	got.Metadata.AccessCount = 99
	got.Embedding[0] = 42

	again, err := b.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Metadata.AccessCount)
	assert.Equal(t, float32(1), again.Embedding[0])
}

func TestMemoryBackendClosed(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Close())
	_, err := b.GetAll(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteBackendUnparsableTimestamp(t *testing.T) {
	db := setupTestDB(t)
	b := NewSQLiteBackend(db)
	ctx := context.Background()
	r := newRecord(t, "old")
	require.NoError(t, b.Add(ctx, r))

	_, err := db.Exec(`UPDATE records SET timestamp = 'last tuesday' WHERE id = ?`, r.ID)
	require.NoError(t, err)

	got, err := b.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.Metadata.TimestampInvalid)
	assert.True(t, got.Metadata.Timestamp.IsZero())
}

func TestSQLiteBackendMissingTimestamp(t *testing.T) {
	b := NewSQLiteBackend(setupTestDB(t))
	ctx := context.Background()
	r := newRecord(t, "timeless")
	r.Metadata.Timestamp = time.Time{}
	require.NoError(t, b.Add(ctx, r))

	got, err := b.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.Metadata.TimestampInvalid)
	assert.True(t, got.Metadata.Timestamp.IsZero())
}

func TestSQLiteBackendRecordWithoutEmbedding(t *testing.T) {
	b := NewSQLiteBackend(setupTestDB(t))
	ctx := context.Background()
	r := newRecord(t, "no vector yet")
	r.Embedding = nil
	require.NoError(t, b.Add(ctx, r))

	got, err := b.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.HasEmbedding())
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mem.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteBackend(db).Add(context.Background(), newRecord(t, "persisted")))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	n, err := NewSQLiteBackend(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmbeddingCacheStore(t *testing.T) {
	ctx := context.Background()
	cache := NewEmbeddingCacheStore(setupTestDB(t))

	got, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Put(ctx, &models.EmbeddingCacheEntry{
		ContentHash: "h", Embedding: []byte{1, 2, 3, 4}, Dimension: 1, Model: "m1",
	}))
	require.NoError(t, cache.Put(ctx, &models.EmbeddingCacheEntry{
		ContentHash: "h", Embedding: []byte{5, 6, 7, 8}, Dimension: 1, Model: "m2",
	}))

	got, err = cache.Get(ctx, "h")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "m2", got.Model)
	assert.Equal(t, []byte{5, 6, 7, 8}, got.Embedding)
	assert.NotZero(t, got.UpdatedAt)

	n, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
