package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vector"
)

// recordColumns is the canonical column list for all SELECT queries.
// Order must match scanRecord.
const recordColumns = `id, content_summary, raw, embedding, content_hash,
	importance_score, access_count, timestamp, consolidated`

// SQLiteBackend is the persistent Backend. All writes go through the single
// connection opened by Open, which serializes them.
type SQLiteBackend struct {
	db *DB
}

func NewSQLiteBackend(db *DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (s *SQLiteBackend) Name() string { return "sqlite" }

// Add stores a new record. The caller must set ID and metadata.
func (s *SQLiteBackend) Add(ctx context.Context, r *models.Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("add record: %w", err)
	}
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (
			id, content_summary, raw, embedding, content_hash,
			importance_score, access_count, timestamp, consolidated,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.ContentSummary, r.Raw, encodeEmbedding(r.Embedding), r.ContentHash,
		r.Metadata.ImportanceScore, r.Metadata.AccessCount,
		formatTimestamp(r.Metadata.Timestamp), boolToInt(r.Metadata.Consolidated),
		now, now,
	)
	if err != nil {
		if existing, gerr := s.Get(ctx, r.ID); gerr == nil && existing != nil {
			return fmt.Errorf("add record %s: %w", r.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get fetches a single record by ID.
func (s *SQLiteBackend) Get(ctx context.Context, id string) (*models.Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE id = ?`, recordColumns), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// Update merges p into the stored record inside a transaction, so the merge
// rules of models.Patch hold against concurrent writers.
func (s *SQLiteBackend) Update(ctx context.Context, id string, p models.Patch) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	r, err := scanRecord(tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE id = ?`, recordColumns), id))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load record for update: %w", err)
	}

	p.Apply(r)

	_, err = tx.ExecContext(ctx, `
		UPDATE records SET
			content_summary = ?, raw = ?, embedding = ?,
			importance_score = ?, access_count = ?, consolidated = ?,
			updated_at = ?
		WHERE id = ?
	`,
		r.ContentSummary, r.Raw, encodeEmbedding(r.Embedding),
		r.Metadata.ImportanceScore, r.Metadata.AccessCount, boolToInt(r.Metadata.Consolidated),
		time.Now().Unix(), id,
	)
	if err != nil {
		return false, fmt.Errorf("update record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit update: %w", err)
	}
	return true, nil
}

// Delete removes a record by ID.
func (s *SQLiteBackend) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetAll returns every record in insertion order.
func (s *SQLiteBackend) GetAll(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records ORDER BY rowid`, recordColumns))
	if err != nil {
		return nil, fmt.Errorf("get all records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// IncrementAccess bumps a record's access count in a single statement.
func (s *SQLiteBackend) IncrementAccess(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET access_count = access_count + 1, updated_at = ?
		WHERE id = ?
	`, time.Now().Unix(), id)
	if err != nil {
		return false, fmt.Errorf("increment access: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FindByContentHash returns the oldest record with the given content hash.
func (s *SQLiteBackend) FindByContentHash(ctx context.Context, hash string) (*models.Record, error) {
	if hash == "" {
		return nil, nil
	}
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE content_hash = ? ORDER BY rowid LIMIT 1`, recordColumns), hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	return r, nil
}

func (s *SQLiteBackend) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var r models.Record
	var embedding []byte
	var ts sql.NullString
	var consolidated int

	err := row.Scan(
		&r.ID, &r.ContentSummary, &r.Raw, &embedding, &r.ContentHash,
		&r.Metadata.ImportanceScore, &r.Metadata.AccessCount, &ts, &consolidated,
	)
	if err != nil {
		return nil, err
	}

	if len(embedding) > 0 {
		r.Embedding = vector.BytesToFloat32(embedding)
	}
	r.Metadata.Consolidated = consolidated != 0
	if ts.Valid && ts.String != "" {
		t, err := time.Parse(time.RFC3339Nano, ts.String)
		if err != nil {
			r.Metadata.TimestampInvalid = true
		} else {
			r.Metadata.Timestamp = t
		}
	}
	return &r, nil
}

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return vector.Float32ToBytes(v)
}

func formatTimestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
