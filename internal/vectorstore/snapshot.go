package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vector"
)

const snapshotVersion = 1

var (
	ErrSnapshotUnsupported = errors.New("index engine does not support snapshots")
	ErrNoIndex             = errors.New("no index has been built")
	ErrSnapshotStale       = errors.New("snapshot does not cover the store")
)

// snapshot is the on-disk form of a FlatIndex. Vectors is the row-major
// little-endian float32 matrix; encoding/json writes it as base64.
type snapshot struct {
	Version   int      `json:"version"`
	Dimension int      `json:"dimension"`
	IDs       []string `json:"ids"`
	Vectors   []byte   `json:"vectors"`
}

// SaveSnapshot writes idx to path via a temp file and rename, so a crash
// never leaves a half-written snapshot behind.
func SaveSnapshot(ctx context.Context, path string, idx *FlatIndex) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snapshot{
		Version:   snapshotVersion,
		Dimension: idx.dim,
		IDs:       idx.ids,
		Vectors:   vector.Float32ToBytes(idx.matrix),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a FlatIndex from path.
func LoadSnapshot(ctx context.Context, path string) (*FlatIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d not supported", s.Version)
	}
	matrix := vector.BytesToFloat32(s.Vectors)
	if matrix == nil && len(s.Vectors) > 0 {
		return nil, fmt.Errorf("snapshot vectors are not a float32 matrix")
	}
	idx, err := newFlatFromMatrix(s.IDs, matrix, s.Dimension)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return idx, nil
}

// Save snapshots the live index. Only the flat engine supports it.
func (h *Holder) Save(ctx context.Context, path string) error {
	idx := h.Current()
	if idx == nil {
		return ErrNoIndex
	}
	flat, ok := idx.(*FlatIndex)
	if !ok {
		return ErrSnapshotUnsupported
	}
	return SaveSnapshot(ctx, path, flat)
}

// Load reads a snapshot from path and swaps it in. records is the current
// store content: a snapshot missing any indexable record, or built at another
// dimension, is rejected with ErrSnapshotStale and the live index is left
// untouched. IDs the store no longer holds are allowed.
func (h *Holder) Load(ctx context.Context, path string, records []*models.Record) error {
	if h.builder.Engine() != EngineFlat {
		return ErrSnapshotUnsupported
	}
	idx, err := LoadSnapshot(ctx, path)
	if err != nil {
		return err
	}
	if err := covers(idx, records); err != nil {
		return err
	}
	h.Swap(idx)
	return nil
}

func covers(idx *FlatIndex, records []*models.Record) error {
	kept, dim, _ := collect(records)
	if len(kept) == 0 {
		return fmt.Errorf("%w: store has no embeddings", ErrSnapshotStale)
	}
	if dim != idx.Dimension() {
		return fmt.Errorf("%w: dimension %d, store has %d", ErrSnapshotStale, idx.Dimension(), dim)
	}
	have := make(map[string]struct{}, idx.Len())
	for _, id := range idx.ids {
		have[id] = struct{}{}
	}
	missing := 0
	for _, r := range kept {
		if _, ok := have[r.ID]; !ok {
			missing++
		}
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d records missing", ErrSnapshotStale, missing)
	}
	return nil
}
