package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// StoredEntry is the persisted form of one cache entry. Times are Unix
// milliseconds.
type StoredEntry struct {
	Value        json.RawMessage `json:"value"`
	Timestamp    int64           `json:"timestamp"`
	TTL          int64           `json:"ttl"`
	AccessCount  int             `json:"accessCount"`
	LastAccessed int64           `json:"lastAccessed"`
}

// SnapshotStats is the persisted hit/miss count.
type SnapshotStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Snapshot is the whole persisted cache:
// {"cache": {<key>: entry}, "stats": {hits, misses}, "timestamp": ms}.
type Snapshot struct {
	Cache     map[string]StoredEntry `json:"cache"`
	Stats     SnapshotStats          `json:"stats"`
	Timestamp int64                  `json:"timestamp"`
}

// Store persists cache snapshots.
//
// Contract:
// - Load returns (nil, nil) when nothing has been saved yet.
// - Save replaces the previous snapshot as a whole.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// FileStore keeps the snapshot in a UTF-8 JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the snapshot. A missing file is not an error.
func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: read %s: %w", s.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", s.path, err)
	}
	return &snap, nil
}

// Save writes the snapshot through a temporary file and a rename so a crash
// never leaves a half-written file behind.
func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("cache: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cache: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("cache: rename to %s: %w", s.path, err)
	}
	return nil
}
