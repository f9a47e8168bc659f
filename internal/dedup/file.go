package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps the seen map in memory and persists it as a JSON object
// of identity -> first-seen unix seconds. The file is loaded once at open
// and written once at persist, via a temp file and atomic rename so a failed
// run never tears the previous run's state.
type FileStore struct {
	path   string
	seen   map[string]int64
	logger *slog.Logger
}

// OpenFile loads the store at path. A missing or corrupt file yields an
// empty store and a warning rather than an error: over-delivery is preferred
// over losing the run.
func OpenFile(path string, logger *slog.Logger) *FileStore {
	s := &FileStore{
		path:   path,
		seen:   make(map[string]int64),
		logger: logger.With("store", "file"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("state file unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}

	if err := json.Unmarshal(data, &s.seen); err != nil {
		s.logger.Warn("state file corrupt, starting empty", "path", path, "error", err)
		s.seen = make(map[string]int64)
		return s
	}

	s.logger.Debug("state loaded", "path", path, "records", len(s.seen))
	return s
}

func (s *FileStore) IsSeen(_ context.Context, identity string) (bool, error) {
	_, ok := s.seen[identity]
	return ok, nil
}

func (s *FileStore) MarkSeen(_ context.Context, identity string, firstSeen time.Time) error {
	if _, ok := s.seen[identity]; ok {
		return nil
	}
	s.seen[identity] = firstSeen.Unix()
	return nil
}

func (s *FileStore) Prune(_ context.Context, retention time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-retention).Unix()
	removed := 0
	for identity, firstSeen := range s.seen {
		if firstSeen < cutoff {
			delete(s.seen, identity)
			removed++
		}
	}
	return removed, nil
}

func (s *FileStore) Persist(_ context.Context) error {
	data, err := json.MarshalIndent(s.seen, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	s.logger.Debug("state persisted", "path", s.path, "records", len(s.seen))
	return nil
}

func (s *FileStore) Close() error { return nil }

// Snapshot returns a copy of the seen map for inspection.
func (s *FileStore) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(s.seen))
	for k, v := range s.seen {
		out[k] = v
	}
	return out
}
