// Package filestore persists a whole collection of records as one JSON array
// in a flat file. Every read returns a fresh copy; every write replaces the
// file.
package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"recipe_hub/internal/common"
)

// Store reads and writes a []T at path.
type Store[T any] struct {
	path     string
	backfill func(*T)
}

type Option[T any] func(*Store[T])

// WithBackfill registers fn to fill absent optional fields of every record
// returned by Load. fn must be idempotent.
func WithBackfill[T any](fn func(*T)) Option[T] {
	return func(s *Store[T]) {
		s.backfill = fn
	}
}

func New[T any](path string, opts ...Option[T]) *Store[T] {
	s := &Store[T]{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store[T]) Path() string {
	return s.path
}

// EnsureFile creates the file holding an empty collection if it does not exist.
func (s *Store[T]) EnsureFile() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w: %v", s.path, common.ErrStorage, err)
	}
	return s.Save(nil)
}

// Load returns the persisted collection. A missing file is an empty
// collection. An unreadable or malformed file also yields an empty collection,
// together with an error wrapping common.ErrStorage that callers may report.
func (s *Store[T]) Load() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, nil
		}
		return []T{}, fmt.Errorf("read %s: %w: %v", s.path, common.ErrStorage, err)
	}

	var records []T
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return []T{}, fmt.Errorf("decode %s: %w: %v", s.path, common.ErrStorage, err)
		}
	}
	if records == nil {
		records = []T{}
	}

	if s.backfill != nil {
		for i := range records {
			s.backfill(&records[i])
		}
	}
	return records, nil
}

// Save overwrites the file with records. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (s *Store[T]) Save(records []T) error {
	if records == nil {
		records = []T{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode %s: %w: %v", s.path, common.ErrStorage, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w: %v", dir, common.ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w: %v", tmpName, common.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %v", tmpName, common.ErrStorage, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w: %v", tmpName, common.ErrStorage, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w: %v", s.path, common.ErrStorage, err)
	}
	return nil
}
