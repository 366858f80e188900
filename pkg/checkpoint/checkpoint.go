// Package checkpoint caches per-month extraction results so an unchanged
// workbook is not parsed twice. Entries are keyed by workbook identity
// (path, size, modification time); any change to the file yields a new key.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no entry exists for a key.
var ErrNotFound = errors.New("checkpoint: not found")

// keyNamespace scopes workbook keys.
var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("flightarchive/checkpoint"))

// Store persists opaque checkpoint payloads.
type Store interface {
	// Get returns the payload stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores payload under key, replacing any previous value.
	Put(ctx context.Context, key string, payload []byte) error

	// Delete removes the entry for key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Name returns the backend name for logging.
	Name() string
}

// Key derives the checkpoint key of a workbook. version lets callers
// invalidate entries when the extraction settings change.
func Key(path string, size int64, modTime time.Time, version string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := abs + "|" + strconv.FormatInt(size, 10) + "|" + modTime.UTC().Format(time.RFC3339Nano) + "|" + version
	return uuid.NewSHA1(keyNamespace, []byte(name)).String()
}

// FileStore keeps one file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".checkpoint")
}

// Get reads the entry for key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put writes the entry atomically: temp file first, then rename.
func (s *FileStore) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(key)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, payload, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

// Delete removes the entry for key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Name returns "file".
func (s *FileStore) Name() string {
	return "file"
}

// Cleanup removes entries older than maxAge and returns how many were removed.
func (s *FileStore) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".checkpoint" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
