// Package file provides a flat-file implementation of driven.RecordStore.
// Each record is one JSON file named <key>.json inside a single directory;
// its modification time is the file's mtime.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

const recordExt = ".json"

// validKey guards against path traversal; keys never contain separators.
var validKey = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// RecordStore stores records as JSON files in a directory.
type RecordStore struct {
	dir string
}

// NewRecordStore creates a record store rooted at dir, creating it if needed.
// If dir is empty, defaults to ~/.persona/cache.
func NewRecordStore(dir string) (*RecordStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".persona", "cache")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &RecordStore{dir: dir}, nil
}

// Dir returns the directory records are stored in.
func (s *RecordStore) Dir() string {
	return s.dir
}

func (s *RecordStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: record key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, key+recordExt), nil
}

// Exists reports whether a record file exists.
func (s *RecordStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

// Read returns the record file contents and mtime.
func (s *RecordStore) Read(_ context.Context, key string) (*driven.Record, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return &driven.Record{
		Key:     key,
		Data:    data,
		ModTime: info.ModTime(),
		Size:    int64(len(data)),
	}, nil
}

// Write replaces the record file atomically via a temp file and rename.
func (s *RecordStore) Write(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("renaming %s: %w", key, err)
	}
	return nil
}

// List returns every record file. Temp files and foreign files are skipped.
func (s *RecordStore) List(_ context.Context) ([]driven.RecordInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	infos := make([]driven.RecordInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		key := strings.TrimSuffix(name, recordExt)
		if !validKey.MatchString(key) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		infos = append(infos, driven.RecordInfo{
			Key:     key,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	return infos, nil
}

// Delete removes the record file.
func (s *RecordStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close is a no-op.
func (s *RecordStore) Close() error {
	return nil
}
