package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

type record struct {
	data    []byte
	modTime time.Time
}

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]record
	now     func() time.Time
}

// RecordStoreOption configures a RecordStore.
type RecordStoreOption func(*RecordStore)

// WithClock sets the clock used to stamp modification times.
func WithClock(now func() time.Time) RecordStoreOption {
	return func(s *RecordStore) {
		s.now = now
	}
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore(opts ...RecordStoreOption) *RecordStore {
	s := &RecordStore{
		records: make(map[string]record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists reports whether a record is stored under key.
func (s *RecordStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok, nil
}

// Read returns a copy of the record stored under key.
func (s *RecordStore) Read(_ context.Context, key string) (*driven.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &driven.Record{
		Key:     key,
		Data:    append([]byte(nil), r.data...),
		ModTime: r.modTime,
		Size:    int64(len(r.data)),
	}, nil
}

// Write stores a copy of data under key.
func (s *RecordStore) Write(_ context.Context, key string, data []byte) error {
	if key == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record{
		data:    append([]byte(nil), data...),
		modTime: s.now(),
	}
	return nil
}

// List returns every record.
func (s *RecordStore) List(_ context.Context) ([]driven.RecordInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]driven.RecordInfo, 0, len(s.records))
	for key, r := range s.records {
		infos = append(infos, driven.RecordInfo{
			Key:     key,
			ModTime: r.modTime,
			Size:    int64(len(r.data)),
		})
	}
	return infos, nil
}

// Delete removes the record stored under key.
func (s *RecordStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// Close is a no-op.
func (s *RecordStore) Close() error {
	return nil
}

// Touch overwrites a record's modification time. Tests use it to age records.
func (s *RecordStore) Touch(key string, modTime time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	if !ok {
		return false
	}
	r.modTime = modTime
	s.records[key] = r
	return true
}
