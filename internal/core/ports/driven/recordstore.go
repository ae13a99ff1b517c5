package driven

import (
	"context"
	"time"
)

// Record is a stored JSON document with its modification time.
type Record struct {
	Key     string
	Data    []byte
	ModTime time.Time
	Size    int64
}

// RecordInfo describes a stored record without its payload.
type RecordInfo struct {
	Key     string
	ModTime time.Time
	Size    int64
}

// RecordStore is a flat key to JSON document store.
// Keys are namespaced by convention ("user_jack", "docs_index") and contain
// only [a-z0-9_-]. No transactions are required; each Write replaces the
// whole record and sets its modification time.
type RecordStore interface {
	// Exists reports whether a record is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Read returns the record stored under key.
	// Returns domain.ErrNotFound if it does not exist.
	Read(ctx context.Context, key string) (*Record, error)

	// Write stores data under key, replacing any existing record.
	Write(ctx context.Context, key string, data []byte) error

	// List returns every record, in no particular order.
	List(ctx context.Context) ([]RecordInfo, error)

	// Delete removes the record stored under key.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
