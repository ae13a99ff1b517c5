package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
)

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Exists reports whether a record is stored under key.
func (s *recordStore) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM records WHERE key = ?", key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking record %s: %w", key, err)
	}
	return n > 0, nil
}

// Read returns the record stored under key.
func (s *recordStore) Read(ctx context.Context, key string) (*driven.Record, error) {
	var data []byte
	var modified int64
	err := s.store.db.QueryRowContext(ctx,
		"SELECT data, modified_at FROM records WHERE key = ?", key).Scan(&data, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", key, err)
	}

	return &driven.Record{
		Key:     key,
		Data:    data,
		ModTime: time.Unix(0, modified).UTC(),
		Size:    int64(len(data)),
	}, nil
}

// Write stores data under key, replacing any existing record.
func (s *recordStore) Write(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO records (key, data, modified_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			modified_at = excluded.modified_at
	`, key, data, s.store.now().UnixNano())
	if err != nil {
		return fmt.Errorf("writing record %s: %w", key, err)
	}
	return nil
}

// List returns every record.
func (s *recordStore) List(ctx context.Context) ([]driven.RecordInfo, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT key, LENGTH(data), modified_at FROM records")
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var infos []driven.RecordInfo //nolint:prealloc // size unknown from query
	for rows.Next() {
		var info driven.RecordInfo
		var modified int64
		if err := rows.Scan(&info.Key, &info.Size, &modified); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		info.ModTime = time.Unix(0, modified).UTC()
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return infos, nil
}

// Delete removes the record stored under key.
func (s *recordStore) Delete(ctx context.Context, key string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close is a no-op; the owning Store holds the connection.
func (s *recordStore) Close() error {
	return nil
}
