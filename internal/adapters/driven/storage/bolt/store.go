// Package bolt provides a bbolt-backed implementation of driven.RecordStore.
// Record payloads and their modification times live in two buckets of a
// single database file.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "records.bolt"

// openTimeout bounds how long Open waits for the file lock.
const openTimeout = 5 * time.Second

var (
	bucketRecords  = []byte("records")
	bucketModTimes = []byte("modtimes")
)

// RecordStore stores records in a bbolt database.
type RecordStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewRecordStore opens (or creates) the database in dataDir.
// If dataDir is empty, defaults to ~/.persona/data.
func NewRecordStore(dataDir string) (*RecordStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".persona", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dataDir, DatabaseFile), 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketModTimes} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &RecordStore{db: db, now: time.Now}, nil
}

// Exists reports whether a record is stored under key.
func (s *RecordStore) Exists(_ context.Context, key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketRecords).Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

// Read returns the record stored under key.
func (s *RecordStore) Read(_ context.Context, key string) (*driven.Record, error) {
	var rec *driven.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(key))
		if data == nil {
			return domain.ErrNotFound
		}
		// bbolt memory is only valid inside the transaction.
		rec = &driven.Record{
			Key:     key,
			Data:    append([]byte(nil), data...),
			ModTime: decodeTime(tx.Bucket(bucketModTimes).Get([]byte(key))),
			Size:    int64(len(data)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Write stores data under key and stamps its modification time.
func (s *RecordStore) Write(_ context.Context, key string, data []byte) error {
	if key == "" {
		return domain.ErrInvalidInput
	}
	stamp := encodeTime(s.now())
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRecords).Put([]byte(key), data); err != nil {
			return fmt.Errorf("writing %s: %w", key, err)
		}
		return tx.Bucket(bucketModTimes).Put([]byte(key), stamp)
	})
}

// List returns every record.
func (s *RecordStore) List(_ context.Context) ([]driven.RecordInfo, error) {
	var infos []driven.RecordInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		times := tx.Bucket(bucketModTimes)
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			infos = append(infos, driven.RecordInfo{
				Key:     string(k),
				ModTime: decodeTime(times.Get(k)),
				Size:    int64(len(v)),
			})
			return nil
		})
	})
	return infos, err
}

// Delete removes the record stored under key.
func (s *RecordStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		if records.Get([]byte(key)) == nil {
			return domain.ErrNotFound
		}
		if err := records.Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(bucketModTimes).Delete([]byte(key))
	})
}

// Close closes the database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

func encodeTime(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func decodeTime(b []byte) time.Time {
	if len(b) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b))).UTC()
}
