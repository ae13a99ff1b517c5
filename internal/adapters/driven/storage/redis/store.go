// Package redis provides a Redis-backed implementation of driven.RecordStore.
//
// Each record is a hash holding the payload and its modification time, and a
// set indexes all record keys so List does not need SCAN.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// DefaultKeyPrefix namespaces every Redis key written by the store.
const DefaultKeyPrefix = "persona:"

const (
	fieldData    = "data"
	fieldModTime = "mtime"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix defaults to DefaultKeyPrefix.
	KeyPrefix string

	// Retention sets a server-side expiry on each record. Zero keeps records
	// until they are deleted.
	Retention time.Duration
}

// RecordStore stores records in Redis hashes.
type RecordStore struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRecordStore connects to Redis and verifies the connection with PING.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return NewRecordStoreFromClient(rdb, cfg), nil
}

// NewRecordStoreFromClient wraps an existing client.
func NewRecordStoreFromClient(rdb *redis.Client, cfg Config) *RecordStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RecordStore{
		rdb:       rdb,
		prefix:    prefix,
		retention: cfg.Retention,
		now:       time.Now,
	}
}

func (s *RecordStore) recordKey(key string) string { return s.prefix + "record:" + key }
func (s *RecordStore) indexKey() string            { return s.prefix + "records" }

// Exists reports whether a record is stored under key.
func (s *RecordStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.recordKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return n > 0, nil
}

// Read returns the record stored under key.
func (s *RecordStore) Read(ctx context.Context, key string) (*driven.Record, error) {
	vals, err := s.rdb.HMGet(ctx, s.recordKey(key), fieldData, fieldModTime).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, domain.ErrNotFound
	}
	mtime, _ := vals[1].(string)
	return &driven.Record{
		Key:     key,
		Data:    []byte(data),
		ModTime: parseModTime(mtime),
		Size:    int64(len(data)),
	}, nil
}

// Write stores data under key in one transaction.
func (s *RecordStore) Write(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return domain.ErrInvalidInput
	}
	rk := s.recordKey(key)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, rk, fieldData, data, fieldModTime, strconv.FormatInt(s.now().UnixNano(), 10))
	pipe.SAdd(ctx, s.indexKey(), key)
	if s.retention > 0 {
		pipe.Expire(ctx, rk, s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// List returns every indexed record. Index entries whose record expired
// server-side are removed from the index.
func (s *RecordStore) List(ctx context.Context) ([]driven.RecordInfo, error) {
	keys, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	pipe := s.rdb.Pipeline()
	mtimes := make([]*redis.StringCmd, len(keys))
	sizes := make([]*redis.Cmd, len(keys))
	for i, key := range keys {
		mtimes[i] = pipe.HGet(ctx, s.recordKey(key), fieldModTime)
		sizes[i] = pipe.Do(ctx, "HSTRLEN", s.recordKey(key), fieldData)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	infos := make([]driven.RecordInfo, 0, len(keys))
	var stale []any
	for i, key := range keys {
		mtime, err := mtimes[i].Result()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, key)
			continue
		}
		size, _ := sizes[i].Int64()
		infos = append(infos, driven.RecordInfo{
			Key:     key,
			ModTime: parseModTime(mtime),
			Size:    size,
		})
	}
	if len(stale) > 0 {
		s.rdb.SRem(ctx, s.indexKey(), stale...)
	}
	return infos, nil
}

// Delete removes the record stored under key.
func (s *RecordStore) Delete(ctx context.Context, key string) error {
	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, s.recordKey(key))
	pipe.SRem(ctx, s.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	if del.Val() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close closes the client.
func (s *RecordStore) Close() error {
	return s.rdb.Close()
}

func parseModTime(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
