package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/persona-cli/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/persona-cli/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/persona-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/persona-cli/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/persona-cli/internal/adapters/driven/storage/s3"
	"github.com/custodia-labs/persona-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
)

// Stores groups the durable stores selected by the storage settings.
type Stores struct {
	Records   driven.RecordStore
	Scheduler driven.SchedulerStore

	close func() error
}

// Close releases the underlying connections.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores opens the record store for the configured backend. Scheduler
// state lives in sqlite when that backend is chosen and in memory otherwise.
func OpenStores(ctx context.Context, cfg domain.StorageSettings, dataDir string) (*Stores, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = domain.StorageBackendFile
	}

	stores := &Stores{Scheduler: memory.NewSchedulerStore()}

	switch backend {
	case domain.StorageBackendFile:
		rs, err := file.NewRecordStore(filepath.Join(dataDir, "cache"))
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		stores.Records, stores.close = rs, rs.Close

	case domain.StorageBackendMemory:
		rs := memory.NewRecordStore()
		stores.Records, stores.close = rs, rs.Close

	case domain.StorageBackendBolt:
		rs, err := bolt.NewRecordStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open bbolt store: %w", err)
		}
		stores.Records, stores.close = rs, rs.Close

	case domain.StorageBackendSQLite:
		db, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		stores.Records = db.RecordStore()
		stores.Scheduler = db.SchedulerStore()
		stores.close = db.Close

	case domain.StorageBackendRedis:
		rs, err := redis.NewRecordStore(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		stores.Records, stores.close = rs, rs.Close

	case domain.StorageBackendS3:
		rs, err := s3.NewRecordStore(ctx, s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 store: %w", err)
		}
		stores.Records, stores.close = rs, rs.Close

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, backend)
	}

	return stores, nil
}
