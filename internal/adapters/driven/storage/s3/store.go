// Package s3 provides an S3-compatible object storage implementation of
// driven.RecordStore using minio-go. Each record is one object named
// <prefix><key>.json; its modification time is the object's LastModified.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// DefaultPrefix is the object name prefix for records.
const DefaultPrefix = "records/"

const (
	objectExt   = ".json"
	contentType = "application/json"
)

// Config configures the object storage connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string

	// Prefix defaults to DefaultPrefix.
	Prefix string
}

// RecordStore stores records as objects in a bucket.
type RecordStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewRecordStore connects to the endpoint and creates the bucket if missing.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	s := &RecordStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
	if s.prefix == "" {
		s.prefix = DefaultPrefix
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}
	return s, nil
}

func (s *RecordStore) objectName(key string) string {
	return s.prefix + key + objectExt
}

func (s *RecordStore) keyFromObject(name string) (string, bool) {
	if !strings.HasPrefix(name, s.prefix) || !strings.HasSuffix(name, objectExt) {
		return "", false
	}
	key := strings.TrimSuffix(strings.TrimPrefix(name, s.prefix), objectExt)
	if key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}

// Exists reports whether the record object exists.
func (s *RecordStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.objectName(key), minio.StatObjectOptions{})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

// Read downloads the record object.
func (s *RecordStore) Read(ctx context.Context, key string) (*driven.Record, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key.
	info, err := obj.Stat()
	if isNotFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return &driven.Record{
		Key:     key,
		Data:    data,
		ModTime: info.LastModified,
		Size:    int64(len(data)),
	}, nil
}

// Write uploads data as the record object.
func (s *RecordStore) Write(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

// List enumerates record objects under the prefix.
func (s *RecordStore) List(ctx context.Context) ([]driven.RecordInfo, error) {
	var infos []driven.RecordInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing records: %w", obj.Err)
		}
		key, ok := s.keyFromObject(obj.Key)
		if !ok {
			continue
		}
		infos = append(infos, driven.RecordInfo{
			Key:     key,
			ModTime: obj.LastModified,
			Size:    obj.Size,
		})
	}
	return infos, nil
}

// Delete removes the record object. RemoveObject succeeds for missing
// objects, so existence is checked first.
func (s *RecordStore) Delete(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.objectName(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the minio client holds no persistent connections to release.
func (s *RecordStore) Close() error {
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
