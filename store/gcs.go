package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/qadash/qadash/config"
	"github.com/qadash/qadash/filter"
	"github.com/qadash/qadash/model"
)

// gcsBucket and gcsObject are the minimal surface gcsStore needs from a
// GCS bucket. Thin wrappers adapt the real client; tests substitute a
// fake.
type gcsBucket interface {
	object(name string) gcsObject
	objects(ctx context.Context, q *storage.Query) gcsObjectIterator
}

type gcsObject interface {
	write(ctx context.Context, data []byte, contentType string, metadata map[string]string) (generation int64, err error)
	reader(ctx context.Context) (io.ReadCloser, error)
	delete(ctx context.Context) error
}

type gcsObjectIterator interface {
	Next() (*storage.ObjectAttrs, error)
}

type realGCSBucket struct {
	handle *storage.BucketHandle
}

func (b realGCSBucket) object(name string) gcsObject {
	return realGCSObject{handle: b.handle.Object(name)}
}

func (b realGCSBucket) objects(ctx context.Context, q *storage.Query) gcsObjectIterator {
	return b.handle.Objects(ctx, q)
}

type realGCSObject struct {
	handle *storage.ObjectHandle
}

func (o realGCSObject) write(ctx context.Context, data []byte, contentType string, metadata map[string]string) (int64, error) {
	w := o.handle.NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	if _, err := w.Write(data); err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	if attrs := w.Attrs(); attrs != nil {
		return attrs.Generation, nil
	}
	return 0, nil
}

func (o realGCSObject) reader(ctx context.Context) (io.ReadCloser, error) {
	return o.handle.NewReader(ctx)
}

func (o realGCSObject) delete(ctx context.Context) error {
	return o.handle.Delete(ctx)
}

// gcsStore persists records as JSON objects under a name prefix in a
// Google Cloud Storage bucket.
type gcsStore struct {
	logger     zerolog.Logger
	client     *storage.Client
	bucket     gcsBucket
	bucketName string
	prefix     string
}

func newGCSStore(ctx context.Context, logger zerolog.Logger, cfg config.GCSConfig) (*gcsStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is not configured")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	bucket := client.Bucket(cfg.Bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("gcs bucket %q is not accessible: %w", cfg.Bucket, err)
	}
	s := newGCSStoreWithBucket(logger, realGCSBucket{handle: bucket}, cfg.Bucket, cfg.Prefix)
	s.client = client
	return s, nil
}

func newGCSStoreWithBucket(logger zerolog.Logger, bucket gcsBucket, bucketName, prefix string) *gcsStore {
	return &gcsStore{
		logger:     logger,
		bucket:     bucket,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}
}

func (s *gcsStore) Info() ProviderInfo {
	return ProviderInfo{
		Name:        "Google Cloud Storage",
		Type:        string(ProviderGCS),
		Description: fmt.Sprintf("Stores test results as JSON objects in gs://%s/%s", s.bucketName, s.prefix),
	}
}

func (s *gcsStore) keyPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

func (s *gcsStore) StoreTestResult(ctx context.Context, record model.TestResult) (model.StoredObject, error) {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	name := objectName(record.TestName, record.CreatedAt)
	data, err := json.Marshal(record)
	if err != nil {
		return model.StoredObject{}, &WriteError{Provider: ProviderGCS, Err: err}
	}

	generation, err := s.bucket.object(s.keyPrefix()+name).write(ctx, data, "application/json", indexableProperties(record))
	if err != nil {
		return model.StoredObject{}, &WriteError{Provider: ProviderGCS, Err: err}
	}

	id := objectID(name)
	if generation != 0 {
		id = strconv.FormatInt(generation, 10)
	}
	return model.StoredObject{ID: id, Name: name, CreatedAt: now}, nil
}

func (s *gcsStore) GetTestResults(ctx context.Context, criteria model.FilterCriteria) ([]model.TestResult, error) {
	records, err := s.scan(ctx, s.listQuery(criteria))
	if err != nil {
		return nil, err
	}
	records = filter.Apply(records, criteria)
	filter.SortNewestFirst(records)
	return records, nil
}

func (s *gcsStore) SearchTestResults(ctx context.Context, term string) ([]model.TestResult, error) {
	return s.GetTestResults(ctx, model.FilterCriteria{SearchTerm: term})
}

// listQuery builds the native listing query. Both date bounds push
// down as lexicographic offsets over the timestamped object names; the
// remaining criteria are residual.
func (s *gcsStore) listQuery(criteria model.FilterCriteria) *storage.Query {
	q := &storage.Query{Prefix: s.keyPrefix()}
	if criteria.StartDate != nil {
		q.StartOffset = s.keyPrefix() + nameLowerBound(*criteria.StartDate)
	}
	if criteria.EndDate != nil {
		q.EndOffset = s.keyPrefix() + nameUpperBound(*criteria.EndDate)
	}
	return q
}

func (s *gcsStore) scan(ctx context.Context, query *storage.Query) ([]model.TestResult, error) {
	var records []model.TestResult
	it := s.bucket.objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &ReadError{Provider: ProviderGCS, Err: err}
		}
		name := path.Base(attrs.Name)
		if !isResultObject(name) {
			continue
		}
		reader, err := s.bucket.object(attrs.Name).reader(ctx)
		if err != nil {
			return nil, &ReadError{Provider: ProviderGCS, Err: err}
		}
		var record model.TestResult
		decodeErr := json.NewDecoder(reader).Decode(&record)
		reader.Close()
		if decodeErr != nil {
			s.logger.Warn().Err(decodeErr).Str("object", name).Msg("Skipping unparsable result object")
			continue
		}
		record.ObjectName = name
		record.ObjectID = strconv.FormatInt(attrs.Generation, 10)
		record.CreatedTime = attrs.Created
		records = append(records, record)
	}
	return records, nil
}

func (s *gcsStore) CleanupOldResults(ctx context.Context, daysToKeep int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)

	// Object names embed created_at millis, so the listing stops at the
	// cutoff millisecond natively. The parsed created_at decides what is
	// deleted, like on the other providers, so corrupt objects are
	// skipped rather than deleted on name alone.
	query := &storage.Query{
		Prefix:    s.keyPrefix(),
		EndOffset: s.keyPrefix() + nameUpperBound(cutoff),
	}
	records, err := s.scan(ctx, query)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, r := range records {
		if !r.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.bucket.object(s.keyPrefix() + r.ObjectName).delete(ctx); err != nil {
			s.logger.Warn().Err(err).Str("object", r.ObjectName).Msg("Failed to delete old result object")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *gcsStore) StorageInfo(ctx context.Context) (model.StorageInfo, error) {
	var info model.StorageInfo
	var oldest time.Time
	it := s.bucket.objects(ctx, &storage.Query{Prefix: s.keyPrefix()})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return model.StorageInfo{}, &ReadError{Provider: ProviderGCS, Err: err}
		}
		if !isResultObject(path.Base(attrs.Name)) {
			continue
		}
		info.TotalSize += attrs.Size
		info.FileCount++
		if oldest.IsZero() || attrs.Created.Before(oldest) {
			oldest = attrs.Created
		}
	}
	info.OldestFile = oldest
	info.TotalSizeMB = sizeMB(info.TotalSize)
	return info, nil
}

func (s *gcsStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
