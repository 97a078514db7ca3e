package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/qadash/qadash/config"
	"github.com/qadash/qadash/filter"
	"github.com/qadash/qadash/model"
)

// s3API is the minimal interface for the S3 client required by s3Store.
// The AWS SDK already implements it; tests substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// s3Store persists records as JSON objects under a key prefix in an S3
// bucket. The prefix acts as the results container.
type s3Store struct {
	logger zerolog.Logger
	client s3API
	bucket string
	prefix string
}

func newS3Store(ctx context.Context, logger zerolog.Logger, cfg config.S3Config) (*s3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	store := newS3StoreWithClient(logger, s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix)

	// Probe the results container so missing credentials or an
	// unreachable bucket fail at initialization, not on first use.
	_, err = store.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(store.bucket),
		Prefix:  aws.String(store.keyPrefix()),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 bucket %q is not accessible: %w", store.bucket, err)
	}
	return store, nil
}

func newS3StoreWithClient(logger zerolog.Logger, client s3API, bucket, prefix string) *s3Store {
	return &s3Store{
		logger: logger,
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *s3Store) Info() ProviderInfo {
	return ProviderInfo{
		Name:        "AWS S3",
		Type:        string(ProviderS3),
		Description: fmt.Sprintf("Stores test results as JSON objects in s3://%s/%s", s.bucket, s.prefix),
	}
}

func (s *s3Store) keyPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

func (s *s3Store) StoreTestResult(ctx context.Context, record model.TestResult) (model.StoredObject, error) {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	name := objectName(record.TestName, record.CreatedAt)
	data, err := json.Marshal(record)
	if err != nil {
		return model.StoredObject{}, &WriteError{Provider: ProviderS3, Err: err}
	}
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.keyPrefix() + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    indexableProperties(record),
	})
	if err != nil {
		return model.StoredObject{}, &WriteError{Provider: ProviderS3, Err: err}
	}
	id := strings.Trim(aws.ToString(out.ETag), `"`)
	if id == "" {
		id = objectID(name)
	}
	return model.StoredObject{ID: id, Name: name, CreatedAt: now}, nil
}

func (s *s3Store) GetTestResults(ctx context.Context, criteria model.FilterCriteria) ([]model.TestResult, error) {
	records, err := s.scan(ctx, criteria)
	if err != nil {
		return nil, err
	}
	records = filter.Apply(records, criteria)
	filter.SortNewestFirst(records)
	return records, nil
}

func (s *s3Store) SearchTestResults(ctx context.Context, term string) ([]model.TestResult, error) {
	return s.GetTestResults(ctx, model.FilterCriteria{SearchTerm: term})
}

// scan lists candidate objects and downloads each one. The only
// criterion S3 can push down is a lexicographic lower key bound, which
// the timestamped object names support for the start date; everything
// else is left to the residual pass.
func (s *s3Store) scan(ctx context.Context, criteria model.FilterCriteria) ([]model.TestResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix()),
	}
	if criteria.StartDate != nil {
		input.StartAfter = aws.String(s.keyPrefix() + nameLowerBound(*criteria.StartDate))
	}

	var records []model.TestResult
	for {
		page, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, &ReadError{Provider: ProviderS3, Err: err}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := path.Base(key)
			if !isResultObject(name) {
				continue
			}
			out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, &ReadError{Provider: ProviderS3, Err: err}
			}
			data, err := io.ReadAll(out.Body)
			out.Body.Close()
			if err != nil {
				return nil, &ReadError{Provider: ProviderS3, Err: err}
			}
			var record model.TestResult
			if err := json.Unmarshal(data, &record); err != nil {
				s.logger.Warn().Err(err).Str("object", name).Msg("Skipping unparsable result object")
				continue
			}
			record.ObjectName = name
			record.ObjectID = strings.Trim(aws.ToString(obj.ETag), `"`)
			if record.ObjectID == "" {
				record.ObjectID = objectID(name)
			}
			if obj.LastModified != nil {
				record.CreatedTime = *obj.LastModified
			}
			records = append(records, record)
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		input.ContinuationToken = page.NextContinuationToken
	}
	return records, nil
}

func (s *s3Store) CleanupOldResults(ctx context.Context, daysToKeep int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	records, err := s.scan(ctx, model.FilterCriteria{})
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, r := range records {
		if !r.CreatedAt.Before(cutoff) {
			continue
		}
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.keyPrefix() + r.ObjectName),
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("object", r.ObjectName).Msg("Failed to delete old result object")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *s3Store) StorageInfo(ctx context.Context) (model.StorageInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix()),
	}
	var info model.StorageInfo
	var oldest time.Time
	for {
		page, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return model.StorageInfo{}, &ReadError{Provider: ProviderS3, Err: err}
		}
		for _, obj := range page.Contents {
			if !isResultObject(path.Base(aws.ToString(obj.Key))) {
				continue
			}
			info.TotalSize += aws.ToInt64(obj.Size)
			info.FileCount++
			if obj.LastModified != nil && (oldest.IsZero() || obj.LastModified.Before(oldest)) {
				oldest = *obj.LastModified
			}
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		input.ContinuationToken = page.NextContinuationToken
	}
	info.OldestFile = oldest
	info.TotalSizeMB = sizeMB(info.TotalSize)
	return info, nil
}

func (s *s3Store) Close() error { return nil }
