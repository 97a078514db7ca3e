package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/qadash/qadash/model"
)

type fakeS3Object struct {
	data         []byte
	lastModified time.Time
}

// fakeS3 is an in-memory s3API backed by a sorted key space, enough to
// exercise listing, pagination inputs and key-bound pushdown.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeS3Object
	puts    int
	lists   []s3.ListObjectsV2Input
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeS3Object{}}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.objects[aws.ToString(params.Key)] = fakeS3Object{data: data, lastModified: time.Now()}
	return &s3.PutObjectOutput{ETag: aws.String(fmt.Sprintf("%q", fmt.Sprintf("etag-%d", f.puts)))}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, fmt.Errorf("no such key %q", aws.ToString(params.Key))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, *params)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	prefix := aws.ToString(params.Prefix)
	startAfter := aws.ToString(params.StartAfter)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if startAfter != "" && k <= startAfter {
			continue
		}
		obj := f.objects[k]
		lm := obj.lastModified
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: &lm,
		})
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestS3Store(t *testing.T) (*s3Store, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	return newS3StoreWithClient(zerolog.Nop(), fake, "qadash-test", "test-results"), fake
}

func TestS3Store_RoundTrip(t *testing.T) {
	s, fake := newTestS3Store(t)
	record := model.TestResult{
		TestName:       "Login Test",
		Status:         model.StatusPassed,
		TeamMemberName: "Dana",
		ProjectName:    "Web Checkout",
		CreatedAt:      time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
	}

	obj, err := s.StoreTestResult(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, "etag-1", obj.ID)
	require.Contains(t, fake.objects, "test-results/"+obj.Name)

	records, err := s.GetTestResults(context.Background(), model.FilterCriteria{
		Status:     model.StatusPassed,
		TeamMember: "Dana",
		SearchTerm: "login",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Login Test", records[0].TestName)
	require.Equal(t, obj.Name, records[0].ObjectName)
	require.NotEmpty(t, records[0].ObjectID)

	records, err = s.GetTestResults(context.Background(), model.FilterCriteria{Status: model.StatusFailed})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestS3Store_StartDatePushdown(t *testing.T) {
	s, fake := newTestS3Store(t)
	base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{-48 * time.Hour, 0, 48 * time.Hour} {
		_, err := s.StoreTestResult(context.Background(), model.TestResult{
			TestName:  "Login Test",
			Status:    model.StatusPassed,
			CreatedAt: base.Add(offset),
		})
		require.NoError(t, err)
	}

	start := base.Add(-time.Hour)
	records, err := s.GetTestResults(context.Background(), model.FilterCriteria{StartDate: &start})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		require.False(t, r.CreatedAt.Before(start))
	}

	// The listing itself must carry the key bound so the old object is
	// never downloaded.
	last := fake.lists[len(fake.lists)-1]
	require.Equal(t, "test-results/"+nameLowerBound(start), aws.ToString(last.StartAfter))
}

func TestS3Store_SkipsCorruptObjects(t *testing.T) {
	s, fake := newTestS3Store(t)
	_, err := s.StoreTestResult(context.Background(), model.TestResult{TestName: "valid", Status: model.StatusPassed})
	require.NoError(t, err)
	fake.objects["test-results/test-result-0000000000000-corrupt-ffff.json"] = fakeS3Object{
		data:         []byte("this is not json"),
		lastModified: time.Now(),
	}
	fake.objects["test-results/notes.txt"] = fakeS3Object{data: []byte("hi"), lastModified: time.Now()}

	records, err := s.GetTestResults(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "valid", records[0].TestName)
}

func TestS3Store_CleanupDeletesOnlyOldRecords(t *testing.T) {
	s, fake := newTestS3Store(t)
	_, err := s.StoreTestResult(context.Background(), model.TestResult{
		TestName:  "old",
		Status:    model.StatusPassed,
		CreatedAt: time.Now().AddDate(0, 0, -100),
	})
	require.NoError(t, err)
	_, err = s.StoreTestResult(context.Background(), model.TestResult{
		TestName:  "fresh",
		Status:    model.StatusPassed,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	deleted, err := s.CleanupOldResults(context.Background(), 90)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.Len(t, fake.objects, 1)

	records, err := s.GetTestResults(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "fresh", records[0].TestName)
}

func TestS3Store_StorageInfo(t *testing.T) {
	s, _ := newTestS3Store(t)

	info, err := s.StorageInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, info.FileCount)

	_, err = s.StoreTestResult(context.Background(), model.TestResult{TestName: "a", Status: model.StatusPassed})
	require.NoError(t, err)
	_, err = s.StoreTestResult(context.Background(), model.TestResult{TestName: "b", Status: model.StatusFailed})
	require.NoError(t, err)

	info, err = s.StorageInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, info.FileCount)
	require.Greater(t, info.TotalSize, int64(0))
	require.False(t, info.OldestFile.IsZero())
}
