package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/qadash/qadash/config"
	"github.com/qadash/qadash/filter"
	"github.com/qadash/qadash/model"
)

// localStore persists records as JSON files in a directory. It is the
// fallback provider and must work with zero configuration.
type localStore struct {
	logger zerolog.Logger
	dir    string
}

func newLocalStore(logger zerolog.Logger, cfg config.LocalConfig) (*localStore, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(".", ".qadash", "results")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &localStore{logger: logger, dir: dir}, nil
}

func (s *localStore) Info() ProviderInfo {
	return ProviderInfo{
		Name:        "Local Filesystem",
		Type:        string(ProviderLocal),
		Description: fmt.Sprintf("Stores test results as JSON files under %s", s.dir),
	}
}

func (s *localStore) StoreTestResult(ctx context.Context, record model.TestResult) (model.StoredObject, error) {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	name := objectName(record.TestName, record.CreatedAt)
	data, err := json.Marshal(record)
	if err != nil {
		return model.StoredObject{}, &WriteError{Provider: ProviderLocal, Err: err}
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return model.StoredObject{}, &WriteError{Provider: ProviderLocal, Err: err}
	}
	return model.StoredObject{ID: objectID(name), Name: name, CreatedAt: now}, nil
}

func (s *localStore) GetTestResults(ctx context.Context, criteria model.FilterCriteria) ([]model.TestResult, error) {
	records, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	records = filter.Apply(records, criteria)
	filter.SortNewestFirst(records)
	return records, nil
}

func (s *localStore) SearchTestResults(ctx context.Context, term string) ([]model.TestResult, error) {
	return s.GetTestResults(ctx, model.FilterCriteria{SearchTerm: term})
}

// readAll loads every stored record. The filesystem has no native query
// capability, so all filtering is residual.
func (s *localStore) readAll(ctx context.Context) ([]model.TestResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &ReadError{Provider: ProviderLocal, Err: err}
	}
	records := make([]model.TestResult, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, &ReadError{Provider: ProviderLocal, Err: err}
		}
		if entry.IsDir() || !isResultObject(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, &ReadError{Provider: ProviderLocal, Err: err}
		}
		var record model.TestResult
		if err := json.Unmarshal(data, &record); err != nil {
			s.logger.Warn().Err(err).Str("object", entry.Name()).Msg("Skipping unparsable result object")
			continue
		}
		record.ObjectName = entry.Name()
		record.ObjectID = objectID(entry.Name())
		if info, err := entry.Info(); err == nil {
			record.CreatedTime = info.ModTime()
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *localStore) CleanupOldResults(ctx context.Context, daysToKeep int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	records, err := s.readAll(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, r := range records {
		if !r.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, r.ObjectName)); err != nil {
			s.logger.Warn().Err(err).Str("object", r.ObjectName).Msg("Failed to delete old result object")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *localStore) StorageInfo(ctx context.Context) (model.StorageInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return model.StorageInfo{}, &ReadError{Provider: ProviderLocal, Err: err}
	}
	var info model.StorageInfo
	var oldest time.Time
	for _, entry := range entries {
		if entry.IsDir() || !isResultObject(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		info.TotalSize += fi.Size()
		info.FileCount++
		if oldest.IsZero() || fi.ModTime().Before(oldest) {
			oldest = fi.ModTime()
		}
	}
	info.OldestFile = oldest
	info.TotalSizeMB = sizeMB(info.TotalSize)
	return info, nil
}

func (s *localStore) Close() error { return nil }
