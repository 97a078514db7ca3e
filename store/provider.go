// Package store persists test result records to one of several backing
// stores behind a single interface. Every provider stores the same
// canonical JSON wire format, applies the same residual filter pass and
// returns records newest-first, so callers cannot tell which backend is
// active.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/qadash/qadash/config"
	"github.com/qadash/qadash/model"
)

// RecordStore is the capability set every storage provider implements.
type RecordStore interface {
	// StoreTestResult serializes the record to its canonical JSON form
	// and writes it as one immutably named object into the results
	// container.
	StoreTestResult(ctx context.Context, record model.TestResult) (model.StoredObject, error)
	// GetTestResults lists, downloads and parses stored records matching
	// the criteria, newest-first. Unparsable objects are skipped with a
	// warning.
	GetTestResults(ctx context.Context, criteria model.FilterCriteria) ([]model.TestResult, error)
	// SearchTestResults matches the term case-insensitively against test
	// name, team member and project name.
	SearchTestResults(ctx context.Context, term string) ([]model.TestResult, error)
	// CleanupOldResults deletes every record created before
	// now - daysToKeep days and returns the number deleted. Individual
	// delete failures are logged and do not abort the rest.
	CleanupOldResults(ctx context.Context, daysToKeep int) (int, error)
	// StorageInfo returns aggregate size and object count of the results
	// container.
	StorageInfo(ctx context.Context) (model.StorageInfo, error)
	// Info describes the provider.
	Info() ProviderInfo
	// Close releases provider resources (connections, clients).
	Close() error
}

// ProviderType identifies a storage provider implementation.
type ProviderType string

const (
	ProviderS3       ProviderType = "s3"
	ProviderGCS      ProviderType = "gcs"
	ProviderPostgres ProviderType = "postgres"
	ProviderLocal    ProviderType = "local"
)

func AllProviderTypes() []ProviderType {
	return []ProviderType{ProviderS3, ProviderGCS, ProviderPostgres, ProviderLocal}
}

// AllProviderTypesString returns the provider types separated by commas
// and wrapped in single quotes, for error messages and logs.
func AllProviderTypesString() string {
	types := AllProviderTypes()
	result := make([]string, len(types))
	for i, t := range types {
		result[i] = string(t)
	}
	if len(result) == 1 {
		return result[0]
	}
	return fmt.Sprintf("'%s' or '%s'", strings.Join(result[:len(result)-1], "', '"), result[len(result)-1])
}

// IsValid checks if the ProviderType value is valid.
func (p ProviderType) IsValid() bool {
	return slices.Contains(AllProviderTypes(), p)
}

// ProviderInfo describes the active provider to operators.
type ProviderInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// newStore creates a store for the given provider type.
func newStore(ctx context.Context, logger zerolog.Logger, providerType ProviderType, cfg config.Config) (RecordStore, error) {
	switch providerType {
	case ProviderS3:
		return newS3Store(ctx, logger, cfg.S3)
	case ProviderGCS:
		return newGCSStore(ctx, logger, cfg.GCS)
	case ProviderPostgres:
		return newPostgresStore(ctx, logger, cfg.Postgres)
	case ProviderLocal:
		return newLocalStore(logger, cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// indexableProperties returns the write-side object properties the
// cloud providers attach so stored objects can be inspected by status,
// owner, project or framework without downloading them.
func indexableProperties(r model.TestResult) map[string]string {
	return map[string]string{
		"status":      string(r.Status),
		"team-member": r.TeamMemberName,
		"project":     r.ProjectName,
		"framework":   r.Framework,
		"created-at":  r.CreatedAt.Format(time.RFC3339),
	}
}
