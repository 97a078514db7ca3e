package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/qadash/qadash/config"
	"github.com/qadash/qadash/filter"
	"github.com/qadash/qadash/model"
)

// postgresStore persists records as JSONB rows. The canonical wire
// format lives in the payload column; a handful of indexed columns
// serve as the provider-native query surface.
type postgresStore struct {
	logger zerolog.Logger
	db     *sql.DB
}

func newPostgresStore(ctx context.Context, logger zerolog.Logger, cfg config.PostgresConfig) (*postgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is not configured")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &postgresStore{logger: logger, db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the results table on first use, the relational
// equivalent of locating-or-creating the results container.
func (s *postgresStore) ensureSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS test_results (
    id SERIAL PRIMARY KEY,
    object_name TEXT NOT NULL UNIQUE,
    payload JSONB NOT NULL,
    test_name TEXT NOT NULL,
    status VARCHAR(50) NOT NULL,
    team_member TEXT NOT NULL DEFAULT '',
    project TEXT NOT NULL DEFAULT '',
    framework TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    stored_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_test_results_created_at ON test_results(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_test_results_status ON test_results(status);
CREATE INDEX IF NOT EXISTS idx_test_results_project ON test_results(project);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (s *postgresStore) Info() ProviderInfo {
	return ProviderInfo{
		Name:        "PostgreSQL",
		Type:        string(ProviderPostgres),
		Description: "Stores test results as JSONB rows in the test_results table",
	}
}

func (s *postgresStore) StoreTestResult(ctx context.Context, record model.TestResult) (model.StoredObject, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	name := objectName(record.TestName, record.CreatedAt)
	data, err := json.Marshal(record)
	if err != nil {
		return model.StoredObject{}, &WriteError{Provider: ProviderPostgres, Err: err}
	}

	query := `
		INSERT INTO test_results (object_name, payload, test_name, status, team_member, project, framework, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, stored_at
	`
	var id int
	var storedAt time.Time
	err = s.db.QueryRowContext(ctx, query,
		name, data, record.TestName, string(record.Status),
		record.TeamMemberName, record.ProjectName, record.Framework, record.CreatedAt,
	).Scan(&id, &storedAt)
	if err != nil {
		return model.StoredObject{}, &WriteError{Provider: ProviderPostgres, Err: err}
	}
	return model.StoredObject{ID: strconv.Itoa(id), Name: name, CreatedAt: storedAt}, nil
}

// buildResultsQuery translates the filter criteria into a native WHERE
// clause. Postgres can push down the full criteria surface, including
// the case-insensitive search, so the residual pass is a no-op here in
// practice; it still runs to keep semantics uniform across providers.
func buildResultsQuery(criteria model.FilterCriteria) (string, []any) {
	query := "SELECT id, object_name, payload, stored_at FROM test_results"
	var clauses []string
	var args []any
	add := func(format string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if criteria.StartDate != nil {
		add("created_at >= $%d", *criteria.StartDate)
	}
	if criteria.EndDate != nil {
		add("created_at <= $%d", *criteria.EndDate)
	}
	if criteria.Status != "" {
		add("status = $%d", string(criteria.Status))
	}
	if criteria.TeamMember != "" {
		add("team_member = $%d", criteria.TeamMember)
	}
	if criteria.Project != "" {
		add("project = $%d", criteria.Project)
	}
	if criteria.SearchTerm != "" {
		args = append(args, "%"+criteria.SearchTerm+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(test_name ILIKE $%d OR team_member ILIKE $%d OR project ILIKE $%d)", n, n, n))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, object_name DESC"
	return query, args
}

// decodeResultRow parses one row's JSONB payload into a record. A
// corrupt payload is skipped with a warning, like an unparsable object
// on the other providers.
func (s *postgresStore) decodeResultRow(id int, name string, payload []byte, storedAt time.Time) (model.TestResult, bool) {
	var record model.TestResult
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.Warn().Err(err).Str("object", name).Msg("Skipping unparsable result object")
		return model.TestResult{}, false
	}
	record.ObjectID = strconv.Itoa(id)
	record.ObjectName = name
	record.CreatedTime = storedAt
	return record, true
}

func (s *postgresStore) GetTestResults(ctx context.Context, criteria model.FilterCriteria) ([]model.TestResult, error) {
	query, args := buildResultsQuery(criteria)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ReadError{Provider: ProviderPostgres, Err: err}
	}
	defer rows.Close()

	var records []model.TestResult
	for rows.Next() {
		var id int
		var name string
		var payload []byte
		var storedAt time.Time
		if err := rows.Scan(&id, &name, &payload, &storedAt); err != nil {
			return nil, &ReadError{Provider: ProviderPostgres, Err: err}
		}
		record, ok := s.decodeResultRow(id, name, payload, storedAt)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &ReadError{Provider: ProviderPostgres, Err: err}
	}

	records = filter.Apply(records, criteria)
	filter.SortNewestFirst(records)
	return records, nil
}

func (s *postgresStore) SearchTestResults(ctx context.Context, term string) ([]model.TestResult, error) {
	return s.GetTestResults(ctx, model.FilterCriteria{SearchTerm: term})
}

func (s *postgresStore) CleanupOldResults(ctx context.Context, daysToKeep int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	res, err := s.db.ExecContext(ctx, "DELETE FROM test_results WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, &WriteError{Provider: ProviderPostgres, Err: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &WriteError{Provider: ProviderPostgres, Err: err}
	}
	return int(deleted), nil
}

func (s *postgresStore) StorageInfo(ctx context.Context) (model.StorageInfo, error) {
	query := "SELECT COALESCE(SUM(octet_length(payload::text)), 0), COUNT(*), MIN(stored_at) FROM test_results"
	var info model.StorageInfo
	var oldest sql.NullTime
	if err := s.db.QueryRowContext(ctx, query).Scan(&info.TotalSize, &info.FileCount, &oldest); err != nil {
		return model.StorageInfo{}, &ReadError{Provider: ProviderPostgres, Err: err}
	}
	if oldest.Valid {
		info.OldestFile = oldest.Time
	}
	info.TotalSizeMB = sizeMB(info.TotalSize)
	return info, nil
}

func (s *postgresStore) Close() error { return s.db.Close() }
