package model

import "time"

// Status is the outcome of a single test execution.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusBlocked Status = "blocked"
)

// IsValid reports whether s is one of the four enumerated outcomes.
// Records carrying other values are still stored; analytics count them
// in a separate unknown bucket instead of dropping them.
func (s Status) IsValid() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped, StatusBlocked:
		return true
	}
	return false
}

// TestResult is one test execution's result plus metadata, the atomic
// unit of storage. The JSON shape below is the wire format every
// provider persists, byte-compatible across backends.
type TestResult struct {
	// Name of the test as reported by the uploading client
	TestName string `json:"test_name"`
	// Outcome (passed, failed, skipped or blocked)
	Status Status `json:"status"`
	// Execution time as a non-negative integer; the unit is fixed by the producer
	ExecutionTime int64 `json:"execution_time"`
	// Test framework that produced the result (e.g. "playwright")
	Framework string `json:"framework"`
	// Team member who ran or owns the test
	TeamMemberName string `json:"team_member_name"`
	// Project the test belongs to
	ProjectName string `json:"project_name"`
	// Environment the test ran against (e.g. "staging")
	Environment string `json:"environment"`
	// Timestamp of the test execution
	CreatedAt time.Time `json:"created_at"`
	// Free-form nested metadata (browser, device, tags, source location)
	Metadata map[string]any `json:"metadata,omitempty"`

	// Provider bookkeeping attached on read. Not part of the wire format.
	ObjectID    string    `json:"-"`
	ObjectName  string    `json:"-"`
	CreatedTime time.Time `json:"-"`
}

// StoredObject describes the object a store created for a record.
type StoredObject struct {
	ID        string    `json:"objectId"`
	Name      string    `json:"objectName"`
	CreatedAt time.Time `json:"createdAt"`
}

// StorageInfo summarizes the results container of the active provider.
type StorageInfo struct {
	// Total size of all stored objects in bytes
	TotalSize int64 `json:"totalSize"`
	// Number of stored objects
	FileCount int `json:"fileCount"`
	// Total size in megabytes, rounded to 2 decimal places
	TotalSizeMB float64 `json:"totalSizeMB"`
	// Creation time of the oldest stored object (zero when empty)
	OldestFile time.Time `json:"oldestFile,omitempty"`
}
