package model

// AnalyticsSummary holds derived statistics over a set of test results.
// It is recomputed on every request and never persisted.
type AnalyticsSummary struct {
	TotalTests   int `json:"totalTests"`
	PassedTests  int `json:"passedTests"`
	FailedTests  int `json:"failedTests"`
	SkippedTests int `json:"skippedTests"`
	BlockedTests int `json:"blockedTests"`
	// Records whose status is outside the four enumerated values
	UnknownTests int `json:"unknownTests,omitempty"`
	// Percentage of passed tests, rounded to 2 decimal places (0 when empty)
	SuccessRate float64 `json:"successRate"`
	// Rounded integer mean of execution times (0 when empty)
	AvgExecutionTime int64 `json:"avgExecutionTime"`
	// Deduplicated, sorted dimension values seen in the input set
	Frameworks  []string `json:"frameworks"`
	Projects    []string `json:"projects"`
	TeamMembers []string `json:"teamMembers"`
}
