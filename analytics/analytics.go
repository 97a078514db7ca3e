// Package analytics computes derived statistics over retrieved result
// sets. Aggregate is the single implementation shared by every storage
// provider, so summaries are identical no matter which backend served
// the records.
package analytics

import (
	"math"
	"sort"

	"github.com/qadash/qadash/model"
)

// Aggregate computes an AnalyticsSummary from a record set. It is pure:
// the same input list always yields the same summary, and an empty
// input yields a zeroed summary with empty (non-nil) dimension lists.
func Aggregate(records []model.TestResult) model.AnalyticsSummary {
	summary := model.AnalyticsSummary{
		Frameworks:  []string{},
		Projects:    []string{},
		TeamMembers: []string{},
	}
	if len(records) == 0 {
		return summary
	}

	var totalTime int64
	frameworks := make(map[string]struct{})
	projects := make(map[string]struct{})
	members := make(map[string]struct{})

	for _, r := range records {
		summary.TotalTests++
		switch r.Status {
		case model.StatusPassed:
			summary.PassedTests++
		case model.StatusFailed:
			summary.FailedTests++
		case model.StatusSkipped:
			summary.SkippedTests++
		case model.StatusBlocked:
			summary.BlockedTests++
		default:
			summary.UnknownTests++
		}
		totalTime += r.ExecutionTime
		if r.Framework != "" {
			frameworks[r.Framework] = struct{}{}
		}
		if r.ProjectName != "" {
			projects[r.ProjectName] = struct{}{}
		}
		if r.TeamMemberName != "" {
			members[r.TeamMemberName] = struct{}{}
		}
	}

	rate := float64(summary.PassedTests) / float64(summary.TotalTests) * 100
	summary.SuccessRate = math.Round(rate*100) / 100
	summary.AvgExecutionTime = int64(math.Round(float64(totalTime) / float64(summary.TotalTests)))

	summary.Frameworks = sortedKeys(frameworks)
	summary.Projects = sortedKeys(projects)
	summary.TeamMembers = sortedKeys(members)
	return summary
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
