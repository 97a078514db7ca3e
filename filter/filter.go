// Package filter implements the residual in-memory filtering phase that
// every store runs after its provider-native phase. Running the full
// criteria set here keeps filtering semantics identical regardless of
// how much the active provider could push down.
package filter

import (
	"sort"
	"strings"

	"github.com/qadash/qadash/model"
)

// Apply returns the records matching every set criterion, in the order
// they were given.
func Apply(records []model.TestResult, c model.FilterCriteria) []model.TestResult {
	if c.IsZero() {
		return records
	}
	filtered := make([]model.TestResult, 0, len(records))
	for _, r := range records {
		if Matches(r, c) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Matches reports whether a single record satisfies the criteria.
// Unset fields impose no constraint; date bounds are inclusive.
func Matches(r model.TestResult, c model.FilterCriteria) bool {
	if c.StartDate != nil && r.CreatedAt.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && r.CreatedAt.After(*c.EndDate) {
		return false
	}
	if c.Status != "" && r.Status != c.Status {
		return false
	}
	if c.TeamMember != "" && r.TeamMemberName != c.TeamMember {
		return false
	}
	if c.Project != "" && r.ProjectName != c.Project {
		return false
	}
	if c.SearchTerm != "" && !MatchesTerm(r, c.SearchTerm) {
		return false
	}
	return true
}

// MatchesTerm reports whether the term occurs, case-insensitively, in
// the record's test name, team member name or project name.
func MatchesTerm(r model.TestResult, term string) bool {
	t := strings.ToLower(term)
	return strings.Contains(strings.ToLower(r.TestName), t) ||
		strings.Contains(strings.ToLower(r.TeamMemberName), t) ||
		strings.Contains(strings.ToLower(r.ProjectName), t)
}

// SortNewestFirst orders records by created_at descending. The object
// name breaks ties so repeated reads return a stable order.
func SortNewestFirst(records []model.TestResult) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ObjectName > records[j].ObjectName
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
