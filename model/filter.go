package model

import "time"

// FilterCriteria is the common query shape accepted by all read
// operations. Every field is optional; the zero value matches every
// record. Date bounds are inclusive on created_at.
type FilterCriteria struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Status     Status
	TeamMember string
	Project    string
	SearchTerm string
}

// IsZero reports whether no criterion is set.
func (c FilterCriteria) IsZero() bool {
	return c.StartDate == nil && c.EndDate == nil &&
		c.Status == "" && c.TeamMember == "" && c.Project == "" && c.SearchTerm == ""
}
