package cli

// This file contains shared helpers for building the storage facade
// and translating command-line flags into filter criteria.

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/qadash/qadash/config"
	"github.com/qadash/qadash/metrics"
	"github.com/qadash/qadash/model"
	"github.com/qadash/qadash/store"
)

// openManager loads the configuration and initializes the storage
// facade, falling back to local storage when no provider is reachable.
func (a *App) openManager(ctx *cli.Context) (*store.Manager, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	return store.NewManager(ctx.Context, a.logger, cfg, metrics.New())
}

// criteriaFromFlags builds the filter criteria shared by the list and
// analytics commands.
func criteriaFromFlags(ctx *cli.Context) (model.FilterCriteria, error) {
	var criteria model.FilterCriteria
	if v := ctx.String("from"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return criteria, fmt.Errorf("invalid --from date: %w", err)
		}
		criteria.StartDate = &t
	}
	if v := ctx.String("to"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return criteria, fmt.Errorf("invalid --to date: %w", err)
		}
		criteria.EndDate = &t
	}
	criteria.Status = model.Status(ctx.String("status"))
	criteria.TeamMember = ctx.String("member")
	criteria.Project = ctx.String("project")
	criteria.SearchTerm = ctx.String("search")
	return criteria, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain date
// used as an upper bound covers the whole day, since the bound is
// inclusive.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// parseMetadata turns repeated key=value flags into the record's
// metadata document.
func parseMetadata(entries []string) (map[string]any, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	md := make(map[string]any, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid metadata entry %q, expected key=value", entry)
		}
		md[key] = value
	}
	return md, nil
}

func statusSymbol(s model.Status) string {
	switch s {
	case model.StatusPassed:
		return "✓"
	case model.StatusFailed:
		return "✗"
	case model.StatusSkipped:
		return "-"
	case model.StatusBlocked:
		return "!"
	}
	return "?"
}

// printRecord renders one result line for the list and search commands.
func printRecord(r model.TestResult) {
	timestamp := r.CreatedAt.Format("2006-01-02 15:04:05")
	fmt.Printf("%s  %s  %s  [%s]  time=%d\n",
		statusSymbol(r.Status), timestamp, r.TestName, r.Status, r.ExecutionTime)
	if r.ProjectName != "" || r.TeamMemberName != "" {
		fmt.Printf("   Project: %s  Member: %s\n", r.ProjectName, r.TeamMemberName)
	}
	if r.Framework != "" || r.Environment != "" {
		fmt.Printf("   Framework: %s  Environment: %s\n", r.Framework, r.Environment)
	}
	fmt.Printf("   Object: %s\n", r.ObjectName)
	fmt.Println()
}
