package cli

// This file contains the analytics command.

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

func (a *App) analytics(ctx *cli.Context) error {
	criteria, err := criteriaFromFlags(ctx)
	if err != nil {
		return err
	}

	mgr, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	summary, err := mgr.GetAnalytics(ctx.Context, criteria)
	if err != nil {
		return fmt.Errorf("failed to compute analytics: %w", err)
	}

	fmt.Printf("\n=== Analytics (%d results) ===\n\n", summary.TotalTests)
	fmt.Printf("Passed:  %d\n", summary.PassedTests)
	fmt.Printf("Failed:  %d\n", summary.FailedTests)
	fmt.Printf("Skipped: %d\n", summary.SkippedTests)
	fmt.Printf("Blocked: %d\n", summary.BlockedTests)
	if summary.UnknownTests > 0 {
		fmt.Printf("Unknown: %d\n", summary.UnknownTests)
	}
	fmt.Printf("\nSuccess rate: %.2f%%\n", summary.SuccessRate)
	fmt.Printf("Avg execution time: %d\n", summary.AvgExecutionTime)
	if len(summary.Frameworks) > 0 {
		fmt.Printf("Frameworks: %s\n", strings.Join(summary.Frameworks, ", "))
	}
	if len(summary.Projects) > 0 {
		fmt.Printf("Projects: %s\n", strings.Join(summary.Projects, ", "))
	}
	if len(summary.TeamMembers) > 0 {
		fmt.Printf("Team members: %s\n", strings.Join(summary.TeamMembers, ", "))
	}
	return nil
}
