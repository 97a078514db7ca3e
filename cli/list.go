package cli

// This file contains the list and search commands for displaying
// stored test results.

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	criteria, err := criteriaFromFlags(ctx)
	if err != nil {
		return err
	}
	limit := ctx.Int("limit")

	mgr, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	records, err := mgr.GetTestResults(ctx.Context, criteria)
	if err != nil {
		return fmt.Errorf("failed to load test results: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No test results found")
		return nil
	}

	display := records
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Printf("\n=== Test results (%d total) ===\n\n", len(records))
	for _, r := range display {
		printRecord(r)
	}
	return nil
}

func (a *App) search(ctx *cli.Context) error {
	term := ctx.Args().First()
	if term == "" {
		return fmt.Errorf("no search term specified")
	}

	mgr, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	records, err := mgr.SearchTestResults(ctx.Context, term)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No test results found matching: %s\n", term)
		return nil
	}

	fmt.Printf("\n=== Search results for %q (%d total) ===\n\n", term, len(records))
	for _, r := range records {
		printRecord(r)
	}
	return nil
}
