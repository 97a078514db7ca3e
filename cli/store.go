package cli

// This file contains the store command for uploading a single test
// result record.

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/qadash/qadash/model"
)

func (a *App) store(ctx *cli.Context) error {
	var record model.TestResult

	if file := ctx.String("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read record file: %w", err)
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to parse record file: %w", err)
		}
	} else {
		if ctx.String("name") == "" || ctx.String("status") == "" {
			return fmt.Errorf("either --file or both --name and --status are required")
		}
		record = model.TestResult{
			TestName:       ctx.String("name"),
			Status:         model.Status(ctx.String("status")),
			ExecutionTime:  ctx.Int64("time"),
			Framework:      ctx.String("framework"),
			TeamMemberName: ctx.String("member"),
			ProjectName:    ctx.String("project"),
			Environment:    ctx.String("environment"),
		}
		if v := ctx.String("created-at"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return fmt.Errorf("invalid --created-at timestamp: %w", err)
			}
			record.CreatedAt = t
		}
		md, err := parseMetadata(ctx.StringSlice("metadata"))
		if err != nil {
			return err
		}
		record.Metadata = md
	}

	if record.ExecutionTime < 0 {
		return fmt.Errorf("execution time must be non-negative")
	}
	if !record.Status.IsValid() {
		// Stored as-is; analytics count it in the unknown bucket.
		a.logger.Warn().Str("status", string(record.Status)).Msg("Status is outside the known values")
	}

	mgr, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	obj, err := mgr.StoreTestResult(ctx.Context, record)
	if err != nil {
		return err
	}

	fmt.Printf("Stored %s (id=%s) via %s\n", obj.Name, obj.ID, mgr.ProviderInfo().Name)
	return nil
}
