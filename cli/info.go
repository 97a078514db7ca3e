package cli

// This file contains the cleanup, info and provider commands.

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func (a *App) cleanup(ctx *cli.Context) error {
	days := ctx.Int("days")
	if days <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	mgr, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	deleted, err := mgr.CleanupOldResults(ctx.Context, days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("Deleted %d result(s) older than %d days\n", deleted, days)
	return nil
}

func (a *App) info(ctx *cli.Context) error {
	mgr, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	provider := mgr.ProviderInfo()
	fmt.Printf("Provider: %s (%s)\n", provider.Name, provider.Type)
	fmt.Printf("  %s\n", provider.Description)

	storageInfo, err := mgr.StorageInfo(ctx.Context)
	if err != nil {
		return fmt.Errorf("failed to load storage info: %w", err)
	}
	fmt.Printf("\nObjects: %d\n", storageInfo.FileCount)
	fmt.Printf("Total size: %d bytes (%.2f MB)\n", storageInfo.TotalSize, storageInfo.TotalSizeMB)
	if !storageInfo.OldestFile.IsZero() {
		fmt.Printf("Oldest object: %s\n", storageInfo.OldestFile.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (a *App) providerInfo(ctx *cli.Context) error {
	mgr, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	provider := mgr.ProviderInfo()
	fmt.Printf("Provider: %s (%s)\n", provider.Name, provider.Type)
	fmt.Printf("  %s\n", provider.Description)
	return nil
}

func (a *App) providerSwitch(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return fmt.Errorf("no provider name specified")
	}

	mgr, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.SwitchProvider(ctx.Context, name); err != nil {
		// The previous provider stays active on a failed switch.
		return cli.Exit(fmt.Sprintf("Switch to %s failed: %v", name, err), 1)
	}

	provider := mgr.ProviderInfo()
	fmt.Printf("Switched to %s (%s)\n", provider.Name, provider.Type)
	return nil
}
