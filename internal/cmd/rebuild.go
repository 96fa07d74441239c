package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"worklog-summary/internal/storage"
)

var rebuildTenant string

func NewRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rewrite markdown report files from the database",
		Long: `Rewrite every stored summary as a markdown file under storage.reports_path.
Files are overwritten with the database content, so manual edits made through
'summaries edit' or the API are reflected on disk.`,
		RunE: runRebuild,
	}
	cmd.Flags().StringVarP(&rebuildTenant, "tenant", "t", "", "Only rebuild this tenant (default: all tenants)")
	return cmd
}

func runRebuild(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Storage.ReportsPath == "" {
		return fmt.Errorf("storage.reports_path is not configured")
	}
	if err := a.cfg.Storage.EnsureReportsPath(); err != nil {
		return fmt.Errorf("failed to create reports path: %w", err)
	}
	manager := storage.NewStorageManager(a.cfg.Storage.ReportsPath)

	ctx := context.Background()
	tenants := []string{rebuildTenant}
	if rebuildTenant == "" {
		tenants, err = a.store.ListTenants(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tenants: %w", err)
		}
	}

	fmt.Fprintf(os.Stdout, "Rebuilding report files in %s\n", a.cfg.Storage.ReportsPath)
	written, failed := 0, 0
	for _, tenant := range tenants {
		summaries, err := a.store.ListSummaries(ctx, tenant, "")
		if err != nil {
			return fmt.Errorf("failed to list summaries for %s: %w", tenant, err)
		}
		for _, s := range summaries {
			path, err := manager.SaveSummary(s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %s %s: %v\n", tenant, s.Period().Key(), err)
				failed++
				continue
			}
			fmt.Fprintf(os.Stdout, "  %s\n", path)
			written++
		}
	}

	fmt.Fprintf(os.Stdout, "Wrote %d report file(s), %d failed.\n", written, failed)
	if failed > 0 {
		return fmt.Errorf("%d report file(s) could not be written", failed)
	}
	return nil
}
