package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"worklog-summary/internal/period"
)

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show record and summary counts per tenant",
		RunE:  runStatus,
	}
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to query stats: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Worklog-summary Status\n")
	fmt.Fprintf(os.Stdout, "======================\n\n")
	if len(stats) == 0 {
		fmt.Fprintf(os.Stdout, "No tenants yet.\n")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s %8s %8s %8s %8s  %s\n", "TENANT", "RECORDS", "WEEKLY", "MONTHLY", "CUSTOM", "LAST RECORD")
	for _, s := range stats {
		last := "-"
		if !s.LastRecordDate.IsZero() {
			last = s.LastRecordDate.Format(period.DayLayout)
		}
		fmt.Fprintf(os.Stdout, "%-20s %8d %8d %8d %8d  %s\n",
			truncate(s.Tenant, 20), s.Records, s.WeeklySummaries, s.MonthlySummaries, s.CustomReports, last)
	}

	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
