package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"worklog-summary/internal/period"
)

var (
	triggerTenant  string
	triggerDate    string
	triggerVerbose bool
)

func NewTriggerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Debug: run the record-written trigger for a date",
		Long:  "Debug command that behaves as if a record had just been written on --date: it queues the weekly and/or monthly generation for every period that date closes and waits for the queue to drain.",
		RunE:  runTrigger,
	}

	cmd.Flags().StringVarP(&triggerTenant, "tenant", "t", "", "Tenant identifier")
	cmd.Flags().StringVarP(&triggerDate, "date", "d", "", "Record date (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&triggerVerbose, "verbose", "v", false, "Enable verbose output for debugging")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runTrigger(cmd *cobra.Command, args []string) error {
	date, err := period.ParseDay(triggerDate)
	if err != nil {
		return err
	}

	closing := period.ClosingTypes(date)
	if triggerVerbose {
		fmt.Fprintf(os.Stdout, "[VERBOSE] %s closes: %v\n", triggerDate, closing)
	}
	if len(closing) == 0 {
		fmt.Fprintf(os.Stdout, "%s is not the last day of a week or month, nothing to do.\n", triggerDate)
		return nil
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if triggerVerbose {
		fmt.Fprintf(os.Stdout, "[VERBOSE] Config loaded: db_path=%s, provider=%s\n", a.cfg.Storage.DBPath, a.cfg.AI.Provider)
	}
	if err := a.withExecutor(); err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Triggering %v generation for %s...\n", closing, triggerTenant)
	a.executor.OnRecordWritten(triggerTenant, date)
	a.executor.Drain()

	for _, t := range closing {
		p, err := period.Compute(date, t)
		if err != nil {
			return err
		}
		summary, err := a.store.FindSummary(cmd.Context(), triggerTenant, t, p.Index, p.Year)
		if err != nil {
			return err
		}
		if summary == nil {
			fmt.Fprintf(os.Stdout, "  %s: no summary (no records or generation failed, see log)\n", p.Label())
			continue
		}
		fmt.Fprintf(os.Stdout, "  %s: %s (%s)\n", p.Label(), summary.ID, summary.Provider)
		if triggerVerbose {
			fmt.Fprintf(os.Stdout, "\n%s\n\n", summary.Content)
		}
	}
	return nil
}
