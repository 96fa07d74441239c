package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sweepDaysBack int

func NewSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Generate missing summaries for recently closed weeks and months",
		RunE:  runSweep,
	}
	cmd.Flags().IntVar(&sweepDaysBack, "days-back", 0, "Look back this many days (default: schedule.days_back)")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withRedis(); err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	if err := a.withExecutor(); err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	daysBack := sweepDaysBack
	if daysBack <= 0 {
		daysBack = a.cfg.Schedule.DaysBack
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := a.executor.CheckAndFillMissingSummaries(ctx, daysBack)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Sweep finished: %s\n", report)
	return nil
}
