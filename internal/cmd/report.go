package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"worklog-summary/internal/period"
)

var (
	reportTenant string
	reportFrom   string
	reportTo     string
	reportSave   bool
)

func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate an ad-hoc report for a date range",
		Long:  "Generate a report over any inclusive date range. Reports are printed and only stored with --save; stored range reports are not unique.",
		RunE:  runReport,
	}
	cmd.Flags().StringVarP(&reportTenant, "tenant", "t", "", "Tenant identifier")
	cmd.Flags().StringVar(&reportFrom, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&reportTo, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&reportSave, "save", false, "Store the report as a custom summary")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	from, err := period.ParseDay(reportFrom)
	if err != nil {
		return err
	}
	to, err := period.ParseDay(reportTo)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withExecutor(); err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(os.Stdout, "Generating report for %s from %s to %s...\n", reportTenant, reportFrom, reportTo)
	result, err := a.executor.GenerateRange(ctx, reportTenant, from, to, reportSave)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	printResult(result)
	return nil
}
