package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
	"worklog-summary/internal/task"
)

var (
	generateTenant string
	generateType   string
	generateIndex  int
	generateYear   int
	generateDate   string
)

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a weekly or monthly summary on demand",
		Long: `Generate the summary for one tenant and one period. The period is named either by
--index and --year (ISO week or month number) or by --date, any day inside it.
An existing summary is returned as-is; a period with no records generates nothing.`,
		RunE: runGenerate,
	}

	cmd.Flags().StringVarP(&generateTenant, "tenant", "t", "", "Tenant identifier")
	cmd.Flags().StringVarP(&generateType, "type", "p", "weekly", "Period type (weekly, monthly)")
	cmd.Flags().IntVarP(&generateIndex, "index", "i", 0, "ISO week (1-53) or month (1-12)")
	cmd.Flags().IntVarP(&generateYear, "year", "y", 0, "Year of the period (ISO week-year for weekly)")
	cmd.Flags().StringVarP(&generateDate, "date", "d", "", "Any date inside the period (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	t, err := period.ParseType(generateType)
	if err != nil {
		return err
	}
	req := task.ManualRequest{
		Tenant: generateTenant,
		Type:   t,
		Index:  generateIndex,
		Year:   generateYear,
	}
	if generateDate != "" {
		d, err := period.ParseDay(generateDate)
		if err != nil {
			return err
		}
		req.Date = d
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

	fmt.Fprintf(os.Stdout, "Generating %s summary for %s...\n", t, generateTenant)
	result, err := a.executor.GenerateManual(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to generate %s summary: %w", t, err)
	}
	printResult(result)
	return nil
}

func printResult(result *task.GenerateResult) {
	switch result.Status {
	case task.StatusNoData:
		fmt.Fprintf(os.Stdout, "No records found for this period, nothing generated.\n")
		return
	case task.StatusAlreadyGenerated:
		fmt.Fprintf(os.Stdout, "Summary already exists (generated %s).\n\n", result.Summary.GeneratedAt.Format(time.RFC3339))
	case task.StatusCreated:
		fmt.Fprintf(os.Stdout, "Summary generated.\n\n")
	}
	printSummary(result.Summary)
}

func printSummary(s *storage.Summary) {
	p := s.Period()
	fmt.Fprintf(os.Stdout, "%s (%s - %s)\n", p.Label(), s.StartDate.Format(period.DayLayout), s.EndDate.Format(period.DayLayout))
	if s.ID != "" {
		fmt.Fprintf(os.Stdout, "ID: %s\n", s.ID)
	}
	source := s.Provider
	if s.Degraded {
		source += " (degraded)"
	}
	fmt.Fprintf(os.Stdout, "Source: %s\n", source)
	fmt.Fprintf(os.Stdout, "================\n\n%s\n", s.Content)
}

// signalContext is cancelled on Ctrl+C so a long provider call can be aborted.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
