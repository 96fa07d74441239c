package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"worklog-summary/internal/period"
)

var (
	summariesTenant  string
	summariesType    string
	summariesFull    bool
	summariesContent string
	summariesFile    string
)

func NewSummariesCmd() *cobra.Command {
	summariesCmd := &cobra.Command{
		Use:   "summaries",
		Short: "List, show or edit generated summaries",
	}
	summariesCmd.AddCommand(newSummariesListCmd())
	summariesCmd.AddCommand(newSummariesShowCmd())
	summariesCmd.AddCommand(newSummariesEditCmd())
	return summariesCmd
}

func newSummariesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's summaries, newest period first",
		RunE:  runSummariesList,
	}
	cmd.Flags().StringVarP(&summariesTenant, "tenant", "t", "", "Tenant identifier")
	cmd.Flags().StringVarP(&summariesType, "type", "p", "", "Period type (weekly, monthly, custom); empty lists all")
	cmd.Flags().BoolVar(&summariesFull, "full", false, "Print full content instead of the first line")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newSummariesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.store.GetSummary(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get summary %s: %w", args[0], err)
			}
			printSummary(s)
			return nil
		},
	}
}

func newSummariesEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a summary's content",
		Args:  cobra.ExactArgs(1),
		RunE:  runSummariesEdit,
	}
	cmd.Flags().StringVar(&summariesContent, "content", "", "New content")
	cmd.Flags().StringVarP(&summariesFile, "file", "f", "", "Read new content from a file")
	return cmd
}

func runSummariesList(cmd *cobra.Command, args []string) error {
	var t period.Type
	if summariesType != "" {
		parsed, err := period.ParseType(summariesType)
		if err != nil {
			return err
		}
		t = parsed
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summaries, err := a.store.ListSummaries(context.Background(), summariesTenant, t)
	if err != nil {
		return fmt.Errorf("failed to list summaries: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintf(os.Stdout, "No summaries found for %s\n", summariesTenant)
		return nil
	}

	for _, s := range summaries {
		if summariesFull {
			printSummary(s)
			fmt.Fprintln(os.Stdout)
			continue
		}
		marker := ""
		if s.Degraded {
			marker = " [degraded]"
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-8s %-22s %s%s\n", s.ID, s.Type, s.Period().Label(), truncate(firstLine(s.Content), 60), marker)
	}
	return nil
}

func runSummariesEdit(cmd *cobra.Command, args []string) error {
	content := summariesContent
	if summariesFile != "" {
		data, err := os.ReadFile(summariesFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", summariesFile, err)
		}
		content = string(data)
	}
	if content == "" {
		return fmt.Errorf("either --content or --file is required")
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.UpdateSummaryContent(context.Background(), args[0], content)
	if err != nil {
		return fmt.Errorf("failed to update summary %s: %w", args[0], err)
	}
	fmt.Fprintf(os.Stdout, "Summary %s (%s) updated.\n", s.ID, s.Period().Label())
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
