package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "worklog-summary",
		Short: "Worklog summary - periodic AI summaries of daily work logs",
		Long:  "Generates weekly and monthly AI summaries of work-log records, on record entry, on demand and by a catch-up sweep",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewDaemonCmd())
	rootCmd.AddCommand(NewRecordCmd())
	rootCmd.AddCommand(NewSummariesCmd())
	rootCmd.AddCommand(NewGenerateCmd())  // Manual weekly/monthly generation
	rootCmd.AddCommand(NewReportCmd())    // Ad-hoc date range report
	rootCmd.AddCommand(NewTriggerCmd())   // Debug: run the record-written trigger
	rootCmd.AddCommand(NewSweepCmd())     // Fill missing summaries for closed periods
	rootCmd.AddCommand(NewExportCmd())    // Export summaries to xlsx
	rootCmd.AddCommand(NewRebuildCmd())   // Rewrite markdown report files from the database
	rootCmd.AddCommand(NewValidateCmd())  // Check report files against the database
	rootCmd.AddCommand(NewCritiqueCmd())  // Weekly self-improvement review
	rootCmd.AddCommand(NewInsightCmd())   // Short daily tip

	return rootCmd
}
