package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"worklog-summary/internal/export"
	"worklog-summary/internal/period"
)

var (
	exportTenant string
	exportType   string
	exportOut    string
)

func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a tenant's summaries to an xlsx workbook",
		RunE:  runExport,
	}
	cmd.Flags().StringVarP(&exportTenant, "tenant", "t", "", "Tenant identifier")
	cmd.Flags().StringVarP(&exportType, "type", "p", "", "Period type (weekly, monthly, custom); empty exports all")
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file or directory (default: current directory)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	var t period.Type
	if exportType != "" {
		parsed, err := period.ParseType(exportType)
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

	summaries, err := a.store.ListSummaries(context.Background(), exportTenant, t)
	if err != nil {
		return fmt.Errorf("failed to list summaries: %w", err)
	}

	buf, filename, err := export.Summaries(exportTenant, summaries)
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = filename
	} else if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, filename)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Fprintf(os.Stdout, "Exported %d summaries to %s\n", len(summaries), out)
	return nil
}
