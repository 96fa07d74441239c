package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"worklog-summary/internal/storage"
)

var (
	validateFix     bool
	validateVerbose bool
)

func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate consistency between stored summaries and report files",
		Long: `Validate consistency between stored summaries and report files.
This command checks:
1. Whether every stored summary has its markdown file
2. Whether the file content matches the database
3. Whether report files exist with no stored summary

Use --fix to rewrite missing or stale files from the database. Orphan files are only reported.`,
		RunE: runValidate,
	}

	cmd.Flags().BoolVarP(&validateFix, "fix", "f", false, "Rewrite missing or stale report files")
	cmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "Show detailed validation results")

	return cmd
}

type validationResult struct {
	ok      int
	missing []string
	stale   []string
	orphans []string
	fixed   int
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Storage.ReportsPath == "" {
		return fmt.Errorf("storage.reports_path is not configured")
	}

	result, err := validateReports(context.Background(), a.store, a.cfg.Storage.ReportsPath, validateFix)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Validation Results\n")
	fmt.Fprintf(os.Stdout, "==================\n\n")
	fmt.Fprintf(os.Stdout, "Consistent: %d\n", result.ok)
	fmt.Fprintf(os.Stdout, "Missing files: %d\n", len(result.missing))
	fmt.Fprintf(os.Stdout, "Stale files: %d\n", len(result.stale))
	fmt.Fprintf(os.Stdout, "Orphan files: %d\n", len(result.orphans))
	if validateFix {
		fmt.Fprintf(os.Stdout, "Fixed: %d\n", result.fixed)
	}

	if validateVerbose {
		printPaths("Missing", result.missing)
		printPaths("Stale", result.stale)
		printPaths("Orphan", result.orphans)
	}
	return nil
}

func validateReports(ctx context.Context, st storage.StorageInterface, reportsPath string, fix bool) (*validationResult, error) {
	manager := storage.NewStorageManager(reportsPath)
	result := &validationResult{}
	expected := make(map[string]bool)

	tenants, err := st.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	for _, tenant := range tenants {
		summaries, err := st.ListSummaries(ctx, tenant, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list summaries for %s: %w", tenant, err)
		}
		for _, s := range summaries {
			rel, err := manager.PathFor(s)
			if err != nil {
				return nil, err
			}
			expected[rel] = true

			data, err := os.ReadFile(filepath.Join(reportsPath, rel))
			switch {
			case os.IsNotExist(err):
				result.missing = append(result.missing, rel)
			case err != nil:
				return nil, fmt.Errorf("failed to read %s: %w", rel, err)
			case string(data) != storage.RenderMarkdown(s):
				result.stale = append(result.stale, rel)
			default:
				result.ok++
				continue
			}

			if fix {
				if _, err := manager.SaveSummary(s); err != nil {
					return nil, fmt.Errorf("failed to rewrite %s: %w", rel, err)
				}
				result.fixed++
			}
		}
	}

	err = filepath.WalkDir(reportsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, err := filepath.Rel(reportsPath, path)
		if err != nil {
			return err
		}
		if !expected[rel] {
			result.orphans = append(result.orphans, rel)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to scan reports: %w", err)
	}

	return result, nil
}

func printPaths(label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(os.Stdout, "\n%s:\n", label)
	for _, p := range paths {
		fmt.Fprintf(os.Stdout, "  %s\n", p)
	}
}
