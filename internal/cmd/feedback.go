package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"worklog-summary/internal/evaluator"
)

var (
	feedbackTenant  string
	critiqueRefresh bool
)

func NewCritiqueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "critique",
		Short: "Review the last seven days of work",
		Long:  "Ask the AI provider for a supervisor-style review of the tenant's last seven days of records. Critiques are cached for a day when redis is enabled.",
		RunE:  runCritique,
	}
	cmd.Flags().StringVarP(&feedbackTenant, "tenant", "t", "", "Tenant identifier")
	cmd.Flags().BoolVar(&critiqueRefresh, "refresh", false, "Ignore a cached critique")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func NewInsightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Get a short productivity tip from recent records",
		RunE:  runInsight,
	}
	cmd.Flags().StringVarP(&feedbackTenant, "tenant", "t", "", "Tenant identifier")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func runCritique(cmd *cobra.Command, args []string) error {
	return runFeedback(func(e *evaluator.Evaluator) (*evaluator.Feedback, error) {
		ctx, cancel := signalContext()
		defer cancel()
		return e.Critique(ctx, feedbackTenant, critiqueRefresh)
	})
}

func runInsight(cmd *cobra.Command, args []string) error {
	return runFeedback(func(e *evaluator.Evaluator) (*evaluator.Feedback, error) {
		ctx, cancel := signalContext()
		defer cancel()
		return e.Insight(ctx, feedbackTenant)
	})
}

func runFeedback(fn func(*evaluator.Evaluator) (*evaluator.Feedback, error)) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withRedis(); err != nil {
		// the cache is optional for feedback
		fmt.Fprintf(os.Stderr, "Warning: redis unavailable, continuing without cache: %v\n", err)
	}
	e, err := a.evaluator()
	if err != nil {
		return err
	}

	fb, err := fn(e)
	if err != nil {
		return err
	}
	if fb.Cached {
		fmt.Fprintf(os.Stdout, "(cached)\n")
	}
	fmt.Fprintf(os.Stdout, "%s\n", fb.Content)
	return nil
}
