package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"worklog-summary/internal/config"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE:  runConfig,
	}
	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Configuration\n")
	fmt.Fprintf(os.Stdout, "=============\n\n")
	fmt.Fprintf(os.Stdout, "AI:\n")
	fmt.Fprintf(os.Stdout, "  Provider: %s\n", cfg.AI.Provider)
	fmt.Fprintf(os.Stdout, "  Gemini API Key: %s\n", maskAPIKey(cfg.AI.GeminiAPIKey))
	if len(cfg.AI.GeminiModels) > 0 {
		fmt.Fprintf(os.Stdout, "  Gemini Models: %s\n", strings.Join(cfg.AI.GeminiModels, ", "))
	} else {
		fmt.Fprintf(os.Stdout, "  Gemini Models: (default ladder)\n")
	}
	fmt.Fprintf(os.Stdout, "  Groq API Key: %s\n", maskAPIKey(cfg.AI.GroqAPIKey))
	fmt.Fprintf(os.Stdout, "  Groq Model: %s\n", cfg.AI.GroqModel)
	fmt.Fprintf(os.Stdout, "  Timeout: %s\n", cfg.AI.Timeout)
	fmt.Fprintf(os.Stdout, "  Temperature: %.2f\n", cfg.AI.Temperature)
	fmt.Fprintf(os.Stdout, "  Max Tokens: %d\n", cfg.AI.MaxTokens)

	fmt.Fprintf(os.Stdout, "\nStorage:\n")
	fmt.Fprintf(os.Stdout, "  DB Path: %s\n", cfg.Storage.DBPath)
	fmt.Fprintf(os.Stdout, "  Reports Path: %s\n", valueOrNone(cfg.Storage.ReportsPath))
	fmt.Fprintf(os.Stdout, "  Log Path: %s\n", valueOrNone(cfg.Storage.LogPath))
	fmt.Fprintf(os.Stdout, "  Log Level: %s\n", cfg.Storage.Log.Level)

	fmt.Fprintf(os.Stdout, "\nDispatch:\n")
	fmt.Fprintf(os.Stdout, "  Workers: %d\n", cfg.Dispatch.Workers)
	fmt.Fprintf(os.Stdout, "  Queue Size: %d\n", cfg.Dispatch.QueueSize)

	fmt.Fprintf(os.Stdout, "\nSchedule:\n")
	fmt.Fprintf(os.Stdout, "  Enabled: %v\n", cfg.Schedule.Enabled)
	fmt.Fprintf(os.Stdout, "  Interval: %s\n", cfg.Schedule.Interval)
	fmt.Fprintf(os.Stdout, "  Cron: %s\n", cfg.Schedule.Cron)
	fmt.Fprintf(os.Stdout, "  Days Back: %d\n", cfg.Schedule.DaysBack)

	fmt.Fprintf(os.Stdout, "\nServer:\n")
	fmt.Fprintf(os.Stdout, "  Address: %s\n", cfg.Server.Address)
	if len(cfg.Server.CORSOrigins) > 0 {
		fmt.Fprintf(os.Stdout, "  CORS Origins: %s\n", strings.Join(cfg.Server.CORSOrigins, ", "))
	} else {
		fmt.Fprintf(os.Stdout, "  CORS Origins: (all)\n")
	}

	fmt.Fprintf(os.Stdout, "\nRedis:\n")
	fmt.Fprintf(os.Stdout, "  Enabled: %v\n", cfg.Redis.Enabled)
	if cfg.Redis.Enabled {
		fmt.Fprintf(os.Stdout, "  Address: %s\n", cfg.Redis.Address)
		fmt.Fprintf(os.Stdout, "  Password: %s\n", maskAPIKey(cfg.Redis.Password))
		fmt.Fprintf(os.Stdout, "  DB: %d\n", cfg.Redis.DB)
		fmt.Fprintf(os.Stdout, "  Insight TTL: %s\n", cfg.Redis.InsightTTL)
	}

	return nil
}

func maskAPIKey(key string) string {
	if len(key) == 0 {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
