package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"worklog-summary/internal/logger"
	"worklog-summary/internal/scheduler"
	"worklog-summary/internal/server"
	"worklog-summary/internal/task"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the catch-up sweep scheduler",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
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
	advisor, err := a.evaluator()
	if err != nil {
		return fmt.Errorf("failed to create evaluator: %w", err)
	}

	var sweepSched scheduler.Scheduler
	if a.cfg.Schedule.Enabled {
		sweepSched, err = scheduler.NewScheduler("sweep", a.cfg.Schedule.Interval, a.cfg.Schedule.Cron)
		if err != nil {
			return fmt.Errorf("failed to create sweep scheduler: %w", err)
		}

		daysBack := a.cfg.Schedule.DaysBack
		sweepTask := func(ctx context.Context) error {
			report, err := a.executor.CheckAndFillMissingSummaries(ctx, daysBack)
			if errors.Is(err, task.ErrSweepLocked) {
				logger.GetLogger().Info("Sweep skipped, another instance holds the lock")
				return nil
			}
			if err != nil {
				return err
			}
			logger.GetLogger().Infof("Sweep finished: %s", report)
			return nil
		}

		if err := sweepSched.Start(sweepTask); err != nil {
			return fmt.Errorf("failed to start sweep scheduler: %w", err)
		}
		logger.GetLogger().Infof("Sweep scheduler started (interval: %s, cron: %s, days back: %d)",
			a.cfg.Schedule.Interval, a.cfg.Schedule.Cron, daysBack)
	}

	srv := server.New(&a.cfg.Server, a.store, a.executor, advisor)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	if a.gateway.UsesMock() {
		logger.GetLogger().Warn("No AI provider configured, summaries will use mock content")
	}
	logger.GetLogger().Info("Worklog-summary started. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
	case err := <-serveErr:
		if err != nil {
			logger.GetLogger().Errorf("HTTP server stopped: %v", err)
		}
	}

	logger.GetLogger().Info("Stopping...")
	if sweepSched != nil {
		if err := sweepSched.Stop(); err != nil {
			logger.GetLogger().Warnf("Failed to stop sweep scheduler: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	// queued triggered jobs finish in a.Close
	logger.GetLogger().Info("Stopped.")
	return nil
}
