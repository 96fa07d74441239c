package cmd

import (
	"fmt"

	"worklog-summary/internal/analyzer"
	"worklog-summary/internal/config"
	"worklog-summary/internal/evaluator"
	"worklog-summary/internal/logger"
	"worklog-summary/internal/redis"
	"worklog-summary/internal/storage"
	"worklog-summary/internal/task"
)

// app holds the components a command needs. Fields are filled on demand.
type app struct {
	cfg      *config.Config
	store    *storage.Storage
	gateway  *analyzer.Gateway
	redis    *redis.Client
	executor *task.Executor
}

// loadApp loads config and opens storage.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Storage.EnsureDBPath(); err != nil {
		return nil, fmt.Errorf("failed to create db path: %w", err)
	}

	st, err := storage.NewStorage(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &app{cfg: cfg, store: st}, nil
}

// withGateway builds the AI gateway from the ai section.
func (a *app) withGateway() error {
	timeout, err := a.cfg.AI.GetTimeoutDuration()
	if err != nil {
		return fmt.Errorf("failed to parse ai timeout: %w", err)
	}
	a.gateway = analyzer.NewGatewayFromSettings(analyzer.Settings{
		Provider:      a.cfg.AI.Provider,
		GeminiAPIKey:  a.cfg.AI.GeminiAPIKey,
		GeminiBaseURL: a.cfg.AI.GeminiBaseURL,
		GeminiModels:  a.cfg.AI.GeminiModels,
		GroqAPIKey:    a.cfg.AI.GroqAPIKey,
		GroqBaseURL:   a.cfg.AI.GroqBaseURL,
		GroqModel:     a.cfg.AI.GroqModel,
		Temperature:   a.cfg.AI.Temperature,
		MaxTokens:     a.cfg.AI.MaxTokens,
		Timeout:       timeout,
	})
	return nil
}

// withRedis connects when redis is enabled; otherwise a.redis stays nil.
func (a *app) withRedis() error {
	if !a.cfg.Redis.Enabled {
		return nil
	}
	client, err := redis.NewClient(&a.cfg.Redis)
	if err != nil {
		return err
	}
	a.redis = client
	return nil
}

// withExecutor needs withGateway, and withRedis if the sweep should be guarded.
func (a *app) withExecutor() error {
	if a.gateway == nil {
		if err := a.withGateway(); err != nil {
			return err
		}
	}

	opts := []task.Option{task.WithDispatch(a.cfg.Dispatch.Workers, a.cfg.Dispatch.QueueSize)}
	if a.cfg.Storage.ReportsPath != "" {
		if err := a.cfg.Storage.EnsureReportsPath(); err != nil {
			return fmt.Errorf("failed to create reports path: %w", err)
		}
		opts = append(opts, task.WithReportWriter(storage.NewStorageManager(a.cfg.Storage.ReportsPath)))
	}
	if a.redis != nil {
		opts = append(opts, task.WithSweepGuard(a.redis))
	}

	a.executor = task.NewExecutor(a.store, a.gateway, opts...)
	return nil
}

// evaluator uses the redis cache when connected.
func (a *app) evaluator() (*evaluator.Evaluator, error) {
	if a.gateway == nil {
		if err := a.withGateway(); err != nil {
			return nil, err
		}
	}

	var opts []evaluator.Option
	if a.redis != nil {
		ttl, err := a.cfg.Redis.GetInsightTTLDuration()
		if err != nil {
			return nil, fmt.Errorf("failed to parse insight ttl: %w", err)
		}
		opts = append(opts, evaluator.WithCache(a.redis, ttl))
	}
	return evaluator.NewEvaluator(a.gateway, a.store, opts...), nil
}

func (a *app) Close() {
	if a.executor != nil {
		a.executor.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.GetLogger().Warnf("Failed to close redis: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.GetLogger().Warnf("Failed to close storage: %v", err)
		}
	}
}
