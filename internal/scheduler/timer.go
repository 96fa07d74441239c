package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"worklog-summary/internal/logger"
)

// Task is a scheduled job. The context is cancelled when the scheduler stops.
type Task func(ctx context.Context) error

type Scheduler interface {
	Start(task Task) error
	Stop() error
}

type FixedRateScheduler struct {
	name     string
	interval time.Duration
	ticker   *time.Ticker
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewFixedRateScheduler(name string, interval time.Duration) *FixedRateScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &FixedRateScheduler{
		name:     name,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *FixedRateScheduler) Start(task Task) error {
	if s.interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", s.interval)
	}
	s.ticker = time.NewTicker(s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ticker.C:
				run(s.ctx, s.name, task)
			case <-s.ctx.Done():
				return
			}
		}
	}()

	logger.WithModule("scheduler").Infof("Scheduled %s every %s", s.name, s.interval)
	return nil
}

// Stop cancels a running task and waits for it to return.
func (s *FixedRateScheduler) Stop() error {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.cancel()
	s.wg.Wait()
	return nil
}

type CronScheduler struct {
	name   string
	spec   string
	cron   *cron.Cron
	entry  cron.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCronScheduler accepts standard five-field specs and descriptors such as @daily.
// A run that is still going when the next one fires makes that one skip.
func NewCronScheduler(name, spec string) (*CronScheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &CronScheduler{
		name:   name,
		spec:   spec,
		cron:   c,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (s *CronScheduler) Start(task Task) error {
	entryID, err := s.cron.AddFunc(s.spec, func() {
		run(s.ctx, s.name, task)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec: %w", err)
	}

	s.entry = entryID
	s.cron.Start()
	logger.WithModule("scheduler").Infof("Scheduled %s with cron %q, next run at %s",
		s.name, s.spec, s.cron.Entry(entryID).Next.Format(time.RFC3339))
	return nil
}

func (s *CronScheduler) Stop() error {
	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	return nil
}

func run(ctx context.Context, name string, task Task) {
	start := time.Now()
	if err := task(ctx); err != nil {
		logger.WithModule("scheduler").Errorf("Scheduled task %s failed: %v", name, err)
		return
	}
	logger.WithModule("scheduler").Debugf("Scheduled task %s finished in %s", name, time.Since(start).Round(time.Millisecond))
}

// NewScheduler prefers cronSpec when both are given.
func NewScheduler(name, interval, cronSpec string) (Scheduler, error) {
	if cronSpec != "" {
		return NewCronScheduler(name, cronSpec)
	}

	if interval != "" {
		duration, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		return NewFixedRateScheduler(name, duration), nil
	}

	return nil, fmt.Errorf("either interval or cron must be specified")
}
