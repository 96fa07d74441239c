package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewScheduler(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		cron     string
		wantCron bool
		wantErr  bool
	}{
		{name: "interval", interval: "1h"},
		{name: "cron wins", interval: "1h", cron: "0 1 * * *", wantCron: true},
		{name: "descriptor", cron: "@weekly", wantCron: true},
		{name: "bad interval", interval: "often", wantErr: true},
		{name: "bad cron", cron: "at noon", wantErr: true},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler("sweep", tt.interval, tt.cron)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewScheduler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			_, isCron := s.(*CronScheduler)
			if isCron != tt.wantCron {
				t.Errorf("NewScheduler() cron = %v, want %v", isCron, tt.wantCron)
			}
		})
	}
}

func TestFixedRateScheduler_RunsAndStops(t *testing.T) {
	var runs int32
	s := NewFixedRateScheduler("test", 10*time.Millisecond)
	err := s.Start(func(ctx context.Context) error {
		if atomic.AddInt32(&runs, 1) == 2 {
			return errors.New("second run fails")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&runs) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	after := atomic.LoadInt32(&runs)
	if after < 3 {
		t.Fatalf("expected the task to keep running after an error, got %d runs", after)
	}
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != after {
		t.Errorf("task ran after Stop: %d -> %d", after, got)
	}
}

func TestFixedRateScheduler_StopCancelsRunningTask(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	s := NewFixedRateScheduler("slow", 5*time.Millisecond)
	var once int32
	_ = s.Start(func(ctx context.Context) error {
		if !atomic.CompareAndSwapInt32(&once, 0, 1) {
			return nil
		}
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	<-started
	_ = s.Stop()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running task was not cancelled by Stop")
	}
}

func TestFixedRateScheduler_RejectsZeroInterval(t *testing.T) {
	s := NewFixedRateScheduler("zero", 0)
	if err := s.Start(func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
