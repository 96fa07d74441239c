package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"worklog-summary/internal/logger"
	"worklog-summary/internal/period"
)

var (
	ErrQueueFull         = errors.New("dispatch queue full")
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

// Job asks for the summary of the period of Type containing Date.
type Job struct {
	Tenant string
	Type   period.Type
	Date   time.Time
}

// JobFunc handles one job. Its error is logged, never returned to the submitter.
type JobFunc func(ctx context.Context, job Job) error

// Dispatcher runs jobs on a fixed set of workers fed by a bounded queue.
// Submit never blocks; a full queue drops the job.
type Dispatcher struct {
	jobs    chan Job
	handle  JobFunc
	workers int

	mu      sync.RWMutex
	closed  bool
	started bool

	workerWg  sync.WaitGroup
	pendingWg sync.WaitGroup
}

func NewDispatcher(workers, queueSize int, handle JobFunc) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		jobs:    make(chan Job, queueSize),
		handle:  handle,
		workers: workers,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.workerWg.Add(1)
		go d.work(i)
	}
}

// Submit enqueues job. It fails with ErrQueueFull or ErrDispatcherStopped
// when the job is not accepted.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherStopped
	}

	d.pendingWg.Add(1)
	select {
	case d.jobs <- job:
		return nil
	default:
		d.pendingWg.Done()
		return ErrQueueFull
	}
}

// Wait blocks until every accepted job has been handled.
func (d *Dispatcher) Wait() {
	d.pendingWg.Wait()
}

// Stop refuses new jobs, lets the workers finish the queue and waits for them.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.workerWg.Wait()
}

func (d *Dispatcher) work(id int) {
	defer d.workerWg.Done()
	log := logger.WithModule("dispatcher").WithField("worker", id)

	for job := range d.jobs {
		if err := d.run(job); err != nil {
			log.Errorf("Job %s/%s/%s failed: %v", job.Tenant, job.Type, job.Date.Format(period.DayLayout), err)
		}
		d.pendingWg.Done()
	}
}

func (d *Dispatcher) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return d.handle(context.Background(), job)
}
