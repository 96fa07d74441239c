package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"worklog-summary/internal/analyzer"
	"worklog-summary/internal/logger"
	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
)

// ErrInvalidPeriodRequest is returned when a manual request cannot name a period.
var ErrInvalidPeriodRequest = errors.New("invalid period request")

// Status describes how a generation call ended.
type Status string

const (
	StatusCreated          Status = "created"
	StatusAlreadyGenerated Status = "already_generated"
	StatusNoData           Status = "no_data"
)

// GenerateResult carries the summary (nil for StatusNoData) and the outcome.
type GenerateResult struct {
	Summary *storage.Summary
	Status  Status
}

// RecordStore is the read side of the work log.
type RecordStore interface {
	FindRecords(ctx context.Context, tenant string, start, end time.Time) ([]*storage.Record, error)
	ListTenants(ctx context.Context) ([]string, error)
}

// SummaryRepository persists generated summaries.
type SummaryRepository interface {
	FindSummary(ctx context.Context, tenant string, t period.Type, index, year int) (*storage.Summary, error)
	InsertSummary(ctx context.Context, summary *storage.Summary) error
}

// Store is what the executor needs from storage.
type Store interface {
	RecordStore
	SummaryRepository
}

// SummaryGateway produces summary content for a period.
type SummaryGateway interface {
	Generate(ctx context.Context, p period.Period, records []*storage.Record) (*analyzer.Result, error)
}

// ReportWriter writes a created summary somewhere outside the database.
type ReportWriter interface {
	SaveSummary(summary *storage.Summary) (string, error)
}

type Executor struct {
	store      Store
	gateway    SummaryGateway
	reports    ReportWriter
	dispatcher *Dispatcher
	sweepGuard SweepGuard
	validate   *validator.Validate
	now        func() time.Time

	workers   int
	queueSize int
}

type Option func(*Executor)

// WithReportWriter enables markdown report files for created summaries.
func WithReportWriter(w ReportWriter) Option {
	return func(e *Executor) {
		e.reports = w
	}
}

// WithDispatch sizes the triggered-generation worker pool.
func WithDispatch(workers, queueSize int) Option {
	return func(e *Executor) {
		e.workers = workers
		e.queueSize = queueSize
	}
}

// WithSweepGuard makes the catch-up sweep take a lock first.
func WithSweepGuard(g SweepGuard) Option {
	return func(e *Executor) {
		e.sweepGuard = g
	}
}

// WithClock overrides the current time, used by the sweep.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

func NewExecutor(st Store, gateway SummaryGateway, opts ...Option) *Executor {
	e := &Executor{
		store:     st,
		gateway:   gateway,
		validate:  validator.New(),
		now:       time.Now,
		workers:   1,
		queueSize: 64,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.dispatcher = NewDispatcher(e.workers, e.queueSize, e.runJob)
	e.dispatcher.Start()
	return e
}

// Close stops the dispatcher after the queued jobs finish.
func (e *Executor) Close() {
	e.dispatcher.Stop()
}

// Drain blocks until every submitted job has been handled.
func (e *Executor) Drain() {
	e.dispatcher.Wait()
}

// OnRecordWritten queues generation for every period that closes on date.
// It never blocks the caller; the outcome is only logged.
func (e *Executor) OnRecordWritten(tenant string, date time.Time) {
	for _, t := range period.ClosingTypes(date) {
		job := Job{Tenant: tenant, Type: t, Date: date.UTC()}
		if err := e.dispatcher.Submit(job); err != nil {
			logger.WithModule("dispatcher").Warnf("Dropping %s summary for %s on %s: %v",
				t, tenant, job.Date.Format(period.DayLayout), err)
		}
	}
}

func (e *Executor) runJob(ctx context.Context, job Job) error {
	p, err := period.Compute(job.Date, job.Type)
	if err != nil {
		return err
	}

	result, err := e.GeneratePeriod(ctx, job.Tenant, p)
	if err != nil {
		return fmt.Errorf("failed to generate %s summary for %s: %w", p.Key(), job.Tenant, err)
	}

	log := logger.WithModule("dispatcher")
	switch result.Status {
	case StatusCreated:
		log.Infof("Generated %s summary %s for %s", job.Type, p.Key(), job.Tenant)
	case StatusAlreadyGenerated:
		log.Debugf("Summary %s for %s already exists", p.Key(), job.Tenant)
	case StatusNoData:
		log.Infof("No records for %s in %s, nothing generated", job.Tenant, p.Key())
	}
	return nil
}

// ManualRequest names a period either by Index+Year or by a Date inside it.
type ManualRequest struct {
	Tenant string      `json:"tenant" validate:"required"`
	Type   period.Type `json:"type" validate:"required,oneof=weekly monthly"`
	Index  int         `json:"index" validate:"min=0,max=53"`
	Year   int         `json:"year" validate:"min=0,max=9999"`
	Date   time.Time   `json:"date"`
}

// Resolve validates the request and returns the period it names.
func (e *Executor) Resolve(req ManualRequest) (period.Period, error) {
	if err := e.validate.Struct(req); err != nil {
		return period.Period{}, fmt.Errorf("%w: %v", ErrInvalidPeriodRequest, err)
	}

	if req.Date.IsZero() {
		if req.Year == 0 {
			return period.Period{}, fmt.Errorf("%w: year is required when no date is given", ErrInvalidPeriodRequest)
		}
		if req.Index == 0 {
			return period.Period{}, fmt.Errorf("%w: index is required when no date is given", ErrInvalidPeriodRequest)
		}
		p, err := period.FromIndex(req.Type, req.Index, req.Year)
		if err != nil {
			return period.Period{}, fmt.Errorf("%w: %v", ErrInvalidPeriodRequest, err)
		}
		return p, nil
	}

	p, err := period.Compute(req.Date, req.Type)
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: %v", ErrInvalidPeriodRequest, err)
	}
	if req.Year != 0 && req.Year != p.Year {
		return period.Period{}, fmt.Errorf("%w: year %d does not match date %s (period year %d)",
			ErrInvalidPeriodRequest, req.Year, req.Date.UTC().Format(period.DayLayout), p.Year)
	}
	if req.Index != 0 && req.Index != p.Index {
		return period.Period{}, fmt.Errorf("%w: index %d does not match date %s (period index %d)",
			ErrInvalidPeriodRequest, req.Index, req.Date.UTC().Format(period.DayLayout), p.Index)
	}
	return p, nil
}

// GenerateManual runs an on-demand generation. Errors are returned to the caller.
func (e *Executor) GenerateManual(ctx context.Context, req ManualRequest) (*GenerateResult, error) {
	p, err := e.Resolve(req)
	if err != nil {
		return nil, err
	}
	return e.GeneratePeriod(ctx, req.Tenant, p)
}

// GeneratePeriod creates the summary for tenant and p unless it already exists.
func (e *Executor) GeneratePeriod(ctx context.Context, tenant string, p period.Period) (*GenerateResult, error) {
	if p.Type != period.Weekly && p.Type != period.Monthly {
		return nil, fmt.Errorf("%w: %s periods are not stored per index", period.ErrInvalidPeriod, p.Type)
	}

	existing, err := e.store.FindSummary(ctx, tenant, p.Type, p.Index, p.Year)
	if err != nil {
		return nil, fmt.Errorf("failed to look up summary: %w", err)
	}
	if existing != nil {
		return &GenerateResult{Summary: existing, Status: StatusAlreadyGenerated}, nil
	}

	records, err := e.store.FindRecords(ctx, tenant, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		return &GenerateResult{Status: StatusNoData}, nil
	}

	res, err := e.gateway.Generate(ctx, p, analyzer.FilterAvailable(records))
	if err != nil {
		return nil, err
	}

	summary := newSummary(tenant, p, res)
	if err := e.store.InsertSummary(ctx, summary); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			winner, findErr := e.store.FindSummary(ctx, tenant, p.Type, p.Index, p.Year)
			if findErr != nil {
				return nil, fmt.Errorf("failed to load concurrent summary: %w", findErr)
			}
			if winner == nil {
				return nil, fmt.Errorf("summary %s for %s conflicted but was not found: %w", p.Key(), tenant, err)
			}
			logger.GetLogger().Infof("Summary %s for %s was generated concurrently, using existing one", p.Key(), tenant)
			return &GenerateResult{Summary: winner, Status: StatusAlreadyGenerated}, nil
		}
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}

	e.writeReport(summary)
	return &GenerateResult{Summary: summary, Status: StatusCreated}, nil
}

// GenerateRange builds an ad-hoc report for an arbitrary date range.
// Saved range reports are not unique; each call stores a new row.
func (e *Executor) GenerateRange(ctx context.Context, tenant string, from, to time.Time, save bool) (*GenerateResult, error) {
	if tenant == "" {
		return nil, fmt.Errorf("%w: tenant is required", ErrInvalidPeriodRequest)
	}
	p, err := period.Range(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriodRequest, err)
	}

	records, err := e.store.FindRecords(ctx, tenant, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		return &GenerateResult{Status: StatusNoData}, nil
	}

	res, err := e.gateway.Generate(ctx, p, analyzer.FilterAvailable(records))
	if err != nil {
		return nil, err
	}

	summary := newSummary(tenant, p, res)
	if !save {
		return &GenerateResult{Summary: summary, Status: StatusCreated}, nil
	}
	if err := e.store.InsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	e.writeReport(summary)
	return &GenerateResult{Summary: summary, Status: StatusCreated}, nil
}

func newSummary(tenant string, p period.Period, res *analyzer.Result) *storage.Summary {
	summary := storage.NewSummary(tenant, p, res.Content)
	summary.Provider = res.Source()
	summary.Degraded = res.Degraded
	summary.GeneratedAt = res.GeneratedAt
	return summary
}

func (e *Executor) writeReport(summary *storage.Summary) {
	if e.reports == nil {
		return
	}
	path, err := e.reports.SaveSummary(summary)
	if err != nil {
		logger.GetLogger().Warnf("Failed to write report file for %s: %v", summary.Period().Key(), err)
		return
	}
	logger.GetLogger().Debugf("Report file written: %s", path)
}
