package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"worklog-summary/internal/analyzer"
	"worklog-summary/internal/logger"
	"worklog-summary/internal/storage"
)

const (
	fallbackCritique = "# Error\nCould not generate critique at this time."
	fallbackInsight  = "**Tip:** consistency is key! Log your work daily to see progress."
	noLogsCritique   = "# No Logs Found\nPlease add some work logs so I can analyze your performance!"

	critiqueWindow = 7 * 24 * time.Hour
	insightWindow  = 3 * 24 * time.Hour
	insightLimit   = 10

	defaultInsightTTL  = time.Hour
	defaultCritiqueTTL = 24 * time.Hour
)

// Completer runs a free-form prompt through the provider chain.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*analyzer.Completion, error)
}

// Store provides records and keeps generated critiques.
type Store interface {
	FindRecords(ctx context.Context, tenant string, start, end time.Time) ([]*storage.Record, error)
	FindLatestRecords(ctx context.Context, tenant string, limit int) ([]*storage.Record, error)
	SaveFeedback(ctx context.Context, feedback *storage.Feedback) error
	FindLatestFeedback(ctx context.Context, tenant string, since time.Time) (*storage.Feedback, error)
}

// Cache stores generated feedback between requests, in front of Store.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Feedback is critique or insight text for a tenant.
type Feedback struct {
	Tenant      string    `json:"tenant"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generatedAt"`
	Cached      bool      `json:"cached"`
	Fallback    bool      `json:"fallback"`
}

type Evaluator struct {
	completer   Completer
	store       Store
	cache       Cache
	insightTTL  time.Duration
	critiqueTTL time.Duration
	now         func() time.Time
}

type Option func(*Evaluator)

// WithCache keeps insights for insightTTL. Critiques are also cached for a day.
func WithCache(cache Cache, insightTTL time.Duration) Option {
	return func(e *Evaluator) {
		e.cache = cache
		if insightTTL > 0 {
			e.insightTTL = insightTTL
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

func NewEvaluator(completer Completer, store Store, opts ...Option) *Evaluator {
	e := &Evaluator{
		completer:   completer,
		store:       store,
		insightTTL:  defaultInsightTTL,
		critiqueTTL: defaultCritiqueTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Critique reviews the tenant's last seven days of records. A critique younger
// than a day is returned unless refresh is set.
func (e *Evaluator) Critique(ctx context.Context, tenant string, refresh bool) (*Feedback, error) {
	key := "worklog-summary:critique:" + tenant
	now := e.now().UTC()
	if !refresh {
		if fb := e.fromCache(ctx, tenant, key); fb != nil {
			return fb, nil
		}
		stored, err := e.store.FindLatestFeedback(ctx, tenant, now.Add(-e.critiqueTTL))
		if err != nil {
			return nil, fmt.Errorf("failed to load feedback: %w", err)
		}
		if stored != nil {
			return &Feedback{Tenant: tenant, Content: stored.Content, GeneratedAt: stored.GeneratedAt, Cached: true}, nil
		}
	}

	records, err := e.store.FindRecords(ctx, tenant, now.Add(-critiqueWindow), now)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		return &Feedback{Tenant: tenant, Content: noLogsCritique, GeneratedAt: now, Fallback: true}, nil
	}

	fb := e.complete(ctx, tenant, "critique", analyzer.CritiquePrompt(records), fallbackCritique)
	if fb.Fallback {
		return fb, nil
	}
	if err := e.store.SaveFeedback(ctx, &storage.Feedback{Tenant: tenant, Content: fb.Content, GeneratedAt: fb.GeneratedAt}); err != nil {
		logger.WithModule("evaluator").Warnf("Failed to save critique for %s: %v", tenant, err)
	}
	e.toCache(ctx, key, fb.Content, e.critiqueTTL)
	return fb, nil
}

// Insight returns a short productivity tip based on the last three days of
// records, or the latest ten records when there are none that recent.
func (e *Evaluator) Insight(ctx context.Context, tenant string) (*Feedback, error) {
	key := "worklog-summary:insight:" + tenant
	if fb := e.fromCache(ctx, tenant, key); fb != nil {
		return fb, nil
	}

	now := e.now().UTC()
	records, err := e.store.FindRecords(ctx, tenant, now.Add(-insightWindow), now)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) > insightLimit {
		records = records[len(records)-insightLimit:]
	}
	if len(records) == 0 {
		records, err = e.store.FindLatestRecords(ctx, tenant, insightLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load records: %w", err)
		}
	}

	fb := e.complete(ctx, tenant, "insight", analyzer.InsightPrompt(records), fallbackInsight)
	if !fb.Fallback {
		e.toCache(ctx, key, fb.Content, e.insightTTL)
	}
	return fb, nil
}

func (e *Evaluator) complete(ctx context.Context, tenant, kind, prompt, fallback string) *Feedback {
	fb := &Feedback{Tenant: tenant, GeneratedAt: e.now().UTC()}

	completion, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		logger.WithModule("evaluator").Warnf("AI %s failed for %s, using fallback text: %v", kind, tenant, err)
		fb.Content = fallback
		fb.Fallback = true
		return fb
	}

	fb.Content = strings.TrimSpace(completion.Text)
	return fb
}

func (e *Evaluator) fromCache(ctx context.Context, tenant, key string) *Feedback {
	if e.cache == nil {
		return nil
	}
	content, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		logger.WithModule("evaluator").Warnf("Cache read failed for %s: %v", key, err)
		return nil
	}
	if !ok {
		return nil
	}
	return &Feedback{Tenant: tenant, Content: content, GeneratedAt: e.now().UTC(), Cached: true}
}

func (e *Evaluator) toCache(ctx context.Context, key, content string, ttl time.Duration) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, content, ttl); err != nil {
		logger.WithModule("evaluator").Warnf("Cache write failed for %s: %v", key, err)
	}
}
