package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"worklog-summary/internal/logger"
	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
)

const (
	placeholderGeminiKey = "your_gemini_api_key_here"
	defaultTimeout       = 2 * time.Minute

	ProviderMock     = "mock"
	ProviderFallback = "fallback"
)

// Result is generated summary content and where it came from.
type Result struct {
	Content     string
	GeneratedAt time.Time
	Provider    string
	Model       string
	Degraded    bool
}

// Source is the "provider/model" label stored with a summary.
func (r *Result) Source() string {
	if r.Model == "" {
		return r.Provider
	}
	return r.Provider + "/" + r.Model
}

// Completion is the raw text of one successful provider call.
type Completion struct {
	Text     string
	Provider string
	Model    string
}

// Settings configures a gateway from application config.
type Settings struct {
	Provider      string // "gemini" (default), "groq" or "mock"
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModels  []string
	GroqAPIKey    string
	GroqBaseURL   string
	GroqModel     string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
}

// Gateway tries the primary provider's model ladder, then the secondary provider.
// Every model is attempted at most once per call.
type Gateway struct {
	primary        Provider
	primaryModels  []string
	secondary      Provider
	secondaryModel string
	useMock        bool
	timeout        time.Duration
	now            func() time.Time
}

type Option func(*Gateway)

// WithPrimary sets the primary provider and its ordered model ladder.
func WithPrimary(p Provider, models ...string) Option {
	return func(g *Gateway) {
		g.primary = p
		g.primaryModels = models
	}
}

// WithSecondary sets the fallback provider and its single model.
func WithSecondary(p Provider, model string) Option {
	return func(g *Gateway) {
		g.secondary = p
		g.secondaryModel = model
	}
}

// WithTimeout bounds each provider attempt.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMock makes the gateway produce placeholder content without network calls.
func WithMock() Option {
	return func(g *Gateway) {
		g.useMock = true
	}
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.primary == nil {
		g.useMock = true
	}
	return g
}

// NewGatewayFromSettings wires Gemini with a Groq fallback. An empty or
// placeholder Gemini key selects the mock summarizer.
func NewGatewayFromSettings(s Settings) *Gateway {
	log := logger.WithModule("gateway")
	opts := []Option{WithTimeout(s.Timeout)}

	groqModel := s.GroqModel
	if groqModel == "" {
		groqModel = DefaultGroqModel
	}

	switch strings.ToLower(s.Provider) {
	case "mock":
		log.Info("Using mock AI service (provider set to mock)")
		opts = append(opts, WithMock())
	case "groq":
		if s.GroqAPIKey == "" {
			log.Info("Using mock AI service (Groq key not configured)")
			opts = append(opts, WithMock())
			break
		}
		opts = append(opts, WithPrimary(NewGroq(s.GroqAPIKey, s.GroqBaseURL, s.Temperature, s.MaxTokens), groqModel))
	default:
		if s.GeminiAPIKey == "" || s.GeminiAPIKey == placeholderGeminiKey {
			log.Info("Using mock AI service (Gemini key not configured)")
			opts = append(opts, WithMock())
			break
		}
		models := s.GeminiModels
		if len(models) == 0 {
			models = DefaultGeminiModels
		}
		opts = append(opts, WithPrimary(NewGemini(s.GeminiAPIKey, s.GeminiBaseURL, s.Temperature, s.MaxTokens), models...))
		if s.GroqAPIKey != "" {
			opts = append(opts, WithSecondary(NewGroq(s.GroqAPIKey, s.GroqBaseURL, s.Temperature, s.MaxTokens), groqModel))
		}
	}

	return NewGateway(opts...)
}

// UsesMock reports whether no real provider is configured.
func (g *Gateway) UsesMock() bool {
	return g.useMock
}

// Generate produces summary content for the period. Only Available records are
// sent to the model. Quota exhaustion yields degraded content listing every
// record instead of an error; any other failure returns ErrProviderUnavailable.
func (g *Gateway) Generate(ctx context.Context, p period.Period, records []*storage.Record) (*Result, error) {
	available := FilterAvailable(records)

	if g.useMock {
		return &Result{
			Content:     MockSummary(available),
			GeneratedAt: g.now().UTC(),
			Provider:    ProviderMock,
		}, nil
	}

	completion, err := g.Complete(ctx, BuildPrompt(p, available))
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			provider := g.primary.Name()
			var quotaErr *QuotaError
			if errors.As(err, &quotaErr) {
				provider = quotaErr.Provider
			}
			logger.WithModule("gateway").Warnf("Quota exceeded on %s for %s %s, returning raw log summary", provider, p.Type, p.Key())
			return &Result{
				Content:     DegradedSummary(records, provider),
				GeneratedAt: g.now().UTC(),
				Provider:    ProviderFallback,
				Degraded:    true,
			}, nil
		}
		return nil, err
	}

	return &Result{
		Content:     completion.Text,
		GeneratedAt: g.now().UTC(),
		Provider:    completion.Provider,
		Model:       completion.Model,
	}, nil
}

// Complete runs prompt through the fallback chain.
func (g *Gateway) Complete(ctx context.Context, prompt string) (*Completion, error) {
	if g.useMock {
		return nil, fmt.Errorf("%w: no AI provider configured", ErrProviderUnavailable)
	}

	log := logger.WithModule("gateway")
	var lastErr error
	quotaProvider := ""

	for _, model := range g.primaryModels {
		text, err := g.attempt(ctx, g.primary, model, prompt)
		if err == nil {
			log.Infof("Successfully used model: %s/%s", g.primary.Name(), model)
			return &Completion{Text: text, Provider: g.primary.Name(), Model: model}, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
		}
		log.Warnf("Model %s/%s failed (%s): %v", g.primary.Name(), model, getErrorType(err), firstLine(err))
		if IsQuotaError(err) {
			quotaProvider = g.primary.Name()
		}
		lastErr = err
	}

	if g.secondary != nil {
		log.Infof("Primary provider exhausted, falling back to %s/%s", g.secondary.Name(), g.secondaryModel)
		text, err := g.attempt(ctx, g.secondary, g.secondaryModel, prompt)
		if err == nil {
			return &Completion{Text: text, Provider: g.secondary.Name(), Model: g.secondaryModel}, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
		}
		log.Warnf("Fallback %s/%s failed (%s): %v", g.secondary.Name(), g.secondaryModel, getErrorType(err), firstLine(err))
		if IsQuotaError(err) {
			quotaProvider = g.secondary.Name()
		}
		lastErr = err
	}

	if quotaProvider != "" {
		return nil, &QuotaError{Provider: quotaProvider, Last: lastErr}
	}
	if lastErr == nil {
		return nil, fmt.Errorf("%w: no models configured", ErrProviderUnavailable)
	}
	return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

func (g *Gateway) attempt(ctx context.Context, p Provider, model, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return p.Complete(callCtx, model, prompt)
}

func firstLine(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
