package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
)

// stubProvider answers per model from a fixed table and records every call.
type stubProvider struct {
	name    string
	replies map[string]error
	text    string

	mu    sync.Mutex
	calls []string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, model)
	s.mu.Unlock()
	if err, ok := s.replies[model]; ok && err != nil {
		return "", err
	}
	return s.text, nil
}

func (s *stubProvider) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func weekOne(t *testing.T) period.Period {
	t.Helper()
	p, err := period.FromIndex(period.Weekly, 1, 2024)
	require.NoError(t, err)
	return p
}

func sampleRecords() []*storage.Record {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*storage.Record{
		{Tenant: "alice", Date: day, Status: storage.StatusAvailable, Project: "Billing", Task: "Invoice export"},
		{Tenant: "alice", Date: day.AddDate(0, 0, 1), Status: storage.StatusLeave},
		{Tenant: "alice", Date: day.AddDate(0, 0, 2), Status: storage.StatusAvailable, Project: "Billing", Task: "Tax rules"},
	}
}

func quotaErr(model string) error {
	return &APIError{Provider: "gemini", Model: model, StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}
}

func TestGateway_FirstModelSucceeds(t *testing.T) {
	primary := &stubProvider{name: "gemini", text: "weekly report"}
	g := NewGateway(WithPrimary(primary, "m1", "m2"))

	res, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "weekly report", res.Content)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, "m1", res.Model)
	assert.Equal(t, "gemini/m1", res.Source())
	assert.False(t, res.Degraded)
	assert.Equal(t, []string{"m1"}, primary.Calls())
}

func TestGateway_WalksLadderInOrder(t *testing.T) {
	primary := &stubProvider{
		name: "gemini",
		text: "from m3",
		replies: map[string]error{
			"m1": &APIError{Provider: "gemini", Model: "m1", StatusCode: 404, Message: "not found"},
			"m2": errors.New("failed to send request: dial tcp: connection refused"),
		},
	}
	g := NewGateway(WithPrimary(primary, "m1", "m2", "m3", "m4"))

	res, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "m3", res.Model)
	assert.Equal(t, []string{"m1", "m2", "m3"}, primary.Calls())
}

func TestGateway_SecondaryAfterPrimaryExhausted(t *testing.T) {
	primary := &stubProvider{
		name:    "gemini",
		replies: map[string]error{"m1": quotaErr("m1"), "m2": quotaErr("m2")},
	}
	secondary := &stubProvider{name: "groq", text: "groq report"}
	g := NewGateway(WithPrimary(primary, "m1", "m2"), WithSecondary(secondary, DefaultGroqModel))

	res, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "groq report", res.Content)
	assert.Equal(t, "groq", res.Provider)
	assert.False(t, res.Degraded)
	assert.Equal(t, []string{"m1", "m2"}, primary.Calls())
	assert.Equal(t, []string{DefaultGroqModel}, secondary.Calls())
}

func TestGateway_QuotaEverywhereDegrades(t *testing.T) {
	primary := &stubProvider{
		name: "gemini",
		replies: map[string]error{
			"m1": quotaErr("m1"),
			"m2": &APIError{Provider: "gemini", Model: "m2", StatusCode: 500, Message: "boom"},
		},
	}
	secondary := &stubProvider{
		name:    "groq",
		replies: map[string]error{DefaultGroqModel: &APIError{Provider: "groq", StatusCode: 503, Message: "down"}},
	}
	fixed := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	g := NewGateway(
		WithPrimary(primary, "m1", "m2"),
		WithSecondary(secondary, DefaultGroqModel),
		WithClock(func() time.Time { return fixed }),
	)

	res, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, ProviderFallback, res.Provider)
	assert.Equal(t, fixed, res.GeneratedAt)
	assert.Contains(t, res.Content, "# AI Report Generation Unavailable")
	assert.Contains(t, res.Content, "check your Gemini account")
	assert.Contains(t, res.Content, "Summary of Logs (3 entries)")
	assert.Contains(t, res.Content, "Invoice export")
	assert.Contains(t, res.Content, "**Status:** Leave")
}

func TestGateway_DegradedNamesProviderThatHitQuota(t *testing.T) {
	primary := &stubProvider{
		name:    "gemini",
		replies: map[string]error{"m1": &APIError{Provider: "gemini", Model: "m1", StatusCode: 500, Message: "boom"}},
	}
	secondary := &stubProvider{
		name:    "groq",
		replies: map[string]error{DefaultGroqModel: &APIError{Provider: "groq", StatusCode: 429, Message: "rate limit reached"}},
	}
	g := NewGateway(WithPrimary(primary, "m1"), WithSecondary(secondary, DefaultGroqModel))

	_, err := g.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	var quotaErr *QuotaError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, "groq", quotaErr.Provider)

	res, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Content, "check your Groq account")
	assert.NotContains(t, res.Content, "Gemini")
}

func TestGateway_NonQuotaFailureIsUnavailable(t *testing.T) {
	primary := &stubProvider{
		name: "gemini",
		replies: map[string]error{
			"m1": &APIError{Provider: "gemini", StatusCode: 401, Message: "bad key"},
			"m2": &APIError{Provider: "gemini", StatusCode: 404, Message: "no model"},
		},
	}
	g := NewGateway(WithPrimary(primary, "m1", "m2"))

	res, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
	assert.Equal(t, []string{"m1", "m2"}, primary.Calls())
}

func TestGateway_CancelledContextStopsLadder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &cancelingProvider{cancel: cancel}
	g := NewGateway(WithPrimary(primary, "m1", "m2", "m3"))

	_, err := g.Generate(ctx, weekOne(t), sampleRecords())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, primary.calls)
}

type cancelingProvider struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelingProvider) Name() string { return "gemini" }

func (c *cancelingProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	c.calls++
	c.cancel()
	return "", ctx.Err()
}

func TestGateway_PerAttemptTimeout(t *testing.T) {
	slow := &slowProvider{delay: time.Second}
	g := NewGateway(WithPrimary(slow, "m1"), WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

type slowProvider struct {
	delay time.Duration
}

func (s *slowProvider) Name() string { return "gemini" }

func (s *slowProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	select {
	case <-time.After(s.delay):
		return "late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestGateway_MockWithoutKey(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{name: "empty key", settings: Settings{}},
		{name: "placeholder key", settings: Settings{GeminiAPIKey: "your_gemini_api_key_here"}},
		{name: "explicit mock", settings: Settings{Provider: "mock", GeminiAPIKey: "real"}},
		{name: "groq without key", settings: Settings{Provider: "groq"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGatewayFromSettings(tt.settings)
			assert.True(t, g.UsesMock())

			res, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
			require.NoError(t, err)
			assert.Equal(t, ProviderMock, res.Provider)
			assert.True(t, strings.HasPrefix(res.Content, "Mock Summary for 2 logs."))
			assert.Contains(t, res.Content, "- Demonstrated progress on Billing.")
			assert.Contains(t, res.Content, "- Tax rules")
		})
	}
}

func TestGateway_MockCompleteIsUnavailable(t *testing.T) {
	g := NewGateway(WithMock())
	_, err := g.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestGateway_GeminiThenGroqOverHTTP(t *testing.T) {
	var geminiModels []string
	var mu sync.Mutex
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		geminiModels = append(geminiModels, r.URL.Path)
		mu.Unlock()
		assert.Equal(t, "gem-key", r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer gemini.Close()

	groq := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultGroqModel, req.Model)
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, 2048, req.MaxTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "You are a helpful internship supervisor assistant.", req.Messages[0].Content)
			assert.Contains(t, req.Messages[1].Content, "Weekly Report")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  groq weekly  "}}]}`))
	}))
	defer groq.Close()

	g := NewGatewayFromSettings(Settings{
		GeminiAPIKey:  "gem-key",
		GeminiBaseURL: gemini.URL,
		GeminiModels:  []string{"gemini-a", "gemini-b"},
		GroqAPIKey:    "groq-key",
		GroqBaseURL:   groq.URL,
		Timeout:       5 * time.Second,
	})
	require.False(t, g.UsesMock())

	res, err := g.Generate(context.Background(), weekOne(t), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "groq weekly", res.Content)
	assert.Equal(t, "groq", res.Provider)
	assert.Equal(t, []string{"/models/gemini-a:generateContent", "/models/gemini-b:generateContent"}, geminiModels)
}

func TestGemini_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Contents, 1) {
			assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi "},{"text":"there"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	text, err := NewGemini("k", server.URL, 0, 0).Complete(context.Background(), "gemini-pro", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
}

func TestGemini_BlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	_, err := NewGemini("k", server.URL, 0, 0).Complete(context.Background(), "gemini-pro", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: quotaErr("m"), want: "rate_limit"},
		{err: &APIError{StatusCode: 400, Message: "bad"}, want: "bad_request"},
		{err: &APIError{StatusCode: 403, Message: "denied"}, want: "unauthorized"},
		{err: &APIError{StatusCode: 404, Message: "missing"}, want: "model_not_found"},
		{err: &APIError{StatusCode: 503, Message: "later"}, want: "service_unavailable"},
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: errors.New("dial tcp 127.0.0.1:1: connection refused"), want: "connection_failed"},
		{err: errors.New("something else"), want: "other_error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, getErrorType(tt.err))
		})
	}
}

func TestAPIError_TruncatesMessage(t *testing.T) {
	err := &APIError{Provider: "groq", StatusCode: 500, Message: strings.Repeat("x", 400)}
	assert.Contains(t, err.Error(), strings.Repeat("x", 300)+"...")
	assert.NotContains(t, err.Error(), strings.Repeat("x", 301))
}
