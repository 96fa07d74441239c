package evaluator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklog-summary/internal/analyzer"
	"worklog-summary/internal/storage"
)

type fakeCompleter struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (*analyzer.Completion, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &analyzer.Completion{Text: f.text, Provider: "gemini", Model: "gemini-pro"}, nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func addRecord(t *testing.T, st *storage.SQLiteStorage, tenant string, date time.Time, task string) {
	t.Helper()
	require.NoError(t, st.SaveRecord(context.Background(), &storage.Record{
		Tenant: tenant,
		Date:   date,
		Status: storage.StatusAvailable,
		Task:   task,
	}))
}

func TestCritique_UsesLastWeek(t *testing.T) {
	st := newStore(t)
	addRecord(t, st, "acme", now.AddDate(0, 0, -2), "recent work")
	addRecord(t, st, "acme", now.AddDate(0, 0, -20), "old work")

	completer := &fakeCompleter{text: "  # Self-Improvement Review\nGood job  "}
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return now }))

	fb, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	assert.Equal(t, "# Self-Improvement Review\nGood job", fb.Content)
	assert.False(t, fb.Fallback)

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "recent work")
	assert.NotContains(t, completer.prompts[0], "old work")
}

func TestCritique_NoLogs(t *testing.T) {
	st := newStore(t)
	completer := &fakeCompleter{text: "unused"}
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return now }))

	fb, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fb.Content, "# No Logs Found"))
	assert.Empty(t, completer.prompts)
}

func TestCritique_ProviderFailureFallsBack(t *testing.T) {
	st := newStore(t)
	addRecord(t, st, "acme", now.AddDate(0, 0, -1), "work")

	completer := &fakeCompleter{err: fmt.Errorf("%w: quota", analyzer.ErrQuotaExceeded)}
	cache := newMemoryCache()
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return now }), WithCache(cache, time.Hour))

	fb, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	assert.True(t, fb.Fallback)
	assert.Equal(t, fallbackCritique, fb.Content)
	assert.Empty(t, cache.data, "fallback text must not be cached")
}

func TestCritique_CachedForADay(t *testing.T) {
	st := newStore(t)
	addRecord(t, st, "acme", now.AddDate(0, 0, -1), "work")

	completer := &fakeCompleter{text: "review"}
	cache := newMemoryCache()
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return now }), WithCache(cache, time.Hour))

	_, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	cached, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Len(t, completer.prompts, 1)
	assert.Equal(t, 24*time.Hour, cache.ttls["worklog-summary:critique:acme"])

	completer.text = "fresh review"
	refreshed, err := e.Critique(context.Background(), "acme", true)
	require.NoError(t, err)
	assert.False(t, refreshed.Cached)
	assert.Equal(t, "fresh review", refreshed.Content)
	assert.Len(t, completer.prompts, 2)
}

func TestInsight_RecentRecordsAndCache(t *testing.T) {
	st := newStore(t)
	addRecord(t, st, "acme", now.AddDate(0, 0, -1), "yesterday")
	addRecord(t, st, "acme", now.AddDate(0, 0, -10), "last week")

	completer := &fakeCompleter{text: "**Tip:** take breaks"}
	cache := newMemoryCache()
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return now }), WithCache(cache, 30*time.Minute))

	fb, err := e.Insight(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "**Tip:** take breaks", fb.Content)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "yesterday")
	assert.NotContains(t, completer.prompts[0], "last week")
	assert.Equal(t, 30*time.Minute, cache.ttls["worklog-summary:insight:acme"])

	again, err := e.Insight(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Len(t, completer.prompts, 1)
}

func TestInsight_FallsBackToLatestRecords(t *testing.T) {
	st := newStore(t)
	for i := 0; i < 12; i++ {
		addRecord(t, st, "acme", now.AddDate(0, 0, -30-i), fmt.Sprintf("old task %02d", i))
	}

	completer := &fakeCompleter{text: "tip"}
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return now }))

	_, err := e.Insight(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "old task 00")
	assert.Contains(t, completer.prompts[0], "old task 09")
	assert.NotContains(t, completer.prompts[0], "old task 10")
}

func TestInsight_ProviderFailureFallsBack(t *testing.T) {
	st := newStore(t)
	addRecord(t, st, "acme", now.AddDate(0, 0, -1), "work")

	completer := &fakeCompleter{err: errors.New("boom")}
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return now }))

	fb, err := e.Insight(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, fb.Fallback)
	assert.Equal(t, fallbackInsight, fb.Content)
}

func TestInsight_MockGatewayFallsBack(t *testing.T) {
	st := newStore(t)
	addRecord(t, st, "acme", now.AddDate(0, 0, -1), "work")

	e := NewEvaluator(analyzer.NewGateway(analyzer.WithMock()), st, WithClock(func() time.Time { return now }))
	fb, err := e.Insight(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, fallbackInsight, fb.Content)
}

func TestCritique_StoredForADayWithoutCache(t *testing.T) {
	st := newStore(t)
	addRecord(t, st, "acme", now.AddDate(0, 0, -1), "work")

	clock := now
	completer := &fakeCompleter{text: "review"}
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return clock }))

	first, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	clock = now.Add(23 * time.Hour)
	second, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "review", second.Content)
	assert.True(t, second.GeneratedAt.Equal(now))
	assert.Len(t, completer.prompts, 1)

	clock = now.Add(25 * time.Hour)
	completer.text = "next day review"
	third, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, "next day review", third.Content)
	assert.Len(t, completer.prompts, 2)
}

func TestCritique_FallbackNotStored(t *testing.T) {
	st := newStore(t)
	addRecord(t, st, "acme", now.AddDate(0, 0, -1), "work")

	completer := &fakeCompleter{err: errors.New("boom")}
	e := NewEvaluator(completer, st, WithClock(func() time.Time { return now }))

	_, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)

	stored, err := st.FindLatestFeedback(context.Background(), "acme", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, stored)

	completer.err = nil
	completer.text = "review"
	fb, err := e.Critique(context.Background(), "acme", false)
	require.NoError(t, err)
	assert.False(t, fb.Fallback)
	assert.Equal(t, "review", fb.Content)
}
