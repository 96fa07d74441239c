package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
)

type fakeGuard struct {
	held     bool
	acquired int
	released int
}

func (g *fakeGuard) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if g.held {
		return nil, ErrSweepLocked
	}
	g.held = true
	g.acquired++
	return func() {
		g.held = false
		g.released++
	}, nil
}

func TestClosedPeriods(t *testing.T) {
	// Monday 2024-02-05: week 5 and January have just closed.
	now := time.Date(2024, 2, 5, 1, 0, 0, 0, time.UTC)
	periods := closedPeriods(now, 7)

	var keys []string
	for _, p := range periods {
		keys = append(keys, p.Key())
	}
	assert.ElementsMatch(t, []string{"2024-W05", "2024-01"}, keys)
}

func TestClosedPeriods_WindowLimitsHistory(t *testing.T) {
	now := time.Date(2024, 2, 5, 1, 0, 0, 0, time.UTC)
	periods := closedPeriods(now, 14)

	var keys []string
	for _, p := range periods {
		assert.True(t, p.Closed(now), p.Key())
		keys = append(keys, p.Key())
	}
	assert.ElementsMatch(t, []string{"2024-W04", "2024-W05", "2024-01"}, keys)
}

func TestCheckAndFillMissingSummaries(t *testing.T) {
	st := newTestStore(t)
	seedRecords(t, st, "alice", day("2024-01-29"), 3, storage.StatusAvailable)
	seedRecords(t, st, "bob", day("2024-01-10"), 1, storage.StatusAvailable)

	gw := &mockGateway{}
	gw.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(okResult("filled"), nil)

	guard := &fakeGuard{}
	now := time.Date(2024, 2, 5, 1, 0, 0, 0, time.UTC)
	e := newTestExecutor(t, st, gw, WithClock(func() time.Time { return now }), WithSweepGuard(guard))

	report, err := e.CheckAndFillMissingSummaries(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tenants)
	// alice: week 5 and January. bob: January only, week 5 has no records.
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, 1, report.NoData)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, guard.acquired)
	assert.Equal(t, 1, guard.released)

	weekly, err := st.FindSummary(context.Background(), "alice", period.Weekly, 5, 2024)
	require.NoError(t, err)
	require.NotNil(t, weekly)

	again, err := e.CheckAndFillMissingSummaries(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 3, again.Existing)
	gw.AssertNumberOfCalls(t, "Generate", 3)
}

func TestCheckAndFillMissingSummaries_Locked(t *testing.T) {
	st := newTestStore(t)
	gw := &mockGateway{}
	guard := &fakeGuard{held: true}
	e := newTestExecutor(t, st, gw, WithSweepGuard(guard))

	report, err := e.CheckAndFillMissingSummaries(context.Background(), 7)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrSweepLocked)
}
