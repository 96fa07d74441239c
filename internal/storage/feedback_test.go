package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedback_FindLatestSince(t *testing.T) {
	s := NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveFeedback(ctx, &Feedback{Tenant: "T1", Content: "old", GeneratedAt: base.Add(-48 * time.Hour)}))
	require.NoError(t, s.SaveFeedback(ctx, &Feedback{Tenant: "T1", Content: "recent", GeneratedAt: base.Add(-2 * time.Hour)}))
	require.NoError(t, s.SaveFeedback(ctx, &Feedback{Tenant: "T2", Content: "other tenant", GeneratedAt: base}))

	fb, err := s.FindLatestFeedback(ctx, "T1", base.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, "recent", fb.Content)
	assert.NotEmpty(t, fb.ID)
	assert.True(t, fb.GeneratedAt.Equal(base.Add(-2*time.Hour)))

	none, err := s.FindLatestFeedback(ctx, "T1", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFeedback_RequiresTenant(t *testing.T) {
	s := NewTestDB(t)
	assert.Error(t, s.SaveFeedback(context.Background(), &Feedback{Content: "x"}))
}
