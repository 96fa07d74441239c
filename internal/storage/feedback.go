package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveFeedback 保存一次 AI 点评
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, feedback *Feedback) error {
	if feedback.Tenant == "" {
		return fmt.Errorf("feedback tenant is required")
	}
	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	if feedback.GeneratedAt.IsZero() {
		feedback.GeneratedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, tenant, content, generated_at) VALUES (?, ?, ?, ?)`,
		feedback.ID, feedback.Tenant, feedback.Content, feedback.GeneratedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// FindLatestFeedback returns the newest feedback generated at or after since,
// or nil when there is none.
func (s *SQLiteStorage) FindLatestFeedback(ctx context.Context, tenant string, since time.Time) (*Feedback, error) {
	query := `
	SELECT id, tenant, content, generated_at
	FROM feedback
	WHERE tenant = ? AND generated_at >= ?
	ORDER BY generated_at DESC
	LIMIT 1
	`
	var fb Feedback
	var generatedStr string
	err := s.db.QueryRowContext(ctx, query, tenant, since.UTC().Format(timeLayout)).
		Scan(&fb.ID, &fb.Tenant, &fb.Content, &generatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	if fb.GeneratedAt, err = time.Parse(timeLayout, generatedStr); err != nil {
		return nil, fmt.Errorf("failed to parse generated_at: %w", err)
	}
	return &fb, nil
}
