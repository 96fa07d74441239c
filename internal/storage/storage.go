package storage

import (
	"context"
	"fmt"
	"time"

	"worklog-summary/internal/period"
)

// StorageInterface defines the storage interface
// Records are written by the entry path and only read by summary generation;
// summaries are unique per tenant and weekly/monthly period.
type StorageInterface interface {
	SaveRecord(ctx context.Context, record *Record) error
	FindRecords(ctx context.Context, tenant string, start, end time.Time) ([]*Record, error)
	FindAllRecords(ctx context.Context, tenant string) ([]*Record, error)
	FindLatestRecords(ctx context.Context, tenant string, limit int) ([]*Record, error)
	ListTenants(ctx context.Context) ([]string, error)

	FindSummary(ctx context.Context, tenant string, t period.Type, index, year int) (*Summary, error)
	GetSummary(ctx context.Context, id string) (*Summary, error)
	InsertSummary(ctx context.Context, summary *Summary) error
	UpdateSummaryContent(ctx context.Context, id, content string) (*Summary, error)
	ListSummaries(ctx context.Context, tenant string, t period.Type) ([]*Summary, error)
	FindLatestSummary(ctx context.Context, tenant string) (*Summary, error)

	SaveFeedback(ctx context.Context, feedback *Feedback) error
	FindLatestFeedback(ctx context.Context, tenant string, since time.Time) (*Feedback, error)

	Stats(ctx context.Context) ([]*TenantStats, error)
	Close() error
}

// Storage wraps the concrete backend so callers hold a single handle.
type Storage struct {
	StorageInterface
}

// NewStorage opens the SQLite database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	sqliteStorage, err := NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite storage: %w", err)
	}
	return &Storage{StorageInterface: sqliteStorage}, nil
}

// NewSQLiteStorage creates a SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	return newSQLiteStorage(dbPath)
}
