package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"worklog-summary/internal/period"
)

// timeLayout is fixed-width so that stored instants compare correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type SQLiteStorage struct {
	db *sql.DB
}

// newSQLiteStorage creates a SQLite storage instance (internal function)
func newSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers inside the process and keeps
	// ":memory:" databases from splitting across pool connections.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) init() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	createRecordsTable := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('Available', 'No Work', 'Leave', 'Holiday')),
		no_work_reason TEXT NOT NULL DEFAULT '',
		project TEXT NOT NULL DEFAULT '',
		task TEXT NOT NULL DEFAULT '',
		work_done TEXT NOT NULL DEFAULT '[]',
		files_touched TEXT NOT NULL DEFAULT '[]',
		tech_stack TEXT NOT NULL DEFAULT '[]',
		blockers TEXT NOT NULL DEFAULT '',
		learnings TEXT NOT NULL DEFAULT '[]',
		impact TEXT NOT NULL DEFAULT '[]',
		next_plan TEXT NOT NULL DEFAULT '',
		hours REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	`

	createSummariesTable := `
	CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL,
		type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		week_number INTEGER,
		month INTEGER,
		year INTEGER NOT NULL,
		content TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		degraded INTEGER NOT NULL DEFAULT 0,
		generated_at TEXT NOT NULL,
		updated_at TEXT,
		CHECK (
			(type = 'weekly' AND week_number IS NOT NULL AND month IS NULL) OR
			(type = 'monthly' AND month IS NOT NULL AND week_number IS NULL) OR
			(type = 'custom' AND week_number IS NULL AND month IS NULL)
		)
	);
	`

	createFeedbackTable := `
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL,
		content TEXT NOT NULL,
		generated_at TEXT NOT NULL
	);
	`

	createIndexes := `
	CREATE INDEX IF NOT EXISTS idx_records_tenant_date ON records(tenant, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_summaries_weekly ON summaries(tenant, type, week_number, year) WHERE type = 'weekly';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_summaries_monthly ON summaries(tenant, type, month, year) WHERE type = 'monthly';
	CREATE INDEX IF NOT EXISTS idx_summaries_tenant_type ON summaries(tenant, type);
	CREATE INDEX IF NOT EXISTS idx_feedback_tenant_generated ON feedback(tenant, generated_at);
	`

	if _, err := s.db.Exec(createRecordsTable); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}

	if _, err := s.db.Exec(createSummariesTable); err != nil {
		return fmt.Errorf("failed to create summaries table: %w", err)
	}

	if _, err := s.db.Exec(createFeedbackTable); err != nil {
		return fmt.Errorf("failed to create feedback table: %w", err)
	}

	if _, err := s.db.Exec(createIndexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) SaveRecord(ctx context.Context, record *Record) error {
	if record.Tenant == "" {
		return fmt.Errorf("record tenant is required")
	}
	if !record.Status.Valid() {
		return fmt.Errorf("invalid record status %q", record.Status)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.Date = period.StartOfDay(record.Date)

	lists, err := encodeLists(record.WorkDone, record.FilesTouched, record.TechStack, record.Learnings, record.Impact)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO records (id, tenant, date, status, no_work_reason, project, task, work_done, files_touched,
		tech_stack, blockers, learnings, impact, next_plan, hours, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.Tenant, record.Date.Format(period.DayLayout), string(record.Status), record.NoWorkReason,
		record.Project, record.Task, lists[0], lists[1], lists[2], record.Blockers, lists[3], lists[4],
		record.NextPlan, record.Hours, record.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

const recordColumns = `id, tenant, date, status, no_work_reason, project, task, work_done, files_touched,
	tech_stack, blockers, learnings, impact, next_plan, hours, created_at`

// FindRecords returns the tenant's records whose date falls within [start, end], oldest first.
func (s *SQLiteStorage) FindRecords(ctx context.Context, tenant string, start, end time.Time) ([]*Record, error) {
	query := `SELECT ` + recordColumns + `
	FROM records
	WHERE tenant = ? AND date >= ? AND date <= ?
	ORDER BY date ASC, created_at ASC
	`
	return s.queryRecords(ctx, query, tenant, start.UTC().Format(period.DayLayout), end.UTC().Format(period.DayLayout))
}

// FindAllRecords returns every record of the tenant, oldest first.
func (s *SQLiteStorage) FindAllRecords(ctx context.Context, tenant string) ([]*Record, error) {
	query := `SELECT ` + recordColumns + `
	FROM records
	WHERE tenant = ?
	ORDER BY date ASC, created_at ASC
	`
	return s.queryRecords(ctx, query, tenant)
}

// FindLatestRecords returns up to limit of the tenant's most recent records, newest first.
func (s *SQLiteStorage) FindLatestRecords(ctx context.Context, tenant string, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + `
	FROM records
	WHERE tenant = ?
	ORDER BY date DESC, created_at DESC
	LIMIT ?
	`
	return s.queryRecords(ctx, query, tenant, limit)
}

func (s *SQLiteStorage) ListTenants(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT tenant FROM records ORDER BY tenant ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenant string
		if err := rows.Scan(&tenant); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func (s *SQLiteStorage) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		var dateStr, createdStr, status string
		var workDone, filesTouched, techStack, learnings, impact string
		if err := rows.Scan(&r.ID, &r.Tenant, &dateStr, &status, &r.NoWorkReason, &r.Project, &r.Task,
			&workDone, &filesTouched, &techStack, &r.Blockers, &learnings, &impact, &r.NextPlan, &r.Hours, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Status = RecordStatus(status)
		if r.Date, err = period.ParseDay(dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse record date: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if err := decodeLists(
			[]string{workDone, filesTouched, techStack, learnings, impact},
			&r.WorkDone, &r.FilesTouched, &r.TechStack, &r.Learnings, &r.Impact,
		); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

const summaryColumns = `id, tenant, type, start_date, end_date, week_number, month, year, content,
	provider, degraded, generated_at, updated_at`

// FindSummary returns the summary for (tenant, type, index, year), or nil when none exists.
func (s *SQLiteStorage) FindSummary(ctx context.Context, tenant string, t period.Type, index, year int) (*Summary, error) {
	var indexColumn string
	switch t {
	case period.Weekly:
		indexColumn = "week_number"
	case period.Monthly:
		indexColumn = "month"
	default:
		return nil, fmt.Errorf("summaries of type %q have no unique key", t)
	}

	query := `SELECT ` + summaryColumns + `
	FROM summaries
	WHERE tenant = ? AND type = ? AND ` + indexColumn + ` = ? AND year = ?
	`
	summary, err := scanSummary(s.db.QueryRowContext(ctx, query, tenant, string(t), index, year))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return summary, nil
}

func (s *SQLiteStorage) GetSummary(ctx context.Context, id string) (*Summary, error) {
	query := `SELECT ` + summaryColumns + ` FROM summaries WHERE id = ?`
	summary, err := scanSummary(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return summary, nil
}

// InsertSummary stores a new summary. A second summary for the same tenant and
// weekly/monthly period fails with ErrDuplicateKey.
func (s *SQLiteStorage) InsertSummary(ctx context.Context, summary *Summary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO summaries (` + summaryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		summary.ID, summary.Tenant, string(summary.Type),
		summary.StartDate.UTC().Format(timeLayout), summary.EndDate.UTC().Format(timeLayout),
		nullableInt(summary.WeekNumber), nullableInt(summary.Month), summary.Year,
		summary.Content, summary.Provider, summary.Degraded,
		summary.GeneratedAt.UTC().Format(timeLayout), nullableTime(summary.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s summary %d/%d for tenant %s", ErrDuplicateKey, summary.Type, summary.Index(), summary.Year, summary.Tenant)
		}
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// UpdateSummaryContent replaces the content of a summary, e.g. after a human edit.
func (s *SQLiteStorage) UpdateSummaryContent(ctx context.Context, id, content string) (*Summary, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `UPDATE summaries SET content = ?, updated_at = ? WHERE id = ?`,
		content, now.Format(timeLayout), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update summary: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update summary: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetSummary(ctx, id)
}

// ListSummaries returns the tenant's summaries, newest period first.
// An empty type lists every type.
func (s *SQLiteStorage) ListSummaries(ctx context.Context, tenant string, t period.Type) ([]*Summary, error) {
	query := `SELECT ` + summaryColumns + ` FROM summaries WHERE tenant = ?`
	args := []interface{}{tenant}
	if t != "" {
		query += ` AND type = ?`
		args = append(args, string(t))
	}
	query += ` ORDER BY year DESC, COALESCE(week_number, month, 0) DESC, start_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// FindLatestSummary returns the tenant's most recently generated summary of any type.
func (s *SQLiteStorage) FindLatestSummary(ctx context.Context, tenant string) (*Summary, error) {
	query := `SELECT ` + summaryColumns + `
	FROM summaries
	WHERE tenant = ?
	ORDER BY generated_at DESC
	LIMIT 1
	`
	summary, err := scanSummary(s.db.QueryRowContext(ctx, query, tenant))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest summary: %w", err)
	}
	return summary, nil
}

func (s *SQLiteStorage) Stats(ctx context.Context) ([]*TenantStats, error) {
	query := `
	SELECT t.tenant,
		(SELECT COUNT(*) FROM records r WHERE r.tenant = t.tenant),
		(SELECT COUNT(*) FROM summaries s WHERE s.tenant = t.tenant AND s.type = 'weekly'),
		(SELECT COUNT(*) FROM summaries s WHERE s.tenant = t.tenant AND s.type = 'monthly'),
		(SELECT COUNT(*) FROM summaries s WHERE s.tenant = t.tenant AND s.type = 'custom'),
		COALESCE((SELECT MAX(date) FROM records r WHERE r.tenant = t.tenant), '')
	FROM (SELECT tenant FROM records UNION SELECT tenant FROM summaries) t
	ORDER BY t.tenant ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats []*TenantStats
	for rows.Next() {
		var st TenantStats
		var lastDate string
		if err := rows.Scan(&st.Tenant, &st.Records, &st.WeeklySummaries, &st.MonthlySummaries, &st.CustomReports, &lastDate); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		if lastDate != "" {
			if st.LastRecordDate, err = period.ParseDay(lastDate); err != nil {
				return nil, err
			}
		}
		stats = append(stats, &st)
	}
	return stats, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSummary(row rowScanner) (*Summary, error) {
	var summary Summary
	var typ, startStr, endStr, generatedStr string
	var weekNumber, month sql.NullInt64
	var updatedStr sql.NullString
	if err := row.Scan(&summary.ID, &summary.Tenant, &typ, &startStr, &endStr, &weekNumber, &month,
		&summary.Year, &summary.Content, &summary.Provider, &summary.Degraded, &generatedStr, &updatedStr); err != nil {
		return nil, err
	}

	summary.Type = period.Type(typ)
	summary.WeekNumber = int(weekNumber.Int64)
	summary.Month = int(month.Int64)

	var err error
	if summary.StartDate, err = time.Parse(timeLayout, startStr); err != nil {
		return nil, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if summary.EndDate, err = time.Parse(timeLayout, endStr); err != nil {
		return nil, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if summary.GeneratedAt, err = time.Parse(timeLayout, generatedStr); err != nil {
		return nil, fmt.Errorf("failed to parse generated_at: %w", err)
	}
	if updatedStr.Valid && updatedStr.String != "" {
		if summary.UpdatedAt, err = time.Parse(timeLayout, updatedStr.String); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
	}
	return &summary, nil
}

func nullableInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func encodeLists(lists ...[]string) ([]string, error) {
	encoded := make([]string, len(lists))
	for i, list := range lists {
		if list == nil {
			list = []string{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return nil, fmt.Errorf("failed to encode list: %w", err)
		}
		encoded[i] = string(data)
	}
	return encoded, nil
}

func decodeLists(raw []string, targets ...*[]string) error {
	for i, target := range targets {
		value := strings.TrimSpace(raw[i])
		if value == "" || value == "[]" {
			continue
		}
		if err := json.Unmarshal([]byte(value), target); err != nil {
			return fmt.Errorf("failed to decode list: %w", err)
		}
	}
	return nil
}
