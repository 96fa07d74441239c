package storage

import (
	"time"

	"worklog-summary/internal/period"
)

// RecordStatus is the day status of a work log entry.
type RecordStatus string

const (
	StatusAvailable RecordStatus = "Available"
	StatusNoWork    RecordStatus = "No Work"
	StatusLeave     RecordStatus = "Leave"
	StatusHoliday   RecordStatus = "Holiday"
)

// Valid reports whether s is a known status.
func (s RecordStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusNoWork, StatusLeave, StatusHoliday:
		return true
	default:
		return false
	}
}

// Record is one day of logged activity for a tenant.
// The detail fields are only meaningful when Status is Available.
type Record struct {
	ID           string       `json:"id"`
	Tenant       string       `json:"tenant"`
	Date         time.Time    `json:"date"`
	Status       RecordStatus `json:"status"`
	NoWorkReason string       `json:"noWorkReason,omitempty"`
	Project      string       `json:"project,omitempty"`
	Task         string       `json:"task,omitempty"`
	WorkDone     []string     `json:"workDone,omitempty"`
	FilesTouched []string     `json:"filesTouched,omitempty"`
	TechStack    []string     `json:"techStack,omitempty"`
	Blockers     string       `json:"blockers,omitempty"`
	Learnings    []string     `json:"learnings,omitempty"`
	Impact       []string     `json:"impact,omitempty"`
	NextPlan     string       `json:"nextPlan,omitempty"`
	Hours        float64      `json:"hours,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Summary is a generated report for one tenant and one period.
// WeekNumber is set only for weekly summaries and Month only for monthly ones.
type Summary struct {
	ID          string      `json:"id"`
	Tenant      string      `json:"tenant"`
	Type        period.Type `json:"type"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	WeekNumber  int         `json:"weekNumber,omitempty"`
	Month       int         `json:"month,omitempty"`
	Year        int         `json:"year"`
	Content     string      `json:"content"`
	Provider    string      `json:"provider"`
	Degraded    bool        `json:"degraded"`
	GeneratedAt time.Time   `json:"generatedAt"`
	UpdatedAt   time.Time   `json:"updatedAt,omitempty"`
}

// Index returns the week or month number, whichever applies.
func (s *Summary) Index() int {
	switch s.Type {
	case period.Weekly:
		return s.WeekNumber
	case period.Monthly:
		return s.Month
	default:
		return 0
	}
}

// Period rebuilds the window the summary covers.
func (s *Summary) Period() period.Period {
	return period.Period{
		Type:  s.Type,
		Start: s.StartDate,
		End:   s.EndDate,
		Index: s.Index(),
		Year:  s.Year,
	}
}

// NewSummary fills the period fields of a summary from p.
func NewSummary(tenant string, p period.Period, content string) *Summary {
	s := &Summary{
		Tenant:    tenant,
		Type:      p.Type,
		StartDate: p.Start,
		EndDate:   p.End,
		Year:      p.Year,
		Content:   content,
	}
	switch p.Type {
	case period.Weekly:
		s.WeekNumber = p.Index
	case period.Monthly:
		s.Month = p.Index
	}
	return s
}

// Feedback is a stored AI critique of a tenant's recent work.
type Feedback struct {
	ID          string    `json:"id"`
	Tenant      string    `json:"tenant"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// TenantStats holds per-tenant counts for the status command.
type TenantStats struct {
	Tenant           string
	Records          int
	WeeklySummaries  int
	MonthlySummaries int
	CustomReports    int
	LastRecordDate   time.Time
}
