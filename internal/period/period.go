package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the on-disk and on-wire format of record dates.
const DayLayout = "2006-01-02"

// ErrInvalidPeriod is returned for unknown types and out-of-range indexes.
var ErrInvalidPeriod = errors.New("invalid period")

// Type is the kind of summary window.
type Type string

const (
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
	Custom  Type = "custom"
)

// Valid reports whether t is one of the known period types.
func (t Type) Valid() bool {
	switch t {
	case Weekly, Monthly, Custom:
		return true
	default:
		return false
	}
}

// ParseType accepts "week"/"weekly", "month"/"monthly" and "custom".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return Weekly, nil
	case "month", "monthly":
		return Monthly, nil
	case "custom":
		return Custom, nil
	default:
		return "", fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, s)
	}
}

// Period is an inclusive [Start, End] window in UTC.
// Index is the ISO week for weekly periods and the month (1-12) for monthly ones;
// custom periods have no index.
type Period struct {
	Type  Type
	Start time.Time
	End   time.Time
	Index int
	Year  int
}

// Compute returns the week or month containing ref.
func Compute(ref time.Time, t Type) (Period, error) {
	ref = ref.UTC()
	switch t {
	case Weekly:
		return week(ref), nil
	case Monthly:
		return month(ref), nil
	case Custom:
		return Period{}, fmt.Errorf("%w: custom periods need an explicit range", ErrInvalidPeriod)
	default:
		return Period{}, fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, t)
	}
}

// FromIndex resolves an ISO week number or a month number within year.
func FromIndex(t Type, index, year int) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, fmt.Errorf("%w: year %d out of range", ErrInvalidPeriod, year)
	}

	switch t {
	case Weekly:
		if index < 1 || index > WeeksInYear(year) {
			return Period{}, fmt.Errorf("%w: week %d out of range for %d", ErrInvalidPeriod, index, year)
		}
		// Jan 4th always falls in ISO week 1.
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
		monday := jan4.AddDate(0, 0, -mondayOffset(jan4))
		return week(monday.AddDate(0, 0, (index-1)*7)), nil
	case Monthly:
		if index < 1 || index > 12 {
			return Period{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, index)
		}
		return month(time.Date(year, time.Month(index), 1, 0, 0, 0, 0, time.UTC)), nil
	case Custom:
		return Period{}, fmt.Errorf("%w: custom periods have no index", ErrInvalidPeriod)
	default:
		return Period{}, fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, t)
	}
}

// Range builds a custom period covering whole days from..to.
func Range(from, to time.Time) (Period, error) {
	start := StartOfDay(from)
	end := EndOfDay(to)
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: range start %s is after end %s", ErrInvalidPeriod,
			start.Format(DayLayout), to.UTC().Format(DayLayout))
	}
	return Period{
		Type:  Custom,
		Start: start,
		End:   end,
		Year:  start.Year(),
	}, nil
}

// WeeksInYear returns 52 or 53. Dec 28th is always in the last ISO week.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// IsWeekClosing reports whether d is a Sunday.
func IsWeekClosing(d time.Time) bool {
	return d.UTC().Weekday() == time.Sunday
}

// IsMonthClosing reports whether d is the last day of its month.
func IsMonthClosing(d time.Time) bool {
	d = d.UTC()
	return d.AddDate(0, 0, 1).Month() != d.Month()
}

// ClosingTypes lists the periods that d closes, weekly first.
func ClosingTypes(d time.Time) []Type {
	var types []Type
	if IsWeekClosing(d) {
		types = append(types, Weekly)
	}
	if IsMonthClosing(d) {
		types = append(types, Monthly)
	}
	return types
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && !t.After(p.End)
}

// Closed reports whether the window has fully elapsed at now.
func (p Period) Closed(now time.Time) bool {
	return now.UTC().After(p.End)
}

// Key is a stable identifier such as 2024-W01, 2024-01 or 2024-01-03_2024-01-09.
func (p Period) Key() string {
	switch p.Type {
	case Weekly:
		return fmt.Sprintf("%d-W%02d", p.Year, p.Index)
	case Monthly:
		return fmt.Sprintf("%d-%02d", p.Year, p.Index)
	default:
		return p.Start.Format(DayLayout) + "_" + p.End.Format(DayLayout)
	}
}

// Label is the human-readable form used in prompts and reports.
func (p Period) Label() string {
	switch p.Type {
	case Weekly:
		return fmt.Sprintf("Week %d, %d", p.Index, p.Year)
	case Monthly:
		return fmt.Sprintf("%s %d", time.Month(p.Index), p.Year)
	default:
		return fmt.Sprintf("%s - %s", p.Start.Format("Jan 2, 2006"), p.End.Format("Jan 2, 2006"))
	}
}

// ParseDay parses a YYYY-MM-DD date as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return d, nil
}

// StartOfDay truncates t to 00:00:00.000 UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns 23:59:59.999 UTC of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}

func week(ref time.Time) Period {
	day := StartOfDay(ref)
	start := day.AddDate(0, 0, -mondayOffset(day))
	// Year and week must come from the same call, Jan 1st can belong to the previous ISO year.
	year, wk := day.ISOWeek()
	return Period{
		Type:  Weekly,
		Start: start,
		End:   EndOfDay(start.AddDate(0, 0, 6)),
		Index: wk,
		Year:  year,
	}
}

func month(ref time.Time) Period {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Type:  Monthly,
		Start: start,
		End:   EndOfDay(start.AddDate(0, 1, -1)),
		Index: int(ref.Month()),
		Year:  ref.Year(),
	}
}

// mondayOffset is the number of days since the preceding Monday.
func mondayOffset(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}
