package period

import (
	"errors"
	"testing"
	"time"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestCompute_Weekly(t *testing.T) {
	tests := []struct {
		name      string
		ref       time.Time
		wantStart time.Time
		wantIndex int
		wantYear  int
	}{
		{
			name:      "monday starts week 1 of 2024",
			ref:       day(2024, time.January, 1),
			wantStart: day(2024, time.January, 1),
			wantIndex: 1,
			wantYear:  2024,
		},
		{
			name:      "sunday closes week 1 of 2024",
			ref:       time.Date(2024, time.January, 7, 23, 30, 0, 0, time.UTC),
			wantStart: day(2024, time.January, 1),
			wantIndex: 1,
			wantYear:  2024,
		},
		{
			name:      "jan 1st 2021 belongs to week 53 of 2020",
			ref:       day(2021, time.January, 1),
			wantStart: day(2020, time.December, 28),
			wantIndex: 53,
			wantYear:  2020,
		},
		{
			name:      "dec 30th 2024 belongs to week 1 of 2025",
			ref:       day(2024, time.December, 30),
			wantStart: day(2024, time.December, 30),
			wantIndex: 1,
			wantYear:  2025,
		},
		{
			name:      "jan 1st 2023 is a sunday in week 52 of 2022",
			ref:       day(2023, time.January, 1),
			wantStart: day(2022, time.December, 26),
			wantIndex: 52,
			wantYear:  2022,
		},
		{
			name:      "non-UTC input is normalized",
			ref:       time.Date(2024, time.January, 8, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			wantStart: day(2024, time.January, 1),
			wantIndex: 1,
			wantYear:  2024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compute(tt.ref, Weekly)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if !p.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", p.Start, tt.wantStart)
			}
			wantEnd := tt.wantStart.AddDate(0, 0, 7).Add(-time.Millisecond)
			if !p.End.Equal(wantEnd) {
				t.Errorf("End = %v, want %v", p.End, wantEnd)
			}
			if p.Index != tt.wantIndex || p.Year != tt.wantYear {
				t.Errorf("week = %d/%d, want %d/%d", p.Index, p.Year, tt.wantIndex, tt.wantYear)
			}
		})
	}
}

func TestCompute_WeeklyProperties(t *testing.T) {
	for d := day(2019, time.January, 1); d.Before(day(2027, time.January, 1)); d = d.AddDate(0, 0, 1) {
		p, err := Compute(d, Weekly)
		if err != nil {
			t.Fatalf("Compute(%s) error = %v", d.Format(DayLayout), err)
		}
		if p.Start.Weekday() != time.Monday {
			t.Fatalf("%s: start %s is not a Monday", d.Format(DayLayout), p.Start.Format(DayLayout))
		}
		if p.End.Weekday() != time.Sunday || p.End.Hour() != 23 || p.End.Nanosecond() != 999_000_000 {
			t.Fatalf("%s: end %v is not Sunday 23:59:59.999", d.Format(DayLayout), p.End)
		}
		if !p.Contains(d) {
			t.Fatalf("%s: not inside [%v, %v]", d.Format(DayLayout), p.Start, p.End)
		}
		startYear, startWeek := p.Start.ISOWeek()
		if startYear != p.Year || startWeek != p.Index {
			t.Fatalf("%s: start week %d/%d, period week %d/%d", d.Format(DayLayout), startWeek, startYear, p.Index, p.Year)
		}
	}
}

func TestCompute_MonthlyProperties(t *testing.T) {
	for d := day(2019, time.January, 1); d.Before(day(2027, time.January, 1)); d = d.AddDate(0, 0, 1) {
		p, err := Compute(d, Monthly)
		if err != nil {
			t.Fatalf("Compute(%s) error = %v", d.Format(DayLayout), err)
		}
		if p.Start.Day() != 1 || p.Start.Month() != d.Month() {
			t.Fatalf("%s: start %s is not the 1st", d.Format(DayLayout), p.Start.Format(DayLayout))
		}
		if p.End.Month() != d.Month() || p.End.AddDate(0, 0, 1).Month() == d.Month() {
			t.Fatalf("%s: end %s is not the last day", d.Format(DayLayout), p.End.Format(DayLayout))
		}
		if p.End.Hour() != 23 || p.End.Minute() != 59 || p.End.Second() != 59 || p.End.Nanosecond() != 999_000_000 {
			t.Fatalf("%s: end %v is not 23:59:59.999", d.Format(DayLayout), p.End)
		}
		if p.Index != int(d.Month()) || p.Year != d.Year() {
			t.Fatalf("%s: index %d/%d", d.Format(DayLayout), p.Index, p.Year)
		}
	}
}

func TestCompute_LeapFebruary(t *testing.T) {
	p, err := Compute(day(2024, time.February, 10), Monthly)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if p.End.Day() != 29 {
		t.Errorf("End day = %d, want 29", p.End.Day())
	}
}

func TestCompute_RejectsCustom(t *testing.T) {
	if _, err := Compute(day(2024, time.January, 1), Custom); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Compute(custom) error = %v, want ErrInvalidPeriod", err)
	}
	if _, err := Compute(day(2024, time.January, 1), Type("daily")); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Compute(daily) error = %v, want ErrInvalidPeriod", err)
	}
}

func TestFromIndex(t *testing.T) {
	tests := []struct {
		name      string
		typ       Type
		index     int
		year      int
		wantStart time.Time
		wantErr   bool
	}{
		{name: "week 1 of 2024", typ: Weekly, index: 1, year: 2024, wantStart: day(2024, time.January, 1)},
		{name: "week 10 of 2030", typ: Weekly, index: 10, year: 2030, wantStart: day(2030, time.March, 4)},
		{name: "week 53 of 2020", typ: Weekly, index: 53, year: 2020, wantStart: day(2020, time.December, 28)},
		{name: "week 1 of 2025 starts in 2024", typ: Weekly, index: 1, year: 2025, wantStart: day(2024, time.December, 30)},
		{name: "week 53 of 2024 does not exist", typ: Weekly, index: 53, year: 2024, wantErr: true},
		{name: "week 0", typ: Weekly, index: 0, year: 2024, wantErr: true},
		{name: "month 2 of 2024", typ: Monthly, index: 2, year: 2024, wantStart: day(2024, time.February, 1)},
		{name: "month 13", typ: Monthly, index: 13, year: 2024, wantErr: true},
		{name: "missing year", typ: Monthly, index: 1, year: 0, wantErr: true},
		{name: "custom has no index", typ: Custom, index: 1, year: 2024, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromIndex(tt.typ, tt.index, tt.year)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromIndex() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPeriod) {
					t.Errorf("error %v is not ErrInvalidPeriod", err)
				}
				return
			}
			if !p.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %s, want %s", p.Start.Format(DayLayout), tt.wantStart.Format(DayLayout))
			}
			if p.Index != tt.index || p.Year != tt.year {
				t.Errorf("got %d/%d, want %d/%d", p.Index, p.Year, tt.index, tt.year)
			}
		})
	}
}

func TestFromIndex_RoundTrip(t *testing.T) {
	for year := 2015; year <= 2035; year++ {
		for w := 1; w <= WeeksInYear(year); w++ {
			p, err := FromIndex(Weekly, w, year)
			if err != nil {
				t.Fatalf("FromIndex(%d, %d) error = %v", w, year, err)
			}
			again, err := Compute(p.Start.AddDate(0, 0, 3), Weekly)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if again.Key() != p.Key() {
				t.Fatalf("round trip %s != %s", again.Key(), p.Key())
			}
		}
	}
}

func TestRange(t *testing.T) {
	p, err := Range(time.Date(2024, time.March, 3, 15, 0, 0, 0, time.UTC), day(2024, time.March, 9))
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if p.Type != Custom || p.Index != 0 {
		t.Errorf("got type %s index %d", p.Type, p.Index)
	}
	if !p.Start.Equal(day(2024, time.March, 3)) {
		t.Errorf("Start = %v", p.Start)
	}
	if !p.End.Equal(day(2024, time.March, 10).Add(-time.Millisecond)) {
		t.Errorf("End = %v", p.End)
	}
	if p.Key() != "2024-03-03_2024-03-09" {
		t.Errorf("Key = %s", p.Key())
	}

	if _, err := Range(day(2024, time.March, 9), day(2024, time.March, 3)); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("reversed range error = %v", err)
	}
}

func TestClosingTypes(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want []Type
	}{
		{name: "plain wednesday", date: day(2024, time.January, 3), want: nil},
		{name: "sunday", date: day(2024, time.January, 7), want: []Type{Weekly}},
		{name: "month end on wednesday", date: day(2024, time.January, 31), want: []Type{Monthly}},
		{name: "month end on sunday", date: day(2024, time.March, 31), want: []Type{Weekly, Monthly}},
		{name: "leap day", date: day(2024, time.February, 29), want: []Type{Monthly}},
		{name: "feb 28 in leap year", date: day(2024, time.February, 28), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClosingTypes(tt.date)
			if len(got) != len(tt.want) {
				t.Fatalf("ClosingTypes() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ClosingTypes()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"week": Weekly, "Weekly": Weekly, "month": Monthly, " monthly ": Monthly, "custom": Custom} {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Errorf("ParseType(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseType("quarter"); err == nil {
		t.Error("ParseType(quarter) expected error")
	}
}

func TestKeyAndLabel(t *testing.T) {
	w, _ := FromIndex(Weekly, 1, 2024)
	if w.Key() != "2024-W01" || w.Label() != "Week 1, 2024" {
		t.Errorf("weekly key/label = %s / %s", w.Key(), w.Label())
	}
	m, _ := FromIndex(Monthly, 1, 2024)
	if m.Key() != "2024-01" || m.Label() != "January 2024" {
		t.Errorf("monthly key/label = %s / %s", m.Key(), m.Label())
	}
}

func TestClosed(t *testing.T) {
	w, _ := FromIndex(Weekly, 1, 2024)
	if w.Closed(time.Date(2024, time.January, 7, 12, 0, 0, 0, time.UTC)) {
		t.Error("week should still be open on its Sunday")
	}
	if !w.Closed(day(2024, time.January, 8)) {
		t.Error("week should be closed on the following Monday")
	}
}
