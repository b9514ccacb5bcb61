package evaluator

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected []DurationPart
	}{
		{"1d", []DurationPart{{Unit: "d", Amount: 1}}},
		{"2h30m", []DurationPart{{Unit: "h", Amount: 2}, {Unit: "m", Amount: 30}}},
		{"1y 6M", []DurationPart{{Unit: "y", Amount: 1}, {Unit: "M", Amount: 6}}},
		{"-7d", []DurationPart{{Unit: "d", Amount: -7}}},
		{"1.5h", []DurationPart{{Unit: "h", Amount: 1.5}}},
		{"3 weeks", []DurationPart{{Unit: "w", Amount: 3}}},
		{"10 minutes", []DurationPart{{Unit: "m", Amount: 10}}},
		{"500ms", []DurationPart{{Unit: "ms", Amount: 500}}},
		{"2 months", []DurationPart{{Unit: "M", Amount: 2}}},
		{"1month", []DurationPart{{Unit: "M", Amount: 1}}},
		{"1mo", []DurationPart{{Unit: "M", Amount: 1}}},
		{"1mo2minutes", []DurationPart{{Unit: "M", Amount: 1}, {Unit: "m", Amount: 2}}},
		{"3millis", []DurationPart{{Unit: "ms", Amount: 3}}},
	}

	for _, tt := range tests {
		dur, err := ParseDuration(tt.input)
		if err != nil {
			t.Errorf("ParseDuration(%q) failed: %s", tt.input, err)
			continue
		}
		if len(dur.Parts) != len(tt.expected) {
			t.Errorf("%q: expected %d parts, got %d", tt.input, len(tt.expected), len(dur.Parts))
			continue
		}
		for i, p := range dur.Parts {
			if p != tt.expected[i] {
				t.Errorf("%q part %d: expected %+v, got %+v", tt.input, i, tt.expected[i], p)
			}
		}
	}
}

// The single letters M and m disambiguate by case: month versus
// minute.
func TestParseDurationMonthVersusMinute(t *testing.T) {
	month, err := ParseDuration("1M")
	if err != nil {
		t.Fatal(err)
	}
	if month.Parts[0].Unit != "M" {
		t.Errorf("1M should be a month, got %q", month.Parts[0].Unit)
	}
	minute, err := ParseDuration("1m")
	if err != nil {
		t.Fatal(err)
	}
	if minute.Parts[0].Unit != "m" {
		t.Errorf("1m should be a minute, got %q", minute.Parts[0].Unit)
	}
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "abc", "1", "1x", "1d extra", "d1"} {
		if _, err := ParseDuration(input); err == nil {
			t.Errorf("ParseDuration(%q) should fail", input)
		}
	}
}

func TestDurationTotalMillis(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1s", 1000},
		{"1m", 60_000},
		{"1h", 3_600_000},
		{"1d", 86_400_000},
		{"1w", 7 * 86_400_000},
		{"1M", 30 * 86_400_000},
		{"1y", 365 * 86_400_000},
		{"2h30m", 9_000_000},
	}
	for _, tt := range tests {
		dur, err := ParseDuration(tt.input)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %s", tt.input, err)
		}
		if got := dur.TotalMillis(); got != tt.expected {
			t.Errorf("%q: expected %v ms, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestApplyDurationCalendarArithmetic(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	tests := []struct {
		start    time.Time
		duration string
		sign     float64
		expected time.Time
	}{
		// month-end overflow normalizes forward
		{day(2024, time.January, 31), "1M", 1, day(2024, time.March, 2)},
		{day(2024, time.January, 15), "1M", 1, day(2024, time.February, 15)},
		{day(2024, time.February, 29), "1y", 1, day(2025, time.March, 1)},
		{day(2024, time.June, 1), "2w", 1, day(2024, time.June, 15)},
		{day(2024, time.March, 10), "10d", -1, day(2024, time.February, 29)},
		{day(2024, time.June, 1), "1y6M", 1, day(2025, time.December, 1)},
	}
	for _, tt := range tests {
		dur, err := ParseDuration(tt.duration)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %s", tt.duration, err)
		}
		got := applyDuration(tt.start, dur, tt.sign)
		if !got.Equal(tt.expected) {
			t.Errorf("%s %+v %s: expected %s, got %s",
				tt.start.Format("2006-01-02"), tt.sign, tt.duration,
				tt.expected.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}

func TestFormatDatetime(t *testing.T) {
	ts := time.Date(2024, time.June, 5, 9, 7, 3, 42e6, time.UTC)
	tests := []struct {
		pattern  string
		expected string
	}{
		{"YYYY-MM-DD", "2024-06-05"},
		{"DD/MM/YYYY", "05/06/2024"},
		{"HH:mm:ss", "09:07:03"},
		{"HH:mm:ss.SSS", "09:07:03.042"},
		{"MMMM YYYY", "June 2024"},
		{"ddd DD MMM", "Wed 05 Jun"},
		{"dddd", "Wednesday"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if got := formatDatetime(ts, tt.pattern); got != tt.expected {
			t.Errorf("pattern %q: expected %q, got %q", tt.pattern, tt.expected, got)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t        time.Time
		expected string
	}{
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-3 * time.Hour), "3 hours ago"},
		{now.Add(-48 * time.Hour), "2 days ago"},
		{now.Add(-60 * 24 * time.Hour), "2 months ago"},
		{now.Add(-800 * 24 * time.Hour), "2 years ago"},
		{now.Add(2 * time.Hour), "in 2 hours"},
		{now.Add(72 * time.Hour), "in 3 days"},
	}
	for _, tt := range tests {
		if got := relativeTime(tt.t, now); got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.t, tt.expected, got)
		}
	}
}
