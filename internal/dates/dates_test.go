package dates

import (
	"testing"
	"time"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestTotalDays(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"single day", d(2026, 1, 1), d(2026, 1, 1), 1},
		{"january", d(2026, 1, 1), d(2026, 1, 31), 31},
		{"across months", d(2026, 1, 15), d(2026, 2, 14), 31},
		{"leap february", d(2028, 2, 1), d(2028, 2, 29), 29},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TotalDays(tc.start, tc.end); got != tc.want {
				t.Fatalf("TotalDays = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestElapsedAndRemaining(t *testing.T) {
	start, end := d(2026, 1, 1), d(2026, 1, 31)
	cases := []struct {
		name          string
		today         time.Time
		elapsed, left int
	}{
		{"before start", d(2025, 12, 31), 0, 31},
		{"first day", d(2026, 1, 1), 1, 31},
		{"mid period", d(2026, 1, 10), 10, 22},
		{"last day", d(2026, 1, 31), 31, 1},
		{"after end", d(2026, 2, 1), 31, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ElapsedDays(start, end, tc.today); got != tc.elapsed {
				t.Fatalf("ElapsedDays = %d, want %d", got, tc.elapsed)
			}
			if got := RemainingDays(end, tc.today); got != tc.left {
				t.Fatalf("RemainingDays = %d, want %d", got, tc.left)
			}
		})
	}
}

// Both formulas count today, so strictly inside the period the two sums
// overlap by exactly one day.
func TestElapsedPlusRemainingOverlap(t *testing.T) {
	start, end := d(2026, 1, 1), d(2026, 1, 31)
	total := TotalDays(start, end)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		sum := ElapsedDays(start, end, day) + RemainingDays(end, day)
		if sum != total+1 {
			t.Fatalf("on %s elapsed+remaining = %d, want %d", day.Format("2006-01-02"), sum, total+1)
		}
	}
}

func TestPeriodStatus(t *testing.T) {
	end := d(2026, 2, 10)
	cases := []struct {
		name  string
		today time.Time
		want  Status
	}{
		{"well before end", d(2026, 2, 1), StatusActive},
		{"day before end", d(2026, 2, 9), StatusActive},
		{"last day", d(2026, 2, 10), StatusLastDay},
		{"day after end", d(2026, 2, 11), StatusClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PeriodStatus(end, tc.today); got != tc.want {
				t.Fatalf("PeriodStatus = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeStripsTimeAndZone(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2026, 3, 15, 23, 45, 0, 0, loc)
	got := Normalize(in)
	want := d(2026, 3, 15)
	if !got.Equal(want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestNextPeriodBounds(t *testing.T) {
	cases := []struct {
		name            string
		prevEnd         time.Time
		wantStart, wantEnd time.Time
	}{
		{"month boundary", d(2026, 1, 31), d(2026, 2, 1), d(2026, 2, 28)},
		{"mid month close", d(2026, 1, 15), d(2026, 1, 16), d(2026, 1, 31)},
		{"year boundary", d(2026, 12, 31), d(2027, 1, 1), d(2027, 1, 31)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := NextPeriodBounds(tc.prevEnd)
			if !start.Equal(tc.wantStart) || !end.Equal(tc.wantEnd) {
				t.Fatalf("NextPeriodBounds = (%v, %v), want (%v, %v)", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestCurrentMonthBounds(t *testing.T) {
	start, end := CurrentMonthBounds(d(2026, 2, 14))
	if !start.Equal(d(2026, 2, 1)) || !end.Equal(d(2026, 2, 28)) {
		t.Fatalf("CurrentMonthBounds = (%v, %v)", start, end)
	}
}
