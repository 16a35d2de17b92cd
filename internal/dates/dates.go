// Package dates implements the billing-period day arithmetic. All counts
// are inclusive of both endpoints and of today, which matches how the
// accounting side reasons about a period: the current day is both a fully
// elapsed day (spend already happened) and a remaining day (spend can
// still happen). That double role is deliberate and counter-intuitive;
// see ElapsedDays and RemainingDays.
package dates

import "time"

const day = 24 * time.Hour

// Status is the advisory, date-derived state of a period. It is distinct
// from the persisted period status: a period whose end date has passed
// still reads as active in storage until explicitly closed.
type Status string

const (
	StatusActive  Status = "active"
	StatusLastDay Status = "lastDay"
	StatusClosed  Status = "closed"
)

// Normalize truncates t to midnight of its civil date in UTC. Using the
// civil date rather than the instant eliminates time-of-day and timezone
// drift from day-count arithmetic.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TotalDays returns the number of calendar days in [start, end],
// inclusive of both endpoints: TotalDays(d, d) == 1.
func TotalDays(start, end time.Time) int {
	s, e := Normalize(start), Normalize(end)
	return int(e.Sub(s)/day) + 1
}

// ElapsedDays counts days of [start, end] already spent as of today.
// Today counts as a fully elapsed day (accounting convention: the day's
// spending is treated as done). Returns 0 before the period starts and
// clamps to the full period length once today passes end.
func ElapsedDays(start, end, today time.Time) int {
	s, e, t := Normalize(start), Normalize(end), Normalize(today)
	if t.Before(s) {
		return 0
	}
	if t.After(e) {
		t = e
	}
	return int(t.Sub(s)/day) + 1
}

// RemainingDays counts days of the period still available as of today,
// today included. On the last calendar day of a period this is 1, not 0:
// the period only reads closed the day after end, or when the user
// closes it explicitly.
func RemainingDays(end, today time.Time) int {
	e, t := Normalize(end), Normalize(today)
	if t.After(e) {
		return 0
	}
	return int(e.Sub(t)/day) + 1
}

// PeriodStatus derives the advisory status from the end date alone.
func PeriodStatus(end, today time.Time) Status {
	switch RemainingDays(end, today) {
	case 0:
		return StatusClosed
	case 1:
		return StatusLastDay
	default:
		return StatusActive
	}
}

// NextPeriodBounds returns the window that follows a period ending on
// prevEnd: it starts the day after prevEnd and runs to the last day of
// the calendar month containing that start.
func NextPeriodBounds(prevEnd time.Time) (start, end time.Time) {
	start = Normalize(prevEnd).AddDate(0, 0, 1)
	y, m, _ := start.Date()
	end = time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}

// CurrentMonthBounds returns the first and last day of today's month,
// the default billing period for a user with no stored period.
func CurrentMonthBounds(today time.Time) (start, end time.Time) {
	y, m, _ := Normalize(today).Date()
	start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}
