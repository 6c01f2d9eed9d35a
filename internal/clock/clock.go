package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock resolves "now" and "today" in a fixed time zone so that planning
// and dispatch agree on day boundaries regardless of the host clock's zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a clock for the given IANA time zone (e.g. "Europe/Berlin").
// An empty name selects UTC.
func New(timezone string) (*Clock, error) {
	if timezone == "" {
		return &Clock{loc: time.UTC, now: time.Now}, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixed creates a clock frozen at the given instant. Used in tests.
func NewFixed(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

// Location returns the configured time zone.
func (c *Clock) Location() *time.Location { return c.loc }

// Now returns the current time in the configured zone.
func (c *Clock) Now() time.Time { return c.now().In(c.loc) }

// Today returns midnight of the current day in the configured zone.
func (c *Clock) Today() time.Time { return c.DayStart(c.Now()) }

// DayStart returns midnight of t's calendar day in the configured zone.
func (c *Clock) DayStart(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// DayEnd returns midnight of the day after t's calendar day.
func (c *Clock) DayEnd(t time.Time) time.Time {
	return c.DayStart(t).AddDate(0, 0, 1)
}

// MinuteOfDay returns the number of minutes elapsed since midnight of t's day.
func (c *Clock) MinuteOfDay(t time.Time) int {
	t = t.In(c.loc)
	return t.Hour()*60 + t.Minute()
}

// At combines a calendar day with a minute-of-day offset into an absolute time.
func (c *Clock) At(day time.Time, minute int) time.Time {
	return c.DayStart(day).Add(time.Duration(minute) * time.Minute)
}

// SameDay reports whether a and b fall on the same calendar day.
func (c *Clock) SameDay(a, b time.Time) bool {
	return c.DayStart(a).Equal(c.DayStart(b))
}

// DayString formats t's calendar day as YYYY-MM-DD.
func (c *Clock) DayString(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// ParseDay parses a YYYY-MM-DD string into midnight of that day.
func (c *Clock) ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseHHMM parses a "HH:MM" time-of-day string into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatHHMM renders minutes since midnight as "HH:MM".
func FormatHHMM(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
