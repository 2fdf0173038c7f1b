// Package timeutil provides timezone-aware date helpers for the hub.
// Calendar days, due dates and session slots are all compared in the
// configured local zone, so "today" means the user's today.
// No external dependencies - uses only standard library.
package timeutil

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the datetime format produced by date+time form inputs.
	FormatDateTime = "2006-01-02T15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02T15:04:05"
	// FormatHumanDate is a human-readable format.
	FormatHumanDate = "Mon, Jan 2 2006"
)

// ErrUnparseable is returned when no supported layout matches.
var ErrUnparseable = errors.New("timeutil: unparseable date")

var (
	locMu sync.RWMutex
	loc   = time.Local
)

// SetLocation sets the zone used for day truncation and parsing of zone-less values.
func SetLocation(l *time.Location) {
	if l == nil {
		return
	}
	locMu.Lock()
	loc = l
	locMu.Unlock()
}

// Location returns the configured zone.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return loc
}

// layouts in the order they are tried. Values carrying an offset keep it.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	FormatDateTimeSeconds,
	FormatDateTime,
	FormatDate,
}

// Parse parses the date strings the hub accepts: plain dates, date+time form
// values and RFC 3339 timestamps.
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrUnparseable
	}
	l := Location()
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, l); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrUnparseable
}

// IsParseable reports whether Parse would succeed.
func IsParseable(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// IsDateOnly reports whether value is a plain YYYY-MM-DD date without a clock part.
func IsDateOnly(value string) bool {
	_, err := time.Parse(FormatDate, strings.TrimSpace(value))
	return err == nil
}

// ParseClock parses an "HH:MM" value into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	t, err := time.Parse(FormatTime, strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Combine joins a date string and an optional "HH:MM" clock value.
func Combine(date, clock string) (time.Time, error) {
	day, err := Parse(date)
	if err != nil {
		return time.Time{}, err
	}
	day = StartOfDay(day)
	if strings.TrimSpace(clock) == "" {
		return day, nil
	}
	offset, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(offset), nil
}

// StartOfDay returns the start of the day (00:00:00) in the configured zone.
func StartOfDay(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
}

// DayKey returns the YYYY-MM-DD key of the calendar day t falls on.
func DayKey(t time.Time) string {
	return t.In(Location()).Format(FormatDate)
}

// IsSameDay checks if two times are on the same calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	return DayKey(t1) == DayKey(t2)
}

// AddMonthsClamped adds n months and clamps to the last day of the target
// month instead of overflowing (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD).
func FormatDateStr(t time.Time) string {
	return t.In(Location()).Format(FormatDate)
}

// FormatHuman formats a time for console output.
func FormatHuman(t time.Time) string {
	return t.In(Location()).Format(FormatHumanDate)
}
