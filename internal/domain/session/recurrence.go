package session

import (
	"errors"
	"time"

	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// Frequency is the unit a recurrence steps by.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// DefaultMaxOccurrences bounds expansion when the caller sets no limit.
const DefaultMaxOccurrences = 52

// ErrNoOccurrences is returned when a rule yields no sessions.
var ErrNoOccurrences = errors.New("session: recurrence produces no sessions")

// RecurrenceRule describes how a template repeats. Expansion stops at
// Count occurrences, after the Until date, or at the hard cap, whichever
// comes first.
type RecurrenceRule struct {
	Frequency Frequency `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Interval  int       `json:"interval" validate:"gte=1,lte=365"`
	Count     int       `json:"count,omitempty" validate:"gte=0"`
	Until     string    `json:"until,omitempty" validate:"omitempty,calendardate"`
}

// step returns the k-th occurrence date counted from start.
func (r RecurrenceRule) step(start time.Time, k int) time.Time {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	switch r.Frequency {
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*interval*k)
	case FrequencyMonthly:
		return timeutil.AddMonthsClamped(start, interval*k)
	default:
		return start.AddDate(0, 0, interval*k)
	}
}

// Expand materializes the template into dated sessions. Each copy gets a
// fresh id from newID and is independent of the others once created.
func Expand(template Session, rule RecurrenceRule, maxOccurrences int, newID func() string) ([]Session, error) {
	if maxOccurrences < 1 {
		maxOccurrences = DefaultMaxOccurrences
	}
	limit := maxOccurrences
	if rule.Count > 0 && rule.Count < limit {
		limit = rule.Count
	}

	first, err := timeutil.Parse(template.Date)
	if err != nil {
		return nil, err
	}
	first = timeutil.StartOfDay(first)

	var until time.Time
	if rule.Until != "" {
		u, err := timeutil.Parse(rule.Until)
		if err != nil {
			return nil, err
		}
		until = timeutil.StartOfDay(u)
	}

	out := make([]Session, 0, limit)
	for k := 0; k < limit; k++ {
		day := rule.step(first, k)
		if !until.IsZero() && day.After(until) {
			break
		}

		s := template
		s.ID = newID()
		s.Date = timeutil.FormatDateStr(day)
		s.IsRecurring = true
		r := rule
		s.RecurrenceRule = &r
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, ErrNoOccurrences
	}
	return out, nil
}
