// Package session contains training sessions, their recurrence rules and
// the scheduling conflict rule.
package session

import (
	"sort"
	"strings"
	"time"

	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// DefaultDuration is assumed for sessions without an explicit length.
const DefaultDuration = 60 * time.Minute

// Session is one scheduled training session.
type Session struct {
	ID              string          `json:"id"`
	Title           string          `json:"title" validate:"notblank,max=200"`
	Date            string          `json:"date" validate:"required,calendardate"`
	Time            string          `json:"time,omitempty" validate:"omitempty,clocktime"`
	DurationMinutes int             `json:"durationMinutes,omitempty" validate:"gte=0,lte=1440"`
	Location        string          `json:"location,omitempty" validate:"max=200"`
	Description     string          `json:"description,omitempty" validate:"max=2000"`
	IsRecurring     bool            `json:"isRecurring"`
	RecurrenceRule  *RecurrenceRule `json:"recurrenceRule,omitempty" validate:"required_if=IsRecurring true"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Normalize trims free-text fields.
func (s *Session) Normalize() {
	s.Title = strings.TrimSpace(s.Title)
	s.Date = strings.TrimSpace(s.Date)
	s.Time = strings.TrimSpace(s.Time)
	s.Location = strings.TrimSpace(s.Location)
	s.Description = strings.TrimSpace(s.Description)
}

// Duration returns the session length, falling back to def.
func (s Session) Duration(def time.Duration) time.Duration {
	if s.DurationMinutes > 0 {
		return time.Duration(s.DurationMinutes) * time.Minute
	}
	if def <= 0 {
		return DefaultDuration
	}
	return def
}

// Start returns the session start. Untimed sessions start at midnight.
func (s Session) Start() (time.Time, error) {
	return timeutil.Combine(s.Date, s.Time)
}

// IsTimed reports whether the session has a start time.
func (s Session) IsTimed() bool {
	return s.Time != ""
}

// ConflictsWith reports whether two sessions occupy the same slot.
//
// Sessions conflict when they fall on the same day, both have a start time
// and their [start, start+duration) intervals overlap. An exact date and time
// match always conflicts. Untimed sessions never conflict, and a session never
// conflicts with itself.
func (s Session) ConflictsWith(other Session, def time.Duration) bool {
	if s.ID != "" && s.ID == other.ID {
		return false
	}
	if !s.IsTimed() || !other.IsTimed() {
		return false
	}

	startA, errA := s.Start()
	startB, errB := other.Start()
	if errA != nil || errB != nil {
		return false
	}
	if !timeutil.IsSameDay(startA, startB) {
		return false
	}
	if startA.Equal(startB) {
		return true
	}

	endA := startA.Add(s.Duration(def))
	endB := startB.Add(other.Duration(def))
	return startA.Before(endB) && startB.Before(endA)
}

// Conflicts returns the sessions in existing that s conflicts with.
func (s Session) Conflicts(existing []Session, def time.Duration) []Session {
	var out []Session
	for _, other := range existing {
		if s.ConflictsWith(other, def) {
			out = append(out, other)
		}
	}
	return out
}

// Patch holds the fields an edit may change. Nil fields are left as is.
type Patch struct {
	Title           *string
	Date            *string
	Time            *string
	DurationMinutes *int
	Location        *string
	Description     *string
}

// Apply returns a copy of s with the patch applied.
func (p Patch) Apply(s Session) Session {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.Time != nil {
		s.Time = *p.Time
	}
	if p.DurationMinutes != nil {
		s.DurationMinutes = *p.DurationMinutes
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if s.RecurrenceRule != nil {
		rule := *s.RecurrenceRule
		s.RecurrenceRule = &rule
	}
	return s
}

// SortChronologically orders sessions by start, untimed sessions first on a day.
func SortChronologically(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, errA := sessions[i].Start()
		b, errB := sessions[j].Start()
		if errA != nil || errB != nil {
			return errB != nil && errA == nil
		}
		return a.Before(b)
	})
}

// Upcoming returns sessions on or after today, in chronological order.
func Upcoming(sessions []Session, now time.Time) []Session {
	today := timeutil.StartOfDay(now)
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		start, err := s.Start()
		if err != nil {
			continue
		}
		if !start.Before(today) {
			out = append(out, s)
		}
	}
	SortChronologically(out)
	return out
}
