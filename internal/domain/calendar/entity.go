// Package calendar contains calendar events and the per-day read index.
package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// DefaultClassName is the display class assigned to events without one.
const DefaultClassName = "calendar-event"

// Event is a dated entry on the calendar.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"notblank,max=200"`
	Date        string    `json:"date" validate:"required,calendardate"`
	Location    string    `json:"location,omitempty" validate:"max=200"`
	Description string    `json:"description,omitempty" validate:"max=2000"`
	ClassName   string    `json:"className"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Normalize trims free-text fields and fills the display class.
func (e *Event) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Date = strings.TrimSpace(e.Date)
	e.Location = strings.TrimSpace(e.Location)
	e.Description = strings.TrimSpace(e.Description)
	if strings.TrimSpace(e.ClassName) == "" {
		e.ClassName = DefaultClassName
	}
}

// When returns the parsed event time.
func (e Event) When() (time.Time, error) {
	return timeutil.Parse(e.Date)
}

// IsPast reports whether the event lies before now. An event with a plain
// date is not past until its day is over.
func (e Event) IsPast(now time.Time) bool {
	when, err := e.When()
	if err != nil {
		return false
	}
	if timeutil.IsDateOnly(e.Date) {
		return timeutil.StartOfDay(when).Before(timeutil.StartOfDay(now))
	}
	return when.Before(now)
}

// DayKey returns the calendar day the event falls on, or "" if unparseable.
func (e Event) DayKey() string {
	t, err := e.When()
	if err != nil {
		return ""
	}
	return timeutil.DayKey(t)
}

// Patch holds the fields an edit may change. Nil fields are left as is.
type Patch struct {
	Title       *string
	Date        *string
	Location    *string
	Description *string
	ClassName   *string
}

// Apply returns a copy of e with the patch applied.
func (p Patch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.ClassName != nil {
		e.ClassName = *p.ClassName
	}
	return e
}

// SortByDate orders events by time, then id.
func SortByDate(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, errA := events[i].When()
		b, errB := events[j].When()
		if errA == nil && errB == nil && !a.Equal(b) {
			return a.Before(b)
		}
		return events[i].ID < events[j].ID
	})
}
