package validation

import (
	"fmt"
	"time"

	"github.com/athlete-hub/athlete-hub/internal/domain/activity"
	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/grade"
	"github.com/athlete-hub/athlete-hub/internal/domain/session"
	"github.com/athlete-hub/athlete-hub/internal/domain/settings"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// Messages for rules that go beyond struct tags.
const (
	MsgEventInPast       = "Event date cannot be in the past"
	MsgUntilBeforeStart  = "recurrence until date cannot be before the session date"
	msgSessionConflictAt = "session conflicts with %q on %s at %s"
)

// Grade checks gpa in [0,4], a parseable date, an integer year and a semester.
func (v *Validator) Grade(g grade.Grade) Result {
	return newResult(v.structErrors(g))
}

// Task checks a non-blank title, a parseable due date and a known priority.
func (v *Validator) Task(t task.Task) Result {
	return newResult(v.structErrors(t))
}

// Event checks a non-blank title and a parseable date that is not in the past
// relative to now. A plain date counts as not in the past for the whole day.
func (v *Validator) Event(e calendar.Event, now time.Time) Result {
	errs := v.structErrors(e)

	if e.IsPast(now) {
		errs = append(errs, MsgEventInPast)
	}
	return newResult(errs)
}

// Recurring checks a recurring template before it is expanded: the session
// fields, the rule fields, and an until date not before the first occurrence.
// Occurrences already generated are checked with Session only.
func (v *Validator) Recurring(s session.Session) Result {
	errs := v.structErrors(s)

	if s.RecurrenceRule != nil && s.RecurrenceRule.Until != "" {
		start, errS := timeutil.Parse(s.Date)
		until, errU := timeutil.Parse(s.RecurrenceRule.Until)
		if errS == nil && errU == nil && timeutil.StartOfDay(until).Before(timeutil.StartOfDay(start)) {
			errs = append(errs, MsgUntilBeforeStart)
		}
	}
	return newResult(errs)
}

// Session checks the session fields, then rejects it if it conflicts with any
// session in existing.
func (v *Validator) Session(s session.Session, existing []session.Session) Result {
	errs := v.structErrors(s)

	if len(errs) == 0 {
		for _, other := range s.Conflicts(existing, v.defaultDuration) {
			errs = append(errs, fmt.Sprintf(msgSessionConflictAt, other.Title, other.Date, other.Time))
		}
	}
	return newResult(errs)
}

// Sessions checks a batch that will be added together. Every session is
// checked against existing and against the rest of the batch.
func (v *Validator) Sessions(batch []session.Session, existing []session.Session) Result {
	var errs []string
	seen := make(map[string]bool)
	all := make([]session.Session, 0, len(existing)+len(batch))
	all = append(all, existing...)
	for _, s := range batch {
		for _, msg := range v.Session(s, all).Errors {
			if !seen[msg] {
				seen[msg] = true
				errs = append(errs, msg)
			}
		}
		all = append(all, s)
	}
	return newResult(errs)
}

// Settings checks theme, calendar view and language.
func (v *Validator) Settings(s settings.Settings) Result {
	return newResult(v.structErrors(s))
}

// Note checks a non-blank title.
func (v *Validator) Note(n activity.Note) Result {
	return newResult(v.structErrors(n))
}

// ValidateGrade runs Grade with the default validator.
func ValidateGrade(g grade.Grade) Result {
	return Default().Grade(g)
}

// ValidateTask runs Task with the default validator.
func ValidateTask(t task.Task) Result {
	return Default().Task(t)
}

// ValidateEvent runs Event with the default validator.
func ValidateEvent(e calendar.Event, now time.Time) Result {
	return Default().Event(e, now)
}

// ValidateSession runs Session with the default validator.
func ValidateSession(s session.Session, existing []session.Session) Result {
	return Default().Session(s, existing)
}
