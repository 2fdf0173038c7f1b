// Package activity contains the journal entries the hub keeps next to the
// entity collections: recent activity and free-form notes. Both are written
// locally first and flagged for an eventual remote sync.
// This is a pure domain layer with zero external dependencies.
package activity

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Domain errors for activity package.
var (
	ErrInvalidType      = errors.New("activity: invalid type")
	ErrEmptyDescription = errors.New("activity: description is required")
)

// Type identifies what happened.
type Type string

const (
	TypeTaskAdded        Type = "task_added"
	TypeTaskStarted      Type = "task_started"
	TypeTaskCompleted    Type = "task_completed"
	TypeTaskDeleted      Type = "task_deleted"
	TypeGradeAdded       Type = "grade_added"
	TypeGradeDeleted     Type = "grade_deleted"
	TypeSessionScheduled Type = "session_scheduled"
	TypeEventAdded       Type = "event_added"
	TypeNote             Type = "note"
	TypeCustom           Type = "custom"
)

// IsValid checks if the type is known.
func (t Type) IsValid() bool {
	switch t {
	case TypeTaskAdded, TypeTaskStarted, TypeTaskCompleted, TypeTaskDeleted,
		TypeGradeAdded, TypeGradeDeleted, TypeSessionScheduled, TypeEventAdded,
		TypeNote, TypeCustom:
		return true
	}
	return false
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	ID          int64     `json:"id,omitempty"`
	Type        Type      `json:"type"`
	Description string    `json:"description"`
	SubjectID   string    `json:"subjectId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	PendingSync bool      `json:"pendingSync"`
}

// NewActivity creates an activity entry.
func NewActivity(t Type, subjectID, description string, at time.Time) (Activity, error) {
	if !t.IsValid() {
		return Activity{}, ErrInvalidType
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return Activity{}, ErrEmptyDescription
	}
	return Activity{
		Type:        t,
		Description: description,
		SubjectID:   subjectID,
		CreatedAt:   at,
	}, nil
}

// Note is a free-form journal note.
type Note struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title" validate:"notblank,max=200"`
	Body        string    `json:"body" validate:"max=10000"`
	CreatedAt   time.Time `json:"createdAt"`
	PendingSync bool      `json:"pendingSync"`
}

// Normalize trims free-text fields.
func (n *Note) Normalize() {
	n.Title = strings.TrimSpace(n.Title)
	n.Body = strings.TrimSpace(n.Body)
}

// SortNewestFirst orders activities by creation time, newest first.
func SortNewestFirst(activities []Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		if !activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].CreatedAt.After(activities[j].CreatedAt)
		}
		return activities[i].ID > activities[j].ID
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAKS
// ══════════════════════════════════════════════════════════════════════════════

// Streak counts consecutive days with at least one activity.
type Streak struct {
	Current       int       `json:"current"`
	Longest       int       `json:"longest"`
	LastActiveDay time.Time `json:"lastActiveDay"`
}

// ComputeStreak walks activities in time order. The current streak is zero
// when the last active day is before yesterday relative to now.
func ComputeStreak(activities []Activity, now time.Time) Streak {
	sorted := make([]Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var s Streak
	for _, a := range sorted {
		s.record(a.CreatedAt.In(now.Location()))
	}

	if !s.LastActiveDay.IsZero() && daysBetween(s.LastActiveDay, truncateToDay(now)) > 1 {
		s.Current = 0
	}
	return s
}

func (s *Streak) record(at time.Time) {
	day := truncateToDay(at)

	if s.LastActiveDay.IsZero() {
		s.Current = 1
		s.Longest = 1
		s.LastActiveDay = day
		return
	}

	switch daysBetween(s.LastActiveDay, day) {
	case 0:
	case 1:
		s.Current++
		if s.Current > s.Longest {
			s.Longest = s.Current
		}
		s.LastActiveDay = day
	default:
		s.Current = 1
		s.LastActiveDay = day
	}
}

// daysBetween counts calendar days from a to b; both are day starts.
func daysBetween(a, b time.Time) int {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	ua := time.Date(ya, ma, da, 0, 0, 0, 0, time.UTC)
	ub := time.Date(yb, mb, db, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// truncateToDay returns the start of the day t falls on.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DailyProgress counts the activity of one day by type.
type DailyProgress struct {
	Date   time.Time    `json:"date"`
	Total  int          `json:"total"`
	ByType map[Type]int `json:"byType"`
}

// ProgressOn tallies the activities on the day of t.
func ProgressOn(activities []Activity, t time.Time) DailyProgress {
	day := truncateToDay(t)
	p := DailyProgress{Date: day, ByType: make(map[Type]int)}
	for _, a := range activities {
		if truncateToDay(a.CreatedAt.In(t.Location())).Equal(day) {
			p.Total++
			p.ByType[a.Type]++
		}
	}
	return p
}
