// Package task contains the academic task (assignment) entity and its
// board lifecycle. This is a pure domain layer with zero external dependencies.
package task

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority is one of the known levels.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is the board column a task sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

// Statuses lists board columns in lifecycle order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusCompleted}

// rank orders statuses along the lifecycle.
func (s Status) rank() int {
	switch s {
	case StatusTodo:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether a task may move from s to next.
// Moves only go forward; skipping a column is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.IsValid() || !s.IsValid() {
		return false
	}
	return next.rank() >= s.rank()
}

// Task is an academic assignment tracked on the board.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title" validate:"notblank,max=200"`
	DueDate     string     `json:"dueDate" validate:"required,calendardate"`
	Priority    Priority   `json:"priority" validate:"required,oneof=low medium high"`
	Notes       string     `json:"notes,omitempty" validate:"max=2000"`
	Status      Status     `json:"status" validate:"omitempty,oneof=todo inProgress completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Normalize trims free-text fields.
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Notes = strings.TrimSpace(t.Notes)
	t.DueDate = strings.TrimSpace(t.DueDate)
}

// TransitionTo moves the task to next at the given time.
// Moving backwards returns a state transition error and leaves the task untouched.
func (t *Task) TransitionTo(next Status, at time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return shared.NewDomainError("task", "TransitionTo", shared.ErrStateTransition,
			fmt.Sprintf("cannot move task from %s to %s", t.Status, next))
	}
	if t.Status == next {
		return nil
	}

	t.Status = next
	t.UpdatedAt = at
	if next == StatusCompleted {
		done := at
		t.CompletedAt = &done
	}
	return nil
}

// IsOverdue reports whether an open task is past its due day.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Status == StatusCompleted {
		return false
	}
	due, err := timeutil.Parse(t.DueDate)
	if err != nil {
		return false
	}
	return timeutil.StartOfDay(due).Before(timeutil.StartOfDay(now))
}

// Patch holds the fields an edit may change. Nil fields are left as is.
type Patch struct {
	Title    *string
	DueDate  *string
	Priority *Priority
	Notes    *string
	Status   *Status
}

// Apply returns a copy of t with the patch applied. Status is not applied
// here; it goes through TransitionTo.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}

// Counts is the number of tasks per board column.
type Counts map[Status]int

// CountByStatus tallies tasks per status. Every column is present.
func CountByStatus(tasks []Task) Counts {
	counts := Counts{}
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// SortForBoard orders tasks by due date, then creation time, then id.
func SortForBoard(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		di, errI := timeutil.Parse(tasks[i].DueDate)
		dj, errJ := timeutil.Parse(tasks[j].DueDate)
		if errI == nil && errJ == nil && !di.Equal(dj) {
			return di.Before(dj)
		}
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
