package validation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/domain/activity"
	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/grade"
	"github.com/athlete-hub/athlete-hub/internal/domain/session"
	"github.com/athlete-hub/athlete-hub/internal/domain/settings"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 15, 10, 0, 0, 0, timeutil.Location())
}

func validGrade() grade.Grade {
	return grade.Grade{Year: 2, Semester: "Fall", GPA: grade.GPA(3.5), Date: "2025-01-10"}
}

func TestGrade(t *testing.T) {
	v := New()

	assert.True(t, v.Grade(validGrade()).IsValid)

	tests := []struct {
		name   string
		mutate func(*grade.Grade)
		want   string
	}{
		{"negative gpa", func(g *grade.Grade) { g.GPA = grade.GPA(-1) }, "gpa"},
		{"gpa above scale", func(g *grade.Grade) { g.GPA = grade.GPA(4.5) }, "gpa"},
		{"nan gpa", func(g *grade.Grade) { g.GPA = grade.GPA(math.NaN()) }, "gpa"},
		{"missing gpa", func(g *grade.Grade) { g.GPA = nil }, "gpa is required"},
		{"missing date", func(g *grade.Grade) { g.Date = "" }, "date is required"},
		{"bad date", func(g *grade.Grade) { g.Date = "tomorrow-ish" }, "date must be a valid date"},
		{"missing year", func(g *grade.Grade) { g.Year = 0 }, "year is required"},
		{"blank semester", func(g *grade.Grade) { g.Semester = "  " }, "semester is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGrade()
			tt.mutate(&g)

			r := v.Grade(g)
			assert.False(t, r.IsValid)
			require.NotEmpty(t, r.Errors)
			assert.Contains(t, strings.Join(r.Errors, "\n"), tt.want)
		})
	}
}

func TestGradeBoundsAreInclusive(t *testing.T) {
	for _, gpa := range []float64{0, 4} {
		g := validGrade()
		g.GPA = grade.GPA(gpa)
		assert.True(t, ValidateGrade(g).IsValid, "gpa %v", gpa)
	}
}

func TestTask(t *testing.T) {
	v := New()

	ok := task.Task{Title: "Essay", DueDate: "2025-01-10", Priority: task.PriorityHigh}
	assert.True(t, v.Task(ok).IsValid)

	r := v.Task(task.Task{Title: "   ", DueDate: "not a date", Priority: "urgent"})
	assert.False(t, r.IsValid)
	assert.Len(t, r.Errors, 3)
	joined := strings.Join(r.Errors, "\n")
	assert.Contains(t, joined, "title is required")
	assert.Contains(t, joined, "dueDate must be a valid date")
	assert.Contains(t, joined, "priority")
}

func TestTaskAcceptsDateTimeDueDate(t *testing.T) {
	r := ValidateTask(task.Task{Title: "Lab", DueDate: "2025-01-10T09:30", Priority: task.PriorityLow})
	assert.True(t, r.IsValid, r.Errors)
}

func TestEventInPastIsRejected(t *testing.T) {
	now := fixedNow()
	yesterday := now.AddDate(0, 0, -1).Format(timeutil.FormatDate)

	r := ValidateEvent(calendar.Event{Title: "X", Date: yesterday}, now)
	assert.False(t, r.IsValid)
	require.NotEmpty(t, r.Errors)
	assert.Contains(t, strings.Join(r.Errors, "\n"), "date cannot be in the past")
}

func TestEventTodayAndFuture(t *testing.T) {
	now := fixedNow()
	v := New()

	assert.True(t, v.Event(calendar.Event{Title: "Meet", Date: "2025-03-15"}, now).IsValid)
	assert.True(t, v.Event(calendar.Event{Title: "Meet", Date: "2025-03-15T18:00"}, now).IsValid)
	assert.False(t, v.Event(calendar.Event{Title: "Meet", Date: "2025-03-15T08:00"}, now).IsValid)
}

func TestEventFieldErrors(t *testing.T) {
	r := New().Event(calendar.Event{Title: "", Date: ""}, fixedNow())
	assert.False(t, r.IsValid)
	assert.Equal(t, []string{"title is required", "date is required"}, r.Errors)
}

func TestSessionExactDuplicateConflicts(t *testing.T) {
	existing := []session.Session{{ID: "a", Title: "Sprint", Date: "2025-04-01", Time: "07:00"}}
	candidate := session.Session{ID: "b", Title: "Sprint", Date: "2025-04-01", Time: "07:00"}

	r := ValidateSession(candidate, existing)
	assert.False(t, r.IsValid)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "conflicts")
}

func TestSessionOverlapUsesDuration(t *testing.T) {
	v := New(WithDefaultSessionDuration(90 * time.Minute))
	existing := []session.Session{{ID: "a", Title: "Swim", Date: "2025-04-01", Time: "07:00"}}

	assert.False(t, v.Session(session.Session{ID: "b", Title: "Gym", Date: "2025-04-01", Time: "08:00"}, existing).IsValid)
	assert.True(t, v.Session(session.Session{ID: "c", Title: "Gym", Date: "2025-04-01", Time: "08:30"}, existing).IsValid)
	assert.True(t, v.Session(session.Session{ID: "d", Title: "Gym", Date: "2025-04-02", Time: "07:00"}, existing).IsValid)
}

func TestSessionFieldRules(t *testing.T) {
	v := New()

	r := v.Session(session.Session{Title: "Run", Date: "2025-04-01", Time: "25:00"}, nil)
	assert.False(t, r.IsValid)
	assert.Contains(t, strings.Join(r.Errors, "\n"), "HH:MM")

	r = v.Session(session.Session{Title: "Run", Date: "2025-04-01", IsRecurring: true}, nil)
	assert.False(t, r.IsValid)
	assert.Contains(t, strings.Join(r.Errors, "\n"), "recurrenceRule is required")

	r = v.Session(session.Session{
		Title: "Run", Date: "2025-04-01", IsRecurring: true,
		RecurrenceRule: &session.RecurrenceRule{Frequency: "hourly", Interval: 1},
	}, nil)
	assert.False(t, r.IsValid)

}

func TestRecurringTemplateUntilDate(t *testing.T) {
	v := New()
	template := session.Session{
		Title: "Run", Date: "2025-04-10", IsRecurring: true,
		RecurrenceRule: &session.RecurrenceRule{Frequency: session.FrequencyWeekly, Interval: 1, Until: "2025-04-01"},
	}

	r := v.Recurring(template)
	assert.False(t, r.IsValid)
	assert.Contains(t, r.Errors, MsgUntilBeforeStart)

	template.Date = "2025-03-25"
	assert.True(t, v.Recurring(template).IsValid)

	// A generated occurrence keeps its copy of the rule but is not bound by it.
	occurrence := template
	occurrence.Date = "2025-05-01"
	assert.True(t, v.Session(occurrence, nil).IsValid)
}

func TestSessionsBatchChecksWithinBatch(t *testing.T) {
	batch := []session.Session{
		{ID: "1", Title: "A", Date: "2025-04-01", Time: "07:00"},
		{ID: "2", Title: "B", Date: "2025-04-01", Time: "07:30"},
	}
	r := New().Sessions(batch, nil)
	assert.False(t, r.IsValid)
	assert.Len(t, r.Errors, 1)
}

func TestSettings(t *testing.T) {
	v := New()
	assert.True(t, v.Settings(settings.Defaults()).IsValid)

	s := settings.Defaults()
	s.Theme = "neon"
	assert.False(t, v.Settings(s).IsValid)
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{IsValid: true}.Err("task", "Add"))

	err := Result{Errors: []string{"title is required"}}.Err("task", "Add")
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, []string{"title is required"}, shared.ValidationReasons(err))
}

func TestNote(t *testing.T) {
	v := New()
	assert.True(t, v.Note(activity.Note{Title: "Coach feedback"}).IsValid)

	r := v.Note(activity.Note{Title: "   "})
	assert.False(t, r.IsValid)
	assert.Equal(t, []string{"title is required"}, r.Errors)
}
