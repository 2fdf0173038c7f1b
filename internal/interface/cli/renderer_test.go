package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/activity"
	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/grade"
	"github.com/athlete-hub/athlete-hub/internal/domain/settings"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
)

type fakeSubscriber struct {
	subs     map[string]state.Subscriber
	detached int
}

func (f *fakeSubscriber) Subscribe(key string, fn state.Subscriber) shared.Unsubscribe {
	if f.subs == nil {
		f.subs = make(map[string]state.Subscriber)
	}
	f.subs[key] = fn
	return func() { f.detached++ }
}

func TestRendererAttach(t *testing.T) {
	var out bytes.Buffer
	sub := &fakeSubscriber{}
	detach := NewRenderer(&out).Attach(sub)
	assert.Len(t, sub.subs, 8)

	require.NoError(t, sub.subs[state.KeyCurrentView](settings.ViewCalendar))
	require.NoError(t, sub.subs[state.KeyAssignments](map[string]task.Task{
		"a": {ID: "a", Status: task.StatusTodo},
		"b": {ID: "b", Status: task.StatusCompleted},
	}))
	assert.Equal(t,
		"» view: calendar\n» assignments: 2 (todo 1, in progress 0, completed 1)\n",
		out.String())

	detach()
	assert.Equal(t, 8, sub.detached)
}

func TestDescribeChange(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  string
		ok    bool
	}{
		{"no grades", state.KeyGradeAnalytics, grade.Analytics{}, "gpa: no grades yet", true},
		{"analytics", state.KeyGradeAnalytics, grade.Analytics{Count: 2, Current: 3.6, Average: 3.4, Trend: grade.TrendUp}, "gpa: current 3.60, average 3.40, trend up", true},
		{"events", state.KeyEvents, map[string]calendar.Event{
			"1": {ID: "1", Date: "2025-01-12"},
			"2": {ID: "2", Date: "2025-01-12T18:00"},
			"3": {ID: "3", Date: "2025-01-13"},
		}, "calendar: 3 events on 2 days", true},
		{"activity", state.KeyJournal, activity.Activity{Description: "Added assignment: Essay"}, "activity: Added assignment: Essay", true},
		{"note deleted", state.KeyJournal, int64(42), "note 42 deleted", true},
		{"stray int", state.KeyGrades, int64(42), "", false},
		{"unknown", state.KeySettings, "raw", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := describeChange(tt.key, tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintError(t *testing.T) {
	var out bytes.Buffer
	PrintError(&out, shared.NewValidationError("task", "add", []string{"title is required", "due date is invalid"}))
	assert.Equal(t, "invalid input:\n  - due date is invalid\n  - title is required\n", out.String())

	out.Reset()
	PrintError(&out, errors.New("disk full"))
	assert.Equal(t, "error: disk full\n", out.String())
}
