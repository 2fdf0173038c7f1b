// Package cli is the console front end: flag-based subcommands over the
// entity managers and a renderer that prints state changes as they happen.
package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/activity"
	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/grade"
	"github.com/athlete-hub/athlete-hub/internal/domain/session"
	"github.com/athlete-hub/athlete-hub/internal/domain/settings"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
)

// Subscriber is the part of the State Manager the renderer needs.
type Subscriber interface {
	Subscribe(key string, fn state.Subscriber) shared.Unsubscribe
}

// Renderer prints one line per state change.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Attach subscribes to every rendered key. The returned func detaches.
func (r *Renderer) Attach(sub Subscriber) func() {
	keys := []string{
		state.KeyAssignments,
		state.KeyGrades,
		state.KeyGradeAnalytics,
		state.KeySessions,
		state.KeyEvents,
		state.KeySettings,
		state.KeyCurrentView,
		state.KeyJournal,
	}
	unsubs := make([]shared.Unsubscribe, 0, len(keys))
	for _, key := range keys {
		unsubs = append(unsubs, sub.Subscribe(key, r.render(key)))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (r *Renderer) render(key string) state.Subscriber {
	return func(value any) error {
		line, ok := describeChange(key, value)
		if !ok {
			return nil
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		_, err := fmt.Fprintf(r.out, "» %s\n", line)
		return err
	}
}

func describeChange(key string, value any) (string, bool) {
	switch v := value.(type) {
	case map[string]task.Task:
		tasks := make([]task.Task, 0, len(v))
		for _, t := range v {
			tasks = append(tasks, t)
		}
		c := task.CountByStatus(tasks)
		return fmt.Sprintf("assignments: %d (todo %d, in progress %d, completed %d)",
			len(tasks), c[task.StatusTodo], c[task.StatusInProgress], c[task.StatusCompleted]), true
	case []grade.Grade:
		return fmt.Sprintf("grades: %d recorded", len(v)), true
	case grade.Analytics:
		if v.Count == 0 {
			return "gpa: no grades yet", true
		}
		return fmt.Sprintf("gpa: current %.2f, average %.2f, trend %s", v.Current, v.Average, v.Trend), true
	case []session.Session:
		return fmt.Sprintf("training: %d sessions", len(v)), true
	case map[string]calendar.Event:
		return fmt.Sprintf("calendar: %d events on %d days", len(v), countDays(v)), true
	case settings.Settings:
		return fmt.Sprintf("settings: theme=%s notifications=%t calendar=%s language=%s",
			v.Theme, v.Notifications, v.CalendarView, v.Language), true
	case settings.View:
		return "view: " + string(v), true
	case activity.Activity:
		return "activity: " + v.Description, true
	case activity.Note:
		return "note saved: " + v.Title, true
	case int64:
		if key == state.KeyJournal {
			return fmt.Sprintf("note %d deleted", v), true
		}
	}
	return "", false
}

func countDays(events map[string]calendar.Event) int {
	days := make(map[string]bool, len(events))
	for _, e := range events {
		if k := e.DayKey(); k != "" {
			days[k] = true
		}
	}
	return len(days)
}

// PrintError writes err, listing every reason of a validation failure.
func PrintError(w io.Writer, err error) {
	if reasons := shared.ValidationReasons(err); len(reasons) > 0 {
		sorted := append([]string(nil), reasons...)
		sort.Strings(sorted)
		fmt.Fprintln(w, "invalid input:")
		for _, r := range sorted {
			fmt.Fprintf(w, "  - %s\n", r)
		}
		return
	}
	fmt.Fprintf(w, "error: %s\n", strings.TrimSpace(err.Error()))
}
