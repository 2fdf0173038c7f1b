package state

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/grade"
	"github.com/athlete-hub/athlete-hub/internal/domain/settings"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
)

// entry is one [id, value] pair of a persisted map.
type entry[V any] struct {
	ID    string
	Value V
}

// MarshalJSON encodes the entry as a two-element array.
func (e entry[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.ID, e.Value})
}

// UnmarshalJSON decodes a two-element array.
func (e *entry[V]) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("state entry: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return fmt.Errorf("state entry id: %w", err)
	}
	return json.Unmarshal(pair[1], &e.Value)
}

func entries[V any](m map[string]V) []entry[V] {
	out := make([]entry[V], 0, len(m))
	for id, v := range m {
		out = append(out, entry[V]{ID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func fromEntries[V any](list []entry[V]) map[string]V {
	out := make(map[string]V, len(list))
	for _, e := range list {
		out[e.ID] = e.Value
	}
	return out
}

// persistedState is the academic_state layout.
type persistedState struct {
	Grades      []grade.Grade           `json:"grades"`
	Assignments []entry[task.Task]      `json:"assignments"`
	Events      []entry[calendar.Event] `json:"events"`
	CurrentView settings.View           `json:"currentView,omitempty"`
	Settings    *settings.Partial       `json:"settings,omitempty"`
	Version     int                     `json:"version"`
}

func toPersisted(s AppState) persistedState {
	st := s.Settings
	return persistedState{
		Grades:      s.Grades,
		Assignments: entries(s.Assignments),
		Events:      entries(s.Events),
		CurrentView: s.CurrentView,
		Settings: &settings.Partial{
			Theme:         &st.Theme,
			Notifications: &st.Notifications,
			CalendarView:  &st.CalendarView,
			Language:      &st.Language,
		},
		Version: stateVersion,
	}
}

func (p persistedState) toAppState() AppState {
	s := newAppState()
	if p.Grades != nil {
		s.Grades = p.Grades
	}
	s.Assignments = fromEntries(p.Assignments)
	s.Events = fromEntries(p.Events)
	if p.CurrentView.IsValid() {
		s.CurrentView = p.CurrentView
	}
	return s
}
