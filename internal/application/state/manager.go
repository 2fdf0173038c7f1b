// Package state implements the State Manager: the aggregate hub state other
// components query and subscribe to. Updates are applied in memory, delivered
// synchronously to the subscribers of the changed key, then persisted.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/grade"
	"github.com/athlete-hub/athlete-hub/internal/domain/settings"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
	"github.com/athlete-hub/athlete-hub/internal/domain/validation"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

// State keys.
const (
	KeyGrades      = "grades"
	KeyAssignments = "assignments"
	KeyEvents      = "events"
	KeyCurrentView = "currentView"
	KeySettings    = "settings"

	// Notify-only keys: delivered to subscribers, not part of AppState.
	KeySessions       = "sessions"
	KeyGradeAnalytics = "gradeAnalytics"
	KeyJournal        = "journal"
)

// stateVersion is written with every persisted aggregate.
const stateVersion = 1

// Persister is the part of the Durable Store the State Manager needs.
type Persister interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Subscriber receives the new value of a key. A returned error or a panic is
// isolated to this subscriber.
type Subscriber func(value any) error

// AppState is the aggregate hub state.
type AppState struct {
	Grades      []grade.Grade
	Assignments map[string]task.Task
	Events      map[string]calendar.Event
	CurrentView settings.View
	Settings    settings.Settings
}

func newAppState() AppState {
	return AppState{
		Grades:      []grade.Grade{},
		Assignments: map[string]task.Task{},
		Events:      map[string]calendar.Event{},
		CurrentView: settings.ViewOverview,
		Settings:    settings.Defaults(),
	}
}

// clone returns a deep enough copy for callers to mutate freely.
func (s AppState) clone() AppState {
	out := AppState{
		Grades:      make([]grade.Grade, len(s.Grades)),
		Assignments: make(map[string]task.Task, len(s.Assignments)),
		Events:      make(map[string]calendar.Event, len(s.Events)),
		CurrentView: s.CurrentView,
		Settings:    s.Settings,
	}
	copy(out.Grades, s.Grades)
	for k, v := range s.Assignments {
		out.Assignments[k] = v
	}
	for k, v := range s.Events {
		out.Events[k] = v
	}
	return out
}

// Manager owns the AppState.
type Manager struct {
	mu    sync.RWMutex
	state AppState

	// serializes aggregate writes; never held while notifying
	persistMu sync.Mutex

	bus       shared.EventBus
	store     Persister
	validator *validation.Validator
	logger    *slog.Logger
}

// NewManager creates a Manager with default state. Call Hydrate to load
// persisted state.
func NewManager(bus shared.EventBus, st Persister, validator *validation.Validator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.Default()
	}
	return &Manager{
		state:     newAppState(),
		bus:       bus,
		store:     st,
		validator: validator,
		logger:    logger.With("component", "state"),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTIONS
// ══════════════════════════════════════════════════════════════════════════════

// Subscribe registers fn for changes of key. Subscribers of one key are
// called in registration order.
func (m *Manager) Subscribe(key string, fn Subscriber) shared.Unsubscribe {
	unsub, err := m.bus.Subscribe(shared.StateEventType(key), func(e shared.Event) error {
		changed, ok := e.(shared.StateChangedEvent)
		if !ok {
			return nil
		}
		return deliver(key, changed.Value, fn)
	})
	if err != nil {
		m.logger.Warn("subscribe failed", "key", key, "error", err)
		return func() {}
	}
	return unsub
}

// deliver calls fn and converts failures into a StateNotifyError.
func deliver(key string, value any, fn Subscriber) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &shared.StateNotifyError{Key: key, Cause: r}
		}
	}()
	if cbErr := fn(value); cbErr != nil {
		return &shared.StateNotifyError{Key: key, Cause: cbErr}
	}
	return nil
}

// Notify delivers value to subscribers of key without changing AppState.
func (m *Manager) Notify(key string, value any) {
	if err := m.bus.Publish(shared.NewStateChangedEvent(key, value)); err != nil {
		// individual subscriber failures were already logged by the bus
		m.logger.Debug("state subscribers failed", "key", key, "error", err)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATES
// ══════════════════════════════════════════════════════════════════════════════

// UpdateState replaces the slice at key, notifies the key's subscribers, then
// persists the aggregate. A persistence failure is logged and returned; the
// in-memory update and the notification stand. Subscriber failures do not
// make the update fail.
func (m *Manager) UpdateState(ctx context.Context, key string, value any) error {
	m.mu.Lock()
	delivered, err := m.apply(key, value)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.Notify(key, delivered)

	return m.persist(ctx, key == KeySettings)
}

// Seed replaces the slice at key without notifying or persisting. Used by
// the entity managers after they load their own collections.
func (m *Manager) Seed(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.apply(key, value)
	return err
}

// apply sets key to a private copy of value and returns another copy for
// subscribers. Callers hold m.mu.
func (m *Manager) apply(key string, value any) (any, error) {
	switch key {
	case KeyGrades:
		v, ok := value.([]grade.Grade)
		if !ok {
			return nil, wrongType(key, value)
		}
		m.state.Grades = append([]grade.Grade{}, v...)
		return append([]grade.Grade{}, v...), nil

	case KeyAssignments:
		v, ok := value.(map[string]task.Task)
		if !ok {
			return nil, wrongType(key, value)
		}
		m.state.Assignments = copyMap(v)
		return copyMap(v), nil

	case KeyEvents:
		v, ok := value.(map[string]calendar.Event)
		if !ok {
			return nil, wrongType(key, value)
		}
		m.state.Events = copyMap(v)
		return copyMap(v), nil

	case KeyCurrentView:
		v, ok := value.(settings.View)
		if !ok {
			return nil, wrongType(key, value)
		}
		if !v.IsValid() {
			return nil, shared.NewValidationError("state", "UpdateState", []string{fmt.Sprintf("unknown view %q", v)})
		}
		m.state.CurrentView = v
		return v, nil

	case KeySettings:
		v, ok := value.(settings.Settings)
		if !ok {
			return nil, wrongType(key, value)
		}
		m.state.Settings = v
		return v, nil
	}

	return nil, shared.NewDomainError("state", "UpdateState", shared.ErrInvalidInput,
		fmt.Sprintf("unknown state key %q", key))
}

func wrongType(key string, value any) error {
	return shared.NewDomainError("state", "UpdateState", shared.ErrInvalidInput,
		fmt.Sprintf("state key %q cannot hold %T", key, value))
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot returns a copy of the whole AppState.
func (m *Manager) Snapshot() AppState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Settings returns the current settings.
func (m *Manager) Settings() settings.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Settings
}

// CurrentView returns the view on screen.
func (m *Manager) CurrentView() settings.View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CurrentView
}

// UpdateSettings applies the present fields of patch, validates the result
// and stores it. Invalid settings change nothing.
func (m *Manager) UpdateSettings(ctx context.Context, patch settings.Partial) (settings.Settings, error) {
	next := patch.Apply(m.Settings())
	if err := m.validator.Settings(next).Err("settings", "Update"); err != nil {
		return m.Settings(), err
	}
	return next, m.UpdateState(ctx, KeySettings, next)
}

// SetView switches the current view.
func (m *Manager) SetView(ctx context.Context, view settings.View) error {
	return m.UpdateState(ctx, KeyCurrentView, view)
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSISTENCE
// ══════════════════════════════════════════════════════════════════════════════

// persist writes the aggregate, and the settings key when asked.
func (m *Manager) persist(ctx context.Context, withSettings bool) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	snap := m.Snapshot()

	if err := m.store.Set(ctx, store.KeyState, toPersisted(snap)); err != nil {
		m.logger.Error("state persist failed", "error", err)
		return err
	}
	if withSettings {
		if err := m.store.Set(ctx, store.KeySettings, snap.Settings); err != nil {
			m.logger.Error("settings persist failed", "error", err)
			return err
		}
	}
	return nil
}

// Hydrate loads settings and the persisted aggregate. Settings missing from
// storage, wholly or per field, are filled from defaults. Entity managers
// seed their collections afterwards, so the aggregate only seeds slices they
// do not own.
func (m *Manager) Hydrate(ctx context.Context) {
	var persisted persistedState
	foundState, err := m.store.Get(ctx, store.KeyState, &persisted)
	if err != nil {
		m.logger.Warn("persisted state unreadable, starting fresh", "error", err)
		foundState = false
	}

	var partial settings.Partial
	foundSettings, err := m.store.Get(ctx, store.KeySettings, &partial)
	if err != nil {
		m.logger.Warn("persisted settings unreadable, using defaults", "error", err)
		foundSettings = false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if foundState {
		m.state = persisted.toAppState()
	}
	switch {
	case foundSettings:
		m.state.Settings = settings.WithDefaults(partial)
	case foundState && persisted.Settings != nil:
		m.state.Settings = settings.WithDefaults(*persisted.Settings)
	default:
		m.state.Settings = settings.Defaults()
	}

	m.logger.Debug("state hydrated",
		"from_state", foundState,
		"from_settings", foundSettings,
		"view", m.state.CurrentView,
	)
}
