package manager

import (
	"context"
	"sync"
	"time"

	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/validation"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR MANAGER
// Owns calendar events. The per-day index is rebuilt from the collection after
// every change and is never persisted.
// ══════════════════════════════════════════════════════════════════════════════

// CalendarManager owns the event collection.
type CalendarManager struct {
	base

	// held across mutate and persist
	mu     sync.RWMutex
	events map[string]calendar.Event
	index  calendar.DayIndex
}

// NewCalendarManager creates an empty CalendarManager. Call Load to read
// persisted events.
func NewCalendarManager(deps Deps, opts ...Option) *CalendarManager {
	return &CalendarManager{
		base:   newBase("event", deps, opts),
		events: make(map[string]calendar.Event),
		index:  calendar.BuildDayIndex(nil),
	}
}

// Load replaces the collection with the persisted events and seeds the state.
func (m *CalendarManager) Load(ctx context.Context) error {
	var stored []calendar.Event
	_, err := m.load(ctx, store.KeyEvents, &stored)

	m.mu.Lock()
	m.events = make(map[string]calendar.Event, len(stored))
	for _, e := range stored {
		e.Normalize()
		m.events[e.ID] = e
	}
	m.reindexLocked()
	snapshot := copyMap(m.events)
	m.mu.Unlock()

	m.seed(state.KeyEvents, snapshot)
	m.logger.Debug("events loaded", "count", len(snapshot))
	return err
}

// Add validates e against the current time and stores it.
func (m *CalendarManager) Add(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	const op = "Add"

	e.Normalize()
	now := m.now()
	if err := m.validationErr(op, m.validator.Event(e, now)); err != nil {
		return calendar.Event{}, err
	}

	m.mu.Lock()
	if e.ID == "" {
		e.ID = m.newID()
	}
	if _, exists := m.events[e.ID]; exists {
		m.mu.Unlock()
		return calendar.Event{}, m.alreadyExists(op, e.ID)
	}
	e.CreatedAt = now
	m.events[e.ID] = e
	m.reindexLocked()
	persistErr := m.persistLocked(ctx)
	snapshot := copyMap(m.events)
	m.mu.Unlock()

	err := m.publish(ctx, snapshot, shared.EventCalendarEventAdded, e)
	return e, outcome(persistErr, err)
}

// Edit applies patch to the event with id. The past-date rule only applies
// when the patch moves the event.
func (m *CalendarManager) Edit(ctx context.Context, id string, patch calendar.Patch) (calendar.Event, error) {
	const op = "Edit"

	m.mu.Lock()
	current, ok := m.events[id]
	if !ok {
		m.mu.Unlock()
		return calendar.Event{}, m.notFound(op, id)
	}

	next := patch.Apply(current)
	next.Normalize()
	res := m.validator.Event(next, m.now())
	if next.Date == current.Date {
		res = withoutPastRule(res)
	}
	if err := m.validationErr(op, res); err != nil {
		m.mu.Unlock()
		return calendar.Event{}, err
	}

	m.events[id] = next
	m.reindexLocked()
	persistErr := m.persistLocked(ctx)
	snapshot := copyMap(m.events)
	m.mu.Unlock()

	err := m.publish(ctx, snapshot, shared.EventCalendarEventUpdated, next)
	return next, outcome(persistErr, err)
}

// Delete removes the event with id.
func (m *CalendarManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	removed, ok := m.events[id]
	if !ok {
		m.mu.Unlock()
		return m.notFound("Delete", id)
	}
	delete(m.events, id)
	m.reindexLocked()
	persistErr := m.persistLocked(ctx)
	snapshot := copyMap(m.events)
	m.mu.Unlock()

	err := m.publish(ctx, snapshot, shared.EventCalendarEventDeleted, removed)
	return outcome(persistErr, err)
}

// Get returns the event with id.
func (m *CalendarManager) Get(id string) (calendar.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return calendar.Event{}, m.notFound("Get", id)
	}
	return e, nil
}

// List returns every event in date order.
func (m *CalendarManager) List() []calendar.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked()
}

// EventsOn returns the events on the day t falls on.
func (m *CalendarManager) EventsOn(day time.Time) []calendar.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.On(day)
}

// Upcoming returns at most limit events that are not past. A limit of zero
// or less returns all of them.
func (m *CalendarManager) Upcoming(limit int) []calendar.Event {
	now := m.now()
	var out []calendar.Event
	for _, e := range m.List() {
		if _, err := e.When(); err != nil || e.IsPast(now) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (m *CalendarManager) reindexLocked() {
	m.index = calendar.BuildDayIndex(m.sortedLocked())
}

func (m *CalendarManager) sortedLocked() []calendar.Event {
	out := make([]calendar.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	calendar.SortByDate(out)
	return out
}

func (m *CalendarManager) persistLocked(ctx context.Context) error {
	return m.persist(ctx, store.KeyEvents, m.sortedLocked())
}

func (m *CalendarManager) publish(ctx context.Context, snapshot map[string]calendar.Event, eventType shared.EventType, e calendar.Event) error {
	err := m.update(ctx, state.KeyEvents, snapshot)
	m.announce(eventType, e.ID, e.Title, e.Date)
	return err
}

func withoutPastRule(res validation.Result) validation.Result {
	var errs []string
	for _, msg := range res.Errors {
		if msg != validation.MsgEventInPast {
			errs = append(errs, msg)
		}
	}
	return validation.Result{IsValid: len(errs) == 0, Errors: errs}
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
