package manager

import (
	"context"
	"errors"
	"sync"

	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/session"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION MANAGER
// Schedules training sessions. Recurring sessions are materialized into dated
// copies when added; each copy is edited and deleted on its own afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// SessionManager owns the training session collection.
type SessionManager struct {
	base

	// held across mutate and persist
	mu       sync.RWMutex
	sessions []session.Session
}

// NewSessionManager creates an empty SessionManager. Call Load to read
// persisted sessions.
func NewSessionManager(deps Deps, opts ...Option) *SessionManager {
	m := &SessionManager{base: newBase("session", deps, opts)}
	if m.maxOccurrences == 0 {
		m.maxOccurrences = session.DefaultMaxOccurrences
	}
	return m
}

// Load replaces the collection with the persisted sessions.
func (m *SessionManager) Load(ctx context.Context) error {
	var stored []session.Session
	_, err := m.load(ctx, store.KeySessions, &stored)

	m.mu.Lock()
	m.sessions = stored
	session.SortChronologically(m.sessions)
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Debug("sessions loaded", "count", count)
	return err
}

// CreateRecurringSessions expands template by rule into dated sessions with
// fresh ids. Nothing is stored.
func (m *SessionManager) CreateRecurringSessions(template session.Session, rule session.RecurrenceRule) ([]session.Session, error) {
	template.Normalize()
	batch, err := session.Expand(template, rule, m.maxOccurrences, m.newID)
	if errors.Is(err, session.ErrNoOccurrences) {
		return nil, shared.NewValidationError(m.domain, "CreateRecurringSessions", []string{err.Error()})
	}
	if err != nil {
		return nil, shared.WrapError(m.domain, "CreateRecurringSessions", shared.ErrInvalidInput, "cannot expand recurrence", err)
	}
	return batch, nil
}

// Add schedules s. A recurring session is expanded first and the whole
// series is stored only if every occurrence is valid and free of conflicts.
// It returns the sessions that were stored.
func (m *SessionManager) Add(ctx context.Context, s session.Session) ([]session.Session, error) {
	const op = "Add"

	s.Normalize()
	if s.IsRecurring {
		if err := m.validationErr(op, m.validator.Recurring(s)); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	batch := []session.Session{s}
	if s.IsRecurring {
		expanded, err := m.CreateRecurringSessions(s, *s.RecurrenceRule)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		batch = expanded
	} else if batch[0].ID == "" {
		batch[0].ID = m.newID()
	}

	for _, b := range batch {
		if m.indexLocked(b.ID) >= 0 {
			m.mu.Unlock()
			return nil, m.alreadyExists(op, b.ID)
		}
	}
	if err := m.validationErr(op, m.validator.Sessions(batch, m.sessions)); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	now := m.now()
	for i := range batch {
		batch[i].CreatedAt = now
	}
	m.sessions = append(m.sessions, batch...)
	session.SortChronologically(m.sessions)
	persistErr := m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(state.KeySessions, snapshot)
	for _, b := range batch {
		m.announce(shared.EventSessionScheduled, b.ID, b.Title, b.Date)
	}
	return batch, persistErr
}

// Edit applies patch to the session with id. The result must not conflict
// with any other session.
func (m *SessionManager) Edit(ctx context.Context, id string, patch session.Patch) (session.Session, error) {
	const op = "Edit"

	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return session.Session{}, m.notFound(op, id)
	}

	next := patch.Apply(m.sessions[i])
	next.Normalize()
	if err := m.validationErr(op, m.validator.Session(next, m.sessions)); err != nil {
		m.mu.Unlock()
		return session.Session{}, err
	}

	m.sessions[i] = next
	session.SortChronologically(m.sessions)
	persistErr := m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(state.KeySessions, snapshot)
	m.announce(shared.EventSessionUpdated, next.ID, next.Title, next.Date)
	return next, persistErr
}

// Delete removes the session with id.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return m.notFound("Delete", id)
	}
	removed := m.sessions[i]
	m.sessions = append(m.sessions[:i:i], m.sessions[i+1:]...)
	persistErr := m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(state.KeySessions, snapshot)
	m.announce(shared.EventSessionDeleted, removed.ID, removed.Title, removed.Date)
	return persistErr
}

// Get returns the session with id.
func (m *SessionManager) Get(id string) (session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexLocked(id)
	if i < 0 {
		return session.Session{}, m.notFound("Get", id)
	}
	return copySession(m.sessions[i]), nil
}

// List returns every session in chronological order.
func (m *SessionManager) List() []session.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Upcoming returns sessions from today onwards.
func (m *SessionManager) Upcoming() []session.Session {
	return session.Upcoming(m.List(), m.now())
}

func (m *SessionManager) indexLocked(id string) int {
	for i, s := range m.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (m *SessionManager) persistLocked(ctx context.Context) error {
	sessions := m.sessions
	if sessions == nil {
		sessions = []session.Session{}
	}
	return m.persist(ctx, store.KeySessions, sessions)
}

func (m *SessionManager) snapshotLocked() []session.Session {
	out := make([]session.Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = copySession(s)
	}
	return out
}

func copySession(s session.Session) session.Session {
	if s.RecurrenceRule != nil {
		rule := *s.RecurrenceRule
		s.RecurrenceRule = &rule
	}
	return s
}
