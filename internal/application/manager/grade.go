package manager

import (
	"context"
	"strconv"
	"sync"

	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/grade"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE MANAGER
// Keeps grades newest first and recomputes the analytics after every change.
// ══════════════════════════════════════════════════════════════════════════════

// GradeManager owns the grade collection.
type GradeManager struct {
	base

	// held across mutate and persist
	mu        sync.RWMutex
	grades    []grade.Grade
	analytics grade.Analytics
}

// NewGradeManager creates an empty GradeManager. Call Load to read persisted
// grades.
func NewGradeManager(deps Deps, opts ...Option) *GradeManager {
	return &GradeManager{
		base:      newBase("grade", deps, opts),
		analytics: grade.Analyze(nil),
	}
}

// Load replaces the collection with the persisted grades and seeds the state.
func (m *GradeManager) Load(ctx context.Context) error {
	var stored []grade.Grade
	_, err := m.load(ctx, store.KeyGrades, &stored)

	m.mu.Lock()
	m.grades = stored
	for _, g := range m.grades {
		m.millis.Observe(g.ID)
	}
	m.reindexLocked()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.seed(state.KeyGrades, snapshot)
	m.logger.Debug("grades loaded", "count", len(snapshot))
	return err
}

// Add validates g, assigns its id and timestamp and inserts it in date order.
func (m *GradeManager) Add(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	const op = "Add"

	g.Normalize()
	if err := m.validationErr(op, m.validator.Grade(g)); err != nil {
		return grade.Grade{}, err
	}

	m.mu.Lock()
	if g.ID == 0 {
		g.ID = m.millis.Next()
	} else if m.indexLocked(g.ID) >= 0 {
		m.mu.Unlock()
		return grade.Grade{}, m.alreadyExists(op, gradeID(g.ID))
	}
	m.millis.Observe(g.ID)
	if g.Timestamp == 0 {
		g.Timestamp = m.now().UnixMilli()
	}
	m.grades = append(m.grades, g)
	m.reindexLocked()
	persistErr := m.persistLocked(ctx)
	snapshot, analytics := m.snapshotLocked(), m.analytics
	m.mu.Unlock()

	err := m.publish(ctx, snapshot, analytics, shared.EventGradeAdded, g)
	return g, outcome(persistErr, err)
}

// Edit applies patch to the grade with id.
func (m *GradeManager) Edit(ctx context.Context, id int64, patch grade.Patch) (grade.Grade, error) {
	const op = "Edit"

	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return grade.Grade{}, m.notFound(op, gradeID(id))
	}

	next := patch.Apply(m.grades[i])
	next.Normalize()
	if err := m.validationErr(op, m.validator.Grade(next)); err != nil {
		m.mu.Unlock()
		return grade.Grade{}, err
	}

	m.grades[i] = next
	m.reindexLocked()
	persistErr := m.persistLocked(ctx)
	snapshot, analytics := m.snapshotLocked(), m.analytics
	m.mu.Unlock()

	err := m.publish(ctx, snapshot, analytics, shared.EventGradeUpdated, next)
	return next, outcome(persistErr, err)
}

// Delete removes the grade with id.
func (m *GradeManager) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return m.notFound("Delete", gradeID(id))
	}
	removed := m.grades[i]
	m.grades = append(m.grades[:i:i], m.grades[i+1:]...)
	m.reindexLocked()
	persistErr := m.persistLocked(ctx)
	snapshot, analytics := m.snapshotLocked(), m.analytics
	m.mu.Unlock()

	err := m.publish(ctx, snapshot, analytics, shared.EventGradeDeleted, removed)
	return outcome(persistErr, err)
}

// Get returns the grade with id.
func (m *GradeManager) Get(id int64) (grade.Grade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexLocked(id)
	if i < 0 {
		return grade.Grade{}, m.notFound("Get", gradeID(id))
	}
	return copyGrade(m.grades[i]), nil
}

// List returns the grades newest first.
func (m *GradeManager) List() []grade.Grade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Analytics returns the summary of the current collection.
func (m *GradeManager) Analytics() grade.Analytics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.analytics
}

func (m *GradeManager) indexLocked(id int64) int {
	for i, g := range m.grades {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// reindexLocked restores date order and recomputes the analytics.
func (m *GradeManager) reindexLocked() {
	grade.SortByDateDesc(m.grades)
	m.analytics = grade.Analyze(m.grades)
}

func (m *GradeManager) persistLocked(ctx context.Context) error {
	grades := m.grades
	if grades == nil {
		grades = []grade.Grade{}
	}
	return m.persist(ctx, store.KeyGrades, grades)
}

func (m *GradeManager) snapshotLocked() []grade.Grade {
	out := make([]grade.Grade, len(m.grades))
	for i, g := range m.grades {
		out[i] = copyGrade(g)
	}
	return out
}

func (m *GradeManager) publish(ctx context.Context, snapshot []grade.Grade, analytics grade.Analytics, eventType shared.EventType, g grade.Grade) error {
	err := m.update(ctx, state.KeyGrades, snapshot)
	m.notify(state.KeyGradeAnalytics, analytics)
	m.announce(eventType, gradeID(g.ID), g.Semester+" "+strconv.Itoa(g.Year), strconv.FormatFloat(g.Value(), 'f', 2, 64))
	return err
}

func copyGrade(g grade.Grade) grade.Grade {
	if g.GPA != nil {
		g.GPA = grade.GPA(*g.GPA)
	}
	return g
}

func gradeID(id int64) string {
	return strconv.FormatInt(id, 10)
}
