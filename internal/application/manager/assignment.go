package manager

import (
	"context"
	"sync"

	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT MANAGER
// Owns academic tasks and their board lifecycle (todo → inProgress → completed).
// Persisted as an object map id → Task under academic_tasks.
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentManager owns the task collection.
type AssignmentManager struct {
	base

	// held across mutate and persist
	mu    sync.RWMutex
	tasks map[string]task.Task
}

// NewAssignmentManager creates an empty AssignmentManager. Call Load to read
// persisted tasks.
func NewAssignmentManager(deps Deps, opts ...Option) *AssignmentManager {
	return &AssignmentManager{
		base:  newBase("task", deps, opts),
		tasks: make(map[string]task.Task),
	}
}

// Load replaces the collection with the persisted tasks and seeds the state.
func (m *AssignmentManager) Load(ctx context.Context) error {
	var stored map[string]task.Task
	_, err := m.load(ctx, store.KeyTasks, &stored)

	m.mu.Lock()
	m.tasks = make(map[string]task.Task, len(stored))
	for id, t := range stored {
		if t.ID == "" {
			t.ID = id
		}
		if t.Status == "" {
			t.Status = task.StatusTodo
		}
		m.tasks[t.ID] = t
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.seed(state.KeyAssignments, snapshot)
	m.logger.Debug("tasks loaded", "count", len(snapshot))
	return err
}

// Add validates t, assigns its id and timestamps and stores it as todo.
func (m *AssignmentManager) Add(ctx context.Context, t task.Task) (task.Task, error) {
	const op = "Add"

	t.Normalize()
	t.Status = task.StatusTodo
	t.CompletedAt = nil
	if err := m.validationErr(op, m.validator.Task(t)); err != nil {
		return task.Task{}, err
	}

	m.mu.Lock()
	if t.ID == "" {
		t.ID = m.newID()
	}
	if _, exists := m.tasks[t.ID]; exists {
		m.mu.Unlock()
		return task.Task{}, m.alreadyExists(op, t.ID)
	}
	now := m.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tasks[t.ID] = t
	persistErr := m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	err := m.publish(ctx, snapshot, shared.EventTaskAdded, t)
	return t, outcome(persistErr, err)
}

// Edit applies patch to the task with id. A status in the patch goes through
// the lifecycle rules.
func (m *AssignmentManager) Edit(ctx context.Context, id string, patch task.Patch) (task.Task, error) {
	const op = "Edit"

	m.mu.Lock()
	current, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return task.Task{}, m.notFound(op, id)
	}

	next := patch.Apply(current)
	next.Normalize()
	if err := m.validationErr(op, m.validator.Task(next)); err != nil {
		m.mu.Unlock()
		return task.Task{}, err
	}

	now := m.now()
	if patch.Status != nil {
		if err := next.TransitionTo(*patch.Status, now); err != nil {
			m.mu.Unlock()
			return task.Task{}, err
		}
	}
	next.UpdatedAt = now
	m.tasks[id] = next
	persistErr := m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	eventType := shared.EventTaskUpdated
	if next.Status != current.Status {
		eventType = statusEvent(next.Status)
	}
	err := m.publish(ctx, snapshot, eventType, next)
	return copyTask(next), outcome(persistErr, err)
}

// Start moves the task to inProgress.
func (m *AssignmentManager) Start(ctx context.Context, id string) (task.Task, error) {
	status := task.StatusInProgress
	return m.Edit(ctx, id, task.Patch{Status: &status})
}

// Complete moves the task to completed and stamps its completion time.
func (m *AssignmentManager) Complete(ctx context.Context, id string) (task.Task, error) {
	status := task.StatusCompleted
	return m.Edit(ctx, id, task.Patch{Status: &status})
}

// Delete removes the task with id.
func (m *AssignmentManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	removed, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return m.notFound("Delete", id)
	}
	delete(m.tasks, id)
	persistErr := m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	err := m.publish(ctx, snapshot, shared.EventTaskDeleted, removed)
	return outcome(persistErr, err)
}

// Get returns the task with id.
func (m *AssignmentManager) Get(id string) (task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return task.Task{}, m.notFound("Get", id)
	}
	return copyTask(t), nil
}

// List returns every task in board order.
func (m *AssignmentManager) List() []task.Task {
	m.mu.RLock()
	out := make([]task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, copyTask(t))
	}
	m.mu.RUnlock()

	task.SortForBoard(out)
	return out
}

// ListByStatus returns the tasks in one board column.
func (m *AssignmentManager) ListByStatus(status task.Status) []task.Task {
	var out []task.Task
	for _, t := range m.List() {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Counts returns the number of tasks per column.
func (m *AssignmentManager) Counts() task.Counts {
	return task.CountByStatus(m.List())
}

// Overdue returns open tasks whose due day has passed.
func (m *AssignmentManager) Overdue() []task.Task {
	now := m.now()
	var out []task.Task
	for _, t := range m.List() {
		if t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	return out
}

func (m *AssignmentManager) persistLocked(ctx context.Context) error {
	return m.persist(ctx, store.KeyTasks, m.tasks)
}

func (m *AssignmentManager) snapshotLocked() map[string]task.Task {
	out := make(map[string]task.Task, len(m.tasks))
	for id, t := range m.tasks {
		out[id] = copyTask(t)
	}
	return out
}

func (m *AssignmentManager) publish(ctx context.Context, snapshot map[string]task.Task, eventType shared.EventType, t task.Task) error {
	err := m.update(ctx, state.KeyAssignments, snapshot)
	m.announce(eventType, t.ID, t.Title, string(t.Status))
	return err
}

func copyTask(t task.Task) task.Task {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

func statusEvent(s task.Status) shared.EventType {
	switch s {
	case task.StatusInProgress:
		return shared.EventTaskStarted
	case task.StatusCompleted:
		return shared.EventTaskCompleted
	}
	return shared.EventTaskUpdated
}
