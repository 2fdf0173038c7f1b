package manager_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/application/manager"
	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store/storetest"
)

func essay() task.Task {
	return task.Task{Title: "Essay", DueDate: "2025-01-10", Priority: task.PriorityHigh}
}

func TestAddThenGetTask(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)

	added, err := m.Add(context.Background(), essay())
	require.NoError(t, err)

	got, err := m.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, "id-001", got.ID)
	assert.Equal(t, "Essay", got.Title)
	assert.Equal(t, "2025-01-10", got.DueDate)
	assert.Equal(t, task.PriorityHigh, got.Priority)
	assert.Equal(t, task.StatusTodo, got.Status)
	assert.Equal(t, fixedNow, got.CreatedAt)
	assert.Nil(t, got.CompletedAt)
}

func TestAddTaskIgnoresIncomingStatus(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)

	in := essay()
	in.Status = task.StatusCompleted
	added, err := m.Add(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, task.StatusTodo, added.Status)
}

func TestAddInvalidTask(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)

	_, err := m.Add(context.Background(), task.Task{Title: "  ", DueDate: "soon", Priority: "urgent"})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Len(t, shared.ValidationReasons(err), 3)
	assert.Empty(t, m.List())
}

func TestTaskLifecycle(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)
	ctx := context.Background()

	var seen []shared.EventType
	_, err := h.bus.SubscribeAll(func(e shared.Event) error {
		seen = append(seen, e.EventType())
		return nil
	})
	require.NoError(t, err)

	added, err := m.Add(ctx, essay())
	require.NoError(t, err)

	started, err := m.Start(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, started.Status)

	done, err := m.Complete(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, err = m.Start(ctx, added.ID)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	got, err := m.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)

	assert.Contains(t, seen, shared.EventTaskAdded)
	assert.Contains(t, seen, shared.EventTaskStarted)
	assert.Contains(t, seen, shared.EventTaskCompleted)
}

func TestCompleteSkipsInProgress(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)
	ctx := context.Background()

	added, err := m.Add(ctx, essay())
	require.NoError(t, err)

	done, err := m.Complete(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)
}

func TestReturnedTasksAreCopies(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)
	ctx := context.Background()

	added, err := m.Add(ctx, essay())
	require.NoError(t, err)
	done, err := m.Complete(ctx, added.ID)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	stamp := *done.CompletedAt

	*done.CompletedAt = time.Time{}
	got, err := m.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, stamp, *got.CompletedAt)

	*got.CompletedAt = time.Time{}
	listed := m.List()
	require.Len(t, listed, 1)
	assert.Equal(t, stamp, *listed[0].CompletedAt)

	*listed[0].CompletedAt = time.Time{}
	again, err := m.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, stamp, *again.CompletedAt)
}

func TestEditTask(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)
	ctx := context.Background()

	added, err := m.Add(ctx, essay())
	require.NoError(t, err)

	title := "Final essay"
	edited, err := m.Edit(ctx, added.ID, task.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Final essay", edited.Title)
	assert.Equal(t, added.CreatedAt, edited.CreatedAt)

	blank := ""
	_, err = m.Edit(ctx, added.ID, task.Patch{Title: &blank})
	assert.True(t, shared.IsValidation(err))

	got, err := m.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final essay", got.Title)
}

func TestMissingTask(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)
	ctx := context.Background()

	_, err := m.Get("nope")
	assert.True(t, shared.IsNotFound(err))

	_, err = m.Start(ctx, "nope")
	assert.True(t, shared.IsNotFound(err))

	assert.True(t, shared.IsNotFound(m.Delete(ctx, "nope")))
}

func TestBoardQueries(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)
	ctx := context.Background()

	late, err := m.Add(ctx, task.Task{Title: "Lab", DueDate: "2025-01-02", Priority: task.PriorityLow})
	require.NoError(t, err)
	soon, err := m.Add(ctx, essay())
	require.NoError(t, err)
	_, err = m.Start(ctx, soon.ID)
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, late.ID, list[0].ID)

	assert.Len(t, m.ListByStatus(task.StatusInProgress), 1)
	assert.Equal(t, task.Counts{task.StatusTodo: 1, task.StatusInProgress: 1, task.StatusCompleted: 0}, m.Counts())

	overdue := m.Overdue()
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
}

func TestDeleteTaskPublishesState(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)
	ctx := context.Background()

	added, err := m.Add(ctx, essay())
	require.NoError(t, err)

	var last map[string]task.Task
	h.state.Subscribe(state.KeyAssignments, func(v any) error {
		last = v.(map[string]task.Task)
		return nil
	})

	require.NoError(t, m.Delete(ctx, added.ID))
	assert.Empty(t, last)
	assert.Empty(t, h.state.Snapshot().Assignments)
	assert.Empty(t, m.List())
}

func TestTaskPersistFailureKeepsChange(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)

	h.backend.FailKey(store.KeyTasks, true)
	added, err := m.Add(context.Background(), essay())

	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))
	assert.ErrorIs(t, err, storetest.ErrQuotaExceeded)
	assert.Equal(t, "Essay", added.Title)

	got, getErr := m.Get(added.ID)
	require.NoError(t, getErr)
	assert.Equal(t, added, got)
	assert.Contains(t, h.state.Snapshot().Assignments, added.ID)
}

func TestTasksSurviveReload(t *testing.T) {
	h := newHarness(t)
	m := manager.NewAssignmentManager(h.deps(), h.opts()...)
	ctx := context.Background()

	a, err := m.Add(ctx, essay())
	require.NoError(t, err)
	_, err = m.Add(ctx, task.Task{Title: "Lab", DueDate: "2025-02-01", Priority: task.PriorityMedium, Notes: "bring goggles"})
	require.NoError(t, err)
	_, err = m.Complete(ctx, a.ID)
	require.NoError(t, err)

	restarted := newHarnessOn(t, h.backend)
	reloaded := manager.NewAssignmentManager(restarted.deps(), restarted.opts()...)
	require.NoError(t, reloaded.Load(ctx))

	assert.Equal(t, m.List(), reloaded.List())
	assert.Len(t, restarted.state.Snapshot().Assignments, 2)
}
