package manager_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/application/manager"
	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/session"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

func practice(date, clock string) session.Session {
	return session.Session{Title: "Track practice", Date: date, Time: clock}
}

func weekly(count int) *session.RecurrenceRule {
	return &session.RecurrenceRule{Frequency: session.FrequencyWeekly, Interval: 1, Count: count}
}

func TestDuplicateSessionIsRejected(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)
	ctx := context.Background()

	_, err := m.Add(ctx, practice("2025-01-10", "18:00"))
	require.NoError(t, err)

	_, err = m.Add(ctx, practice("2025-01-10", "18:00"))
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.NotEmpty(t, shared.ValidationReasons(err))
	assert.Len(t, m.List(), 1)
}

func TestOverlappingSessionIsRejected(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)
	ctx := context.Background()

	_, err := m.Add(ctx, practice("2025-01-10", "18:00"))
	require.NoError(t, err)

	_, err = m.Add(ctx, practice("2025-01-10", "18:30"))
	assert.True(t, shared.IsValidation(err))

	_, err = m.Add(ctx, practice("2025-01-10", "19:00"))
	assert.NoError(t, err)

	_, err = m.Add(ctx, practice("2025-01-10", ""))
	assert.NoError(t, err)

	assert.Len(t, m.List(), 3)
}

func TestRecurringSessionIsExpanded(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)

	var notified []session.Session
	h.state.Subscribe(state.KeySessions, func(v any) error {
		notified = v.([]session.Session)
		return nil
	})

	s := practice("2025-01-06", "07:00")
	s.IsRecurring = true
	s.RecurrenceRule = weekly(4)

	added, err := m.Add(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, added, 4)

	dates := make([]string, len(added))
	for i, a := range added {
		dates[i] = a.Date
		assert.True(t, a.IsRecurring)
		assert.NotEmpty(t, a.ID)
	}
	assert.Equal(t, []string{"2025-01-06", "2025-01-13", "2025-01-20", "2025-01-27"}, dates)
	assert.Len(t, notified, 4)
	assert.Len(t, m.List(), 4)
}

func TestRecurringAddIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)
	ctx := context.Background()

	_, err := m.Add(ctx, practice("2025-01-20", "07:30"))
	require.NoError(t, err)

	s := practice("2025-01-06", "07:00")
	s.IsRecurring = true
	s.RecurrenceRule = weekly(4)

	_, err = m.Add(ctx, s)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Len(t, m.List(), 1)
}

func TestRecurringWithoutRule(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)

	s := practice("2025-01-06", "07:00")
	s.IsRecurring = true

	_, err := m.Add(context.Background(), s)
	assert.True(t, shared.IsValidation(err))
	assert.Empty(t, m.List())
}

func TestCreateRecurringSessionsRespectsCap(t *testing.T) {
	h := newHarness(t)
	opts := append(h.opts(), manager.WithMaxOccurrences(3))
	m := manager.NewSessionManager(h.deps(), opts...)

	rule := session.RecurrenceRule{Frequency: session.FrequencyDaily, Interval: 1}
	batch, err := m.CreateRecurringSessions(practice("2025-01-06", "07:00"), rule)
	require.NoError(t, err)
	assert.Len(t, batch, 3)
	assert.Empty(t, m.List())

	rule.Until = "2025-01-01"
	_, err = m.CreateRecurringSessions(practice("2025-01-06", "07:00"), rule)
	assert.True(t, shared.IsValidation(err))
}

func TestEditSession(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)
	ctx := context.Background()

	added, err := m.Add(ctx, practice("2025-01-10", "18:00"))
	require.NoError(t, err)
	other, err := m.Add(ctx, practice("2025-01-10", "20:00"))
	require.NoError(t, err)

	// shifting within its own slot is not a conflict with itself
	clock := "18:15"
	edited, err := m.Edit(ctx, added[0].ID, session.Patch{Time: &clock})
	require.NoError(t, err)
	assert.Equal(t, "18:15", edited.Time)

	clock = "20:30"
	_, err = m.Edit(ctx, added[0].ID, session.Patch{Time: &clock})
	assert.True(t, shared.IsValidation(err))

	got, err := m.Get(added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "18:15", got.Time)

	require.NoError(t, m.Delete(ctx, other[0].ID))
	_, err = m.Get(other[0].ID)
	assert.True(t, shared.IsNotFound(err))
	assert.True(t, shared.IsNotFound(m.Delete(ctx, other[0].ID)))
}

func TestEditOccurrencePastSeriesEnd(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)
	ctx := context.Background()

	s := practice("2025-01-06", "07:00")
	s.IsRecurring = true
	s.RecurrenceRule = &session.RecurrenceRule{Frequency: session.FrequencyWeekly, Interval: 1, Until: "2025-01-20"}

	added, err := m.Add(ctx, s)
	require.NoError(t, err)
	require.Len(t, added, 3)

	moved := "2025-02-10"
	edited, err := m.Edit(ctx, added[0].ID, session.Patch{Date: &moved})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-10", edited.Date)

	got, err := m.Get(added[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-13", got.Date)
}

func TestUpcomingSessions(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)
	ctx := context.Background()

	for _, s := range []session.Session{
		practice("2025-01-09", "18:00"),
		practice("2025-01-03", "18:00"),
		practice("2025-01-05", "06:00"),
	} {
		_, err := m.Add(ctx, s)
		require.NoError(t, err)
	}

	upcoming := m.Upcoming()
	require.Len(t, upcoming, 2)
	assert.Equal(t, "2025-01-05", upcoming[0].Date)
	assert.Equal(t, "2025-01-09", upcoming[1].Date)
}

func TestSessionPersistFailure(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)

	h.backend.FailKey(store.KeySessions, true)
	added, err := m.Add(context.Background(), practice("2025-01-10", "18:00"))

	assert.True(t, shared.IsPersistence(err))
	require.Len(t, added, 1)
	assert.Len(t, m.List(), 1)
}

func TestSessionsSurviveReload(t *testing.T) {
	h := newHarness(t)
	m := manager.NewSessionManager(h.deps(), h.opts()...)
	ctx := context.Background()

	s := practice("2025-01-06", "07:00")
	s.IsRecurring = true
	s.RecurrenceRule = weekly(3)
	s.Location = "Stadium"
	_, err := m.Add(ctx, s)
	require.NoError(t, err)
	_, err = m.Add(ctx, practice("2025-01-07", ""))
	require.NoError(t, err)

	restarted := newHarnessOn(t, h.backend)
	reloaded := manager.NewSessionManager(restarted.deps(), restarted.opts()...)
	require.NoError(t, reloaded.Load(ctx))

	assert.Equal(t, m.List(), reloaded.List())
}
