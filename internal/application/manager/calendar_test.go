package manager_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/application/manager"
	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/validation"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

func TestPastEventIsRejected(t *testing.T) {
	h := newHarness(t)
	m := manager.NewCalendarManager(h.deps(), h.opts()...)
	ctx := context.Background()

	_, err := m.Add(ctx, calendar.Event{Title: "X", Date: "2025-01-04"})
	require.Error(t, err)
	assert.Contains(t, shared.ValidationReasons(err), validation.MsgEventInPast)

	_, err = m.Add(ctx, calendar.Event{Title: "X", Date: "2025-01-05T09:00"})
	assert.True(t, shared.IsValidation(err))

	today, err := m.Add(ctx, calendar.Event{Title: "Meet", Date: "2025-01-05"})
	require.NoError(t, err)
	assert.Equal(t, calendar.DefaultClassName, today.ClassName)
	assert.Equal(t, fixedNow, today.CreatedAt)
	assert.Len(t, m.List(), 1)
}

func TestEventsOnDay(t *testing.T) {
	h := newHarness(t)
	m := manager.NewCalendarManager(h.deps(), h.opts()...)
	ctx := context.Background()

	for _, e := range []calendar.Event{
		{Title: "Evening meet", Date: "2025-01-07T18:00"},
		{Title: "Morning lift", Date: "2025-01-07T07:00"},
		{Title: "Exam", Date: "2025-01-08", ClassName: "exam"},
	} {
		_, err := m.Add(ctx, e)
		require.NoError(t, err)
	}

	day := m.EventsOn(time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC))
	require.Len(t, day, 2)
	assert.Equal(t, "Morning lift", day[0].Title)
	assert.Equal(t, "Evening meet", day[1].Title)

	assert.Empty(t, m.EventsOn(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)))

	exam := m.EventsOn(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))
	require.Len(t, exam, 1)
	require.NoError(t, m.Delete(ctx, exam[0].ID))
	assert.Empty(t, m.EventsOn(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)))
}

func TestUpcomingEvents(t *testing.T) {
	h := newHarness(t)
	m := manager.NewCalendarManager(h.deps(), h.opts()...)
	ctx := context.Background()

	for _, date := range []string{"2025-01-09", "2025-01-05", "2025-01-06T08:00"} {
		_, err := m.Add(ctx, calendar.Event{Title: "E " + date, Date: date})
		require.NoError(t, err)
	}

	// an hour passes; the all-day event still counts for today
	h.now = fixedNow.Add(time.Hour)

	all := m.Upcoming(0)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-01-05", all[0].Date)

	assert.Len(t, m.Upcoming(2), 2)
}

func TestEditEvent(t *testing.T) {
	h := newHarness(t)
	m := manager.NewCalendarManager(h.deps(), h.opts()...)
	ctx := context.Background()

	added, err := m.Add(ctx, calendar.Event{Title: "Meet", Date: "2025-01-06"})
	require.NoError(t, err)

	// once the day has passed, details can still change
	h.now = time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)
	loc := "Arena"
	edited, err := m.Edit(ctx, added.ID, calendar.Patch{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Arena", edited.Location)

	// moving it into the past cannot
	date := "2025-01-07"
	_, err = m.Edit(ctx, added.ID, calendar.Patch{Date: &date})
	assert.True(t, shared.IsValidation(err))

	date = "2025-01-09"
	moved, err := m.Edit(ctx, added.ID, calendar.Patch{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-09", moved.Date)
	assert.Len(t, m.EventsOn(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)), 1)
	assert.Empty(t, m.EventsOn(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)))

	_, err = m.Edit(ctx, "nope", calendar.Patch{Location: &loc})
	assert.True(t, shared.IsNotFound(err))
}

func TestEventPersistFailure(t *testing.T) {
	h := newHarness(t)
	m := manager.NewCalendarManager(h.deps(), h.opts()...)

	h.backend.FailKey(store.KeyEvents, true)
	added, err := m.Add(context.Background(), calendar.Event{Title: "Meet", Date: "2025-01-06"})

	assert.True(t, shared.IsPersistence(err))
	_, getErr := m.Get(added.ID)
	assert.NoError(t, getErr)
	assert.Contains(t, h.state.Snapshot().Events, added.ID)
}

func TestEventsSurviveReload(t *testing.T) {
	h := newHarness(t)
	m := manager.NewCalendarManager(h.deps(), h.opts()...)
	ctx := context.Background()

	_, err := m.Add(ctx, calendar.Event{Title: "Meet", Date: "2025-01-06", Location: "Arena"})
	require.NoError(t, err)
	_, err = m.Add(ctx, calendar.Event{Title: "Exam", Date: "2025-01-08T09:00", ClassName: "exam"})
	require.NoError(t, err)

	restarted := newHarnessOn(t, h.backend)
	reloaded := manager.NewCalendarManager(restarted.deps(), restarted.opts()...)
	require.NoError(t, reloaded.Load(ctx))

	assert.Equal(t, m.List(), reloaded.List())
	assert.Len(t, reloaded.EventsOn(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)), 1)
	assert.Len(t, restarted.state.Snapshot().Events, 2)
}
