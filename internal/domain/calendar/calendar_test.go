package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

func TestNormalizeDefaultsClassName(t *testing.T) {
	e := Event{Title: "  Meet  ", Date: "2025-05-01"}
	e.Normalize()
	assert.Equal(t, "Meet", e.Title)
	assert.Equal(t, DefaultClassName, e.ClassName)

	e = Event{Title: "Exam", ClassName: "exam"}
	e.Normalize()
	assert.Equal(t, "exam", e.ClassName)
}

func TestDayIndex(t *testing.T) {
	events := []Event{
		{ID: "b", Title: "Evening", Date: "2025-05-01T19:00"},
		{ID: "a", Title: "Morning", Date: "2025-05-01T08:00"},
		{ID: "c", Title: "Next day", Date: "2025-05-02"},
		{ID: "x", Title: "Broken", Date: "someday"},
	}

	idx := BuildDayIndex(events)
	assert.Equal(t, 2, idx.Days())

	day := idx.On(time.Date(2025, 5, 1, 12, 0, 0, 0, timeutil.Location()))
	if assert.Len(t, day, 2) {
		assert.Equal(t, "a", day[0].ID)
		assert.Equal(t, "b", day[1].ID)
	}
	assert.Len(t, idx.OnKey("2025-05-02"), 1)
	assert.Nil(t, idx.OnKey("2025-05-03"))
}

func TestDayIndexReturnsCopies(t *testing.T) {
	idx := BuildDayIndex([]Event{{ID: "a", Title: "A", Date: "2025-05-01"}})

	day := idx.OnKey("2025-05-01")
	day[0].Title = "changed"

	assert.Equal(t, "A", idx.OnKey("2025-05-01")[0].Title)
}

func TestIsPast(t *testing.T) {
	loc := timeutil.Location()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, loc)

	assert.False(t, Event{Date: "2025-05-01"}.IsPast(now))
	assert.True(t, Event{Date: "2025-04-30"}.IsPast(now))
	assert.True(t, Event{Date: "2025-05-01T11:59"}.IsPast(now))
	assert.False(t, Event{Date: "2025-05-01T12:30"}.IsPast(now))
	assert.False(t, Event{Date: "not a date"}.IsPast(now))
}
