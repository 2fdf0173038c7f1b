package calendar

import (
	"time"

	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// DayIndex groups events by calendar day. It is a projection and is always
// rebuilt from the full event collection.
type DayIndex struct {
	days map[string][]Event
}

// BuildDayIndex indexes events by day. Events within a day are in time order.
func BuildDayIndex(events []Event) DayIndex {
	idx := DayIndex{days: make(map[string][]Event)}
	for _, e := range events {
		key := e.DayKey()
		if key == "" {
			continue
		}
		idx.days[key] = append(idx.days[key], e)
	}
	for _, day := range idx.days {
		SortByDate(day)
	}
	return idx
}

// On returns a copy of the events on the day t falls on.
func (d DayIndex) On(t time.Time) []Event {
	return d.OnKey(timeutil.DayKey(t))
}

// OnKey returns a copy of the events for a YYYY-MM-DD key.
func (d DayIndex) OnKey(key string) []Event {
	events := d.days[key]
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Days returns how many distinct days hold events.
func (d DayIndex) Days() int {
	return len(d.days)
}
