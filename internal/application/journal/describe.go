package journal

import (
	"strconv"

	"github.com/athlete-hub/athlete-hub/internal/domain/activity"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
)

// recorded maps the entity changes that appear in the activity feed.
var recorded = map[shared.EventType]struct {
	kind   activity.Type
	prefix string
}{
	shared.EventTaskAdded:          {activity.TypeTaskAdded, "Added assignment"},
	shared.EventTaskStarted:        {activity.TypeTaskStarted, "Started assignment"},
	shared.EventTaskCompleted:      {activity.TypeTaskCompleted, "Completed assignment"},
	shared.EventTaskDeleted:        {activity.TypeTaskDeleted, "Removed assignment"},
	shared.EventGradeAdded:         {activity.TypeGradeAdded, "Recorded GPA for"},
	shared.EventGradeDeleted:       {activity.TypeGradeDeleted, "Removed GPA for"},
	shared.EventSessionScheduled:   {activity.TypeSessionScheduled, "Scheduled training"},
	shared.EventCalendarEventAdded: {activity.TypeEventAdded, "Added event"},
}

// describe returns the activity type and text for an entity change, or false
// if the change is not part of the feed.
func describe(e shared.EntityChangedEvent) (activity.Type, string, bool) {
	r, ok := recorded[e.EventType()]
	if !ok {
		return "", "", false
	}
	desc := r.prefix + ": " + e.Title
	if e.Detail != "" {
		desc += " (" + e.Detail + ")"
	}
	return r.kind, desc, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
