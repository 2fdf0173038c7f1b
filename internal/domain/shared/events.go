// Package shared contains common domain types, errors, and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published by the entity managers after a successful write.
const (
	// Task events
	EventTaskAdded     EventType = "task.added"
	EventTaskUpdated   EventType = "task.updated"
	EventTaskStarted   EventType = "task.started"
	EventTaskCompleted EventType = "task.completed"
	EventTaskDeleted   EventType = "task.deleted"

	// Grade events
	EventGradeAdded   EventType = "grade.added"
	EventGradeUpdated EventType = "grade.updated"
	EventGradeDeleted EventType = "grade.deleted"

	// Session events
	EventSessionScheduled EventType = "session.scheduled"
	EventSessionUpdated   EventType = "session.updated"
	EventSessionDeleted   EventType = "session.deleted"

	// Calendar events
	EventCalendarEventAdded   EventType = "calendar.event_added"
	EventCalendarEventUpdated EventType = "calendar.event_updated"
	EventCalendarEventDeleted EventType = "calendar.event_deleted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler handles a published event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// Unsubscribe removes a previously registered handler. Calling it twice is a no-op.
type Unsubscribe func()

// EventSubscriber registers handlers for events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) (Unsubscribe, error)
	SubscribeAll(handler EventHandler) (Unsubscribe, error)
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
	}
}

// EntityChangedEvent is emitted by every entity manager mutation.
type EntityChangedEvent struct {
	BaseEvent
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// Payload implements Event interface.
func (e EntityChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"title":  e.Title,
		"detail": e.Detail,
	}
}

// NewEntityChangedEvent creates a new EntityChangedEvent.
func NewEntityChangedEvent(eventType EventType, id, title, detail string) EntityChangedEvent {
	return EntityChangedEvent{
		BaseEvent: NewBaseEvent(eventType, id),
		Title:     title,
		Detail:    detail,
	}
}

// StateChangedEvent carries a state slice after an update. It is how the
// state manager fans changes out to its key subscribers.
type StateChangedEvent struct {
	BaseEvent
	Key   string
	Value any
}

// Payload implements Event interface.
func (e StateChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"key":   e.Key,
		"value": e.Value,
	}
}

// StateEventType returns the bus topic used for a state key.
func StateEventType(key string) EventType {
	return EventType("state." + key)
}

// NewStateChangedEvent creates a StateChangedEvent for key.
func NewStateChangedEvent(key string, value any) StateChangedEvent {
	return StateChangedEvent{
		BaseEvent: NewBaseEvent(StateEventType(key), key),
		Key:       key,
		Value:     value,
	}
}
