// Package events carries domain events between modules. The bus is
// deliberately minimal: publishers fire typed events, subscribers register
// by event name, and nothing in here knows about submissions or work items.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event. EventName doubles as the
// subscription key, so it must be unique per event type.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Handler consumes events. A handler registered for several event names
// receives all of them through the same Handle call.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers. Publish dispatches
// asynchronously and never blocks the caller on handler work; PublishSync
// runs every handler inline and reports their errors, for callers that
// need the side effects before continuing.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

// BaseEvent supplies the occurrence timestamp; concrete events embed it.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}
