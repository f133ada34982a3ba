package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	// EventSurfaceChanged carries a SurfaceSnapshot after any write to the
	// status text, result text or error indicator.
	EventSurfaceChanged EventType = "surface.changed"
	// EventOperationDone carries an OperationResult after every invocation,
	// including quiet denies.
	EventOperationDone EventType = "operation.done"
	// EventOperationError carries an OperationErrorPayload for Unexpected
	// failures.
	EventOperationError EventType = "operation.error"
	// EventPrivilegeChanged is published by mutable privilege sources.
	EventPrivilegeChanged EventType = "privilege.changed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// OperationErrorPayload describes an Unexpected failure.
type OperationErrorPayload struct {
	Kind  OperationKind `json:"kind"`
	Key   string        `json:"key,omitempty"`
	Error string        `json:"error"`
	Code  ErrorCode     `json:"code"`
}

// PrivilegeChangedPayload describes a privilege source transition.
type PrivilegeChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewEvent marshals payload into an Event. A payload that fails to marshal
// is dropped; events are advisory.
func NewEvent(typ EventType, requestID string, payload any) Event {
	ev := Event{Type: typ, Timestamp: time.Now().UTC(), RequestID: requestID}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
