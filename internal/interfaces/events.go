package interfaces

import "context"

// EventType identifies a category of internal event.
type EventType string

const (
	EventIngestCompleted  EventType = "ingest_completed"
	EventSentimentUpdated EventType = "sentiment_updated"
	EventSignalGenerated  EventType = "signal_generated"
	EventHaltChanged      EventType = "halt_changed"
)

// Event is a message published on the internal bus.
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler processes a published event.
type EventHandler func(ctx context.Context, event Event) error

// EventService provides pub/sub for internal events. Publish is
// asynchronous; handler failures are logged, never propagated.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	Close() error
}
