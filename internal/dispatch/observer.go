package dispatch

import "time"

// EventType names a lifecycle phase in command dispatch.
type EventType string

const (
	EventDispatchStart EventType = "dispatch_start"
	EventAuthDenied    EventType = "auth_denied"
	EventPermDenied    EventType = "perm_denied"
	EventHandlerStart  EventType = "handler_start"
	EventHandlerEnd    EventType = "handler_end"
)

// Event is a lifecycle event raised while dispatching one command.
type Event struct {
	Type      EventType
	ConnID    string
	Command   string
	Timestamp time.Time
	Data      any
}

// Observer receives Events at major dispatch phases.
type Observer interface {
	OnEvent(event Event)
}

// NoopObserver discards every event; it is the default when no observer is
// configured.
type NoopObserver struct{}

// OnEvent implements Observer.
func (NoopObserver) OnEvent(Event) {}
