package eventbus

import "time"

// Event type constants for the maintenance engine's lifecycle events.
const (
	// EventReminderFired is published when a scheduled maintenance reminder
	// comes due and its dispatcher job fires.
	EventReminderFired = "maintenance.reminder.fired"
	// EventItemChanged is published after an item's maintenance fields
	// change (create, edit, delete, or a recorded maintenance).
	EventItemChanged = "collection.item.changed"
)

// Event represents an application event published to the bus.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Listener is a function that handles an event.
type Listener func(Event)
