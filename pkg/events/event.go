package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "message.processed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// ChatEvent is an Event addressed to a single user's chat channel.
type ChatEvent interface {
	Event

	// UserID identifies the user whose channel receives the event.
	UserID() string

	// Channel returns the per-user channel name (e.g., "chat.<userId>").
	Channel() string
}
