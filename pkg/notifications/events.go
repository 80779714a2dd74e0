package notifications

// EventType identifies what changed in the Store.
type EventType string

const (
	EventLoaded     EventType = "loaded"
	EventAdded      EventType = "added"
	EventRemoved    EventType = "removed"
	EventExpired    EventType = "expired"
	EventUpdated    EventType = "updated"
	EventReconciled EventType = "reconciled"
	EventFailed     EventType = "failed"
)

// Event is published to Store subscribers after each change.
type Event struct {
	Type EventType
	// ID is the affected entry. Empty for collection-wide changes.
	ID string
	// PrevID is the local id replaced during reconciliation.
	PrevID string
	Op     Operation
	Err    error
}
