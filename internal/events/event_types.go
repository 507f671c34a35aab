package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

// AllEventTypes lists every event the service emits.
var AllEventTypes = []EventType{EventUserCreated, EventUserUpdated, EventUserDeleted}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// UserSnapshotPayload carries the fields most consumers need.
type UserSnapshotPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Status    string `json:"status"`
	Profile   string `json:"profile,omitempty"`
}

// UserUpdatedPayload records which fields changed.
type UserUpdatedPayload struct {
	UserSnapshotPayload
	ChangedFields  []string `json:"changedFields"`
	ProfileChanged bool     `json:"profileChanged"`
}
