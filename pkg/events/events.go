package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a user lifecycle transition.
type EventType string

// Lifecycle event types
const (
	UserCreated EventType = "USER_CREATED"
	UserUpdated EventType = "USER_UPDATED"
	UserDeleted EventType = "USER_DELETED"
	InitialLoad EventType = "INITIAL_LOAD"
)

// UserLifecycleEvent is the message payload announcing a user change.
// It is a snapshot: built once at publish time and never mutated.
// EventID is the idempotent delivery marker for consumers.
type UserLifecycleEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	ID        uint      `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
}

// RoutingKey returns the partition key for the event. All events for one
// user share the key, so a consumer partitioned on it observes them in
// submission order.
func (e *UserLifecycleEvent) RoutingKey() string {
	return e.Email
}

// NewUserLifecycleEvent builds an event snapshot for the given user fields.
// Timestamp is event-creation time, not business time.
func NewUserLifecycleEvent(eventType EventType, id uint, firstName, lastName, email, address string) *UserLifecycleEvent {
	return &UserLifecycleEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Address:   address,
	}
}
