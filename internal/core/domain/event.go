package domain

import "time"

// EventKind identifies a lifecycle transition.
type EventKind string

const (
	EventUserRegistered EventKind = "USER_REGISTERED"
	EventUserLoggedIn   EventKind = "USER_LOGGED_IN"
)

// LifecycleEvent is the payload handed to the event transport. It has no
// identity beyond its fields and is never persisted here.
type LifecycleEvent struct {
	Kind      EventKind `json:"event_type"`
	AccountID string    `json:"user_id"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}
