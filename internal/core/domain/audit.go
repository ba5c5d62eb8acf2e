package domain

import "time"

// Audit actions.
const (
	ActionUserRegistered = "USER_REGISTERED"
	ActionUserLoggedIn   = "USER_LOGGED_IN"
	ActionRoleAssigned   = "ROLE_ASSIGNED"
	ActionRoleCreated    = "ROLE_CREATED"
)

// AuditRecord is an immutable entry in the audit trail. Timestamp is set by
// the sink at the moment of persistence.
type AuditRecord struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Target    string    `json:"target,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
