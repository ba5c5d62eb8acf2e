package ports

import (
	"context"
	"time"
)

// AuditSink appends to the audit trail. It is synchronous and must be called
// with the transaction ctx of the mutation it records.
type AuditSink interface {
	Append(ctx context.Context, action, actor, target, detail string) error
}

// AuditReader answers the few read queries the admin surface needs.
type AuditReader interface {
	// LatestTimestamp returns the time of the newest record with the given
	// action, or nil when there is none.
	LatestTimestamp(ctx context.Context, action string) (*time.Time, error)
}
