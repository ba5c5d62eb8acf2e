package ports

import "github.com/99minutos/account-service/internal/core/domain"

// EventPublisher hands lifecycle events to the transport. Publish must not
// block and never reports failure to the caller; delivery is at-most-once.
type EventPublisher interface {
	Publish(topic, key string, event domain.LifecycleEvent)
}
