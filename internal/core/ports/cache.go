package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// ProfileCache holds profile projections keyed by email.
type ProfileCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, email string) (*domain.Profile, error)
	// Put stores the profile as read at version. It is a no-op when an
	// invalidation at a newer version has been recorded for the email.
	Put(ctx context.Context, profile *domain.Profile, version int64) error
	// Invalidate drops the entry and refuses later Puts older than version.
	Invalidate(ctx context.Context, email string, version int64) error
}
