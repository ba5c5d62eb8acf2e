package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// maxTxAttempts bounds how often a transaction that lost an optimistic
// version check is re-run from a fresh read.
const maxTxAttempts = 3

// requireAdmin gates privileged operations. A missing caller is
// unauthenticated, a caller without ROLE_ADMIN is forbidden.
func requireAdmin(caller *domain.Principal) error {
	if caller == nil {
		return domain.ErrAuthenticationFailed
	}
	if !caller.HasRole(domain.RoleAdmin) {
		return domain.ErrForbidden
	}
	return nil
}

// withRetry runs fn in a transaction and re-runs it while the store reports a
// lost update. Any other outcome is returned as is.
func withRetry(ctx context.Context, tx ports.TxManager, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = tx.WithinTx(ctx, fn)
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w after %d attempts", err, maxTxAttempts)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Profile, error) { return nil, nil }
func (noopCache) Put(context.Context, *domain.Profile, int64) error { return nil }
func (noopCache) Invalidate(context.Context, string, int64) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, domain.LifecycleEvent) {}
