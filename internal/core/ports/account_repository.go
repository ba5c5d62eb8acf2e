package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// TxManager runs fn inside a single store transaction. Repository calls made
// with the ctx passed to fn participate in that transaction; any error
// returned by fn rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserStore persists accounts.
type UserStore interface {
	// FindByEmail matches the email exactly as stored.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Save inserts the account when Version is zero and otherwise updates it
	// only if the stored version still matches. It returns
	// domain.ErrDuplicateResource on an email collision and
	// domain.ErrConcurrentModification on a lost update. On success the
	// account's Version is advanced.
	Save(ctx context.Context, account *domain.Account) error
	Count(ctx context.Context) (int64, error)
}

// RoleStore persists roles.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	// Save returns domain.ErrDuplicateResource when the name is taken.
	Save(ctx context.Context, role *domain.Role) error
}
