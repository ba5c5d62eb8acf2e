package ports

import (
	"context"
	"time"

	"github.com/99minutos/account-service/internal/core/domain"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string
	AccountID string
	Email     string
}

// RegisterInput carries pre-validated registration fields.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers  int64
	LastLoginAt *time.Time
}

// AuthService is the boundary consumed by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetProfile(ctx context.Context, email string) (*domain.Profile, error)
	AssignRole(ctx context.Context, caller *domain.Principal, accountID, roleName string) (*domain.Profile, error)
}

// RoleService manages role definitions.
type RoleService interface {
	CreateRole(ctx context.Context, caller *domain.Principal, name string) (*domain.Role, error)
	EnsureRoles(ctx context.Context, names ...string) error
}

// StatsService serves the admin dashboard.
type StatsService interface {
	Stats(ctx context.Context, caller *domain.Principal) (*Stats, error)
}
