package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// RoleService creates role definitions.
type RoleService struct {
	tx     ports.TxManager
	roles  ports.RoleStore
	audit  ports.AuditSink
	logger zerolog.Logger
}

func NewRoleService(tx ports.TxManager, roles ports.RoleStore, audit ports.AuditSink, logger zerolog.Logger) *RoleService {
	return &RoleService{tx: tx, roles: roles, audit: audit, logger: logger}
}

// CreateRole stores a new role under its normalized name. The caller must
// hold ROLE_ADMIN.
func (s *RoleService) CreateRole(ctx context.Context, caller *domain.Principal, name string) (*domain.Role, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	normalized := domain.NormalizeRoleName(name)
	if normalized == domain.RolePrefix {
		return nil, fmt.Errorf("create role: empty name: %w", domain.ErrBadRequest)
	}

	role := &domain.Role{ID: uuid.NewString(), Name: normalized}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.roles.ExistsByName(ctx, normalized)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateResource
		}
		if err := s.roles.Save(ctx, role); err != nil {
			return err
		}
		return s.audit.Append(ctx, domain.ActionRoleCreated, caller.Subject, normalized, "role created")
	})
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.logger.Info().Str("role", normalized).Str("actor", caller.Subject).Msg("role created")
	return role, nil
}

// EnsureRoles creates each named role that does not exist yet. It runs at
// startup without a caller and writes no audit records.
func (s *RoleService) EnsureRoles(ctx context.Context, names ...string) error {
	for _, name := range names {
		normalized := domain.NormalizeRoleName(name)
		if normalized == domain.RolePrefix {
			continue
		}
		exists, err := s.roles.ExistsByName(ctx, normalized)
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", normalized, err)
		}
		if exists {
			continue
		}
		err = s.roles.Save(ctx, &domain.Role{ID: uuid.NewString(), Name: normalized})
		if errors.Is(err, domain.ErrDuplicateResource) {
			// another instance seeded it first
			continue
		}
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", normalized, err)
		}
		s.logger.Info().Str("role", normalized).Msg("role seeded")
	}
	return nil
}
