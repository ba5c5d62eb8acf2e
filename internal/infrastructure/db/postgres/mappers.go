package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/99minutos/account-service/internal/core/domain"
)

func toAccountModel(a *domain.Account) (accountModel, error) {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return accountModel{}, fmt.Errorf("account id %q: %w", a.ID, domain.ErrBadRequest)
	}
	return accountModel{
		AccountID:    id,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt.UTC(),
		LastLoginAt:  a.LastLoginAt,
		Version:      a.Version,
	}, nil
}

func toDomainAccount(m accountModel, roles []roleModel) *domain.Account {
	a := &domain.Account{
		ID:           m.AccountID.String(),
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Roles:        make([]domain.Role, 0, len(roles)),
		CreatedAt:    m.CreatedAt.UTC(),
		Version:      m.Version,
	}
	if m.LastLoginAt != nil {
		t := m.LastLoginAt.UTC()
		a.LastLoginAt = &t
	}
	for _, r := range roles {
		a.Roles = append(a.Roles, domain.Role{ID: r.RoleID.String(), Name: r.Name})
	}
	return a
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
