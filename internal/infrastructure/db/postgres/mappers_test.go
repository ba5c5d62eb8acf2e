package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/account-service/internal/core/domain"
)

func TestToAccountModel_RejectsNonUUID(t *testing.T) {
	_, err := toAccountModel(&domain.Account{ID: "not-a-uuid"})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestToDomainAccount_KeepsRoleOrder(t *testing.T) {
	id := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	roles := []roleModel{
		{RoleID: uuid.New(), Name: domain.RoleUser},
		{RoleID: uuid.New(), Name: "ROLE_MODERATOR"},
	}

	a := toDomainAccount(accountModel{AccountID: id, Email: "alice@x.com", CreatedAt: created, Version: 3}, roles)
	if a.ID != id.String() || a.Version != 3 || a.LastLoginAt != nil {
		t.Fatalf("unexpected account: %+v", a)
	}
	names := a.RoleNames()
	if len(names) != 2 || names[0] != domain.RoleUser || names[1] != "ROLE_MODERATOR" {
		t.Fatalf("unexpected roles: %v", names)
	}
}

func TestToDomainAccount_NoRolesIsEmptySet(t *testing.T) {
	a := toDomainAccount(accountModel{AccountID: uuid.New()}, nil)
	if a.Roles == nil || len(a.Roles) != 0 {
		t.Fatalf("expected empty non-nil role set, got %#v", a.Roles)
	}
}

func TestNullableString(t *testing.T) {
	if nullableString("  ") != nil {
		t.Fatalf("blank must map to NULL")
	}
	if v := nullableString(" x "); v == nil || *v != "x" {
		t.Fatalf("unexpected value %v", v)
	}
}
