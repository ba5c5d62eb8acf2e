package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/99minutos/account-service/internal/core/domain"
)

// connectTestDB connects to DATABASE_URL and applies the migrations. Tests
// that need it are skipped when the variable is unset.
func connectTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, url, 20)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// a second run must be a no-op
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("migrate twice: %v", err)
	}
	return db
}

func newTestAccount(email string) *domain.Account {
	return &domain.Account{
		ID:           uuid.NewString(),
		Username:     "user",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
}

func uniqueEmail() string { return uuid.NewString() + "@it.example.com" }

func TestIntegration_ConcurrentInsertsSameEmail(t *testing.T) {
	db := connectTestDB(t)
	repo := NewAccountRepository(db)
	email := uniqueEmail()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Save(context.Background(), newTestAccount(email))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicateResource):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Fatalf("successes = %d, duplicates = %d", ok, dup)
	}
}

func TestIntegration_StaleSaveThenRetry(t *testing.T) {
	db := connectTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()
	email := uniqueEmail()

	if err := repo.Save(ctx, newTestAccount(email)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	first, err := repo.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	second, err := repo.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}

	now := time.Now().UTC()
	first.LastLoginAt = &now
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	second.Username = "renamed"
	if err := repo.Save(ctx, second); !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	fresh, err := repo.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	fresh.Username = "renamed"
	if err := repo.Save(ctx, fresh); err != nil {
		t.Fatalf("retry save: %v", err)
	}

	got, err := repo.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("final read: %v", err)
	}
	if got.Username != "renamed" || got.LastLoginAt == nil || got.Version != 3 {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestIntegration_RolesAndLinks(t *testing.T) {
	db := connectTestDB(t)
	accounts := NewAccountRepository(db)
	roles := NewRoleRepository(db)
	tx := NewTxManager(db)
	ctx := context.Background()

	role := &domain.Role{ID: uuid.NewString(), Name: "ROLE_IT_" + uuid.NewString()[:8]}
	if err := roles.Save(ctx, role); err != nil {
		t.Fatalf("save role: %v", err)
	}
	if err := roles.Save(ctx, &domain.Role{ID: uuid.NewString(), Name: role.Name}); !errors.Is(err, domain.ErrDuplicateResource) {
		t.Fatalf("expected ErrDuplicateResource for role name, got %v", err)
	}

	a := newTestAccount(uniqueEmail())
	a.Roles = []domain.Role{*role}
	if err := accounts.Save(ctx, a); err != nil {
		t.Fatalf("insert with role: %v", err)
	}

	stored, err := accounts.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(stored.Roles) != 1 || stored.Roles[0].Name != role.Name {
		t.Fatalf("unexpected roles: %+v", stored.Roles)
	}

	stored.Roles = append(stored.Roles, *role)
	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		return accounts.Save(ctx, stored)
	})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for a duplicate link, got %v", err)
	}

	after, err := accounts.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find after rollback: %v", err)
	}
	if after.Version != 1 || len(after.Roles) != 1 {
		t.Fatalf("failed save leaked: %+v", after)
	}
}
