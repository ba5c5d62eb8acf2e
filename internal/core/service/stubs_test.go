package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/infrastructure/security"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// memState is one consistent view of the store.
type memState struct {
	accounts map[string]domain.Account
	roles    map[string]domain.Role
	audit    []domain.AuditRecord
}

func (s *memState) clone() *memState {
	c := &memState{
		accounts: make(map[string]domain.Account, len(s.accounts)),
		roles:    make(map[string]domain.Role, len(s.roles)),
		audit:    append([]domain.AuditRecord(nil), s.audit...),
	}
	for k, v := range s.accounts {
		c.accounts[k] = cloneAccount(v)
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	return c
}

func cloneAccount(a domain.Account) domain.Account {
	a.Roles = append([]domain.Role(nil), a.Roles...)
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		a.LastLoginAt = &t
	}
	return a
}

type txKey struct{}

// memStore is a transactional in-memory store. Transactions are serialized
// and work on a snapshot that replaces the committed state only when fn
// succeeds.
type memStore struct {
	txMu      sync.Mutex
	mu        sync.Mutex
	committed *memState
	clock     ports.Clock

	auditErr error
	// onSave runs before every Save and may fail it.
	onSave func(a *domain.Account) error
	saves  atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{
		committed: &memState{accounts: map[string]domain.Account{}, roles: map[string]domain.Role{}},
		clock:     fixedClock{testNow},
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := m.committed.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, snap)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.committed = snap
	m.mu.Unlock()
	return nil
}

func (m *memStore) with(ctx context.Context, fn func(st *memState) error) error {
	if st, ok := ctx.Value(txKey{}).(*memState); ok {
		return fn(st)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.committed)
}

func (m *memStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var found *domain.Account
	err := m.with(ctx, func(st *memState) error {
		for _, a := range st.accounts {
			if a.Email == email {
				c := cloneAccount(a)
				found = &c
				return nil
			}
		}
		return domain.ErrResourceNotFound
	})
	return found, err
}

func (m *memStore) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	var found *domain.Account
	err := m.with(ctx, func(st *memState) error {
		a, ok := st.accounts[id]
		if !ok {
			return domain.ErrResourceNotFound
		}
		c := cloneAccount(a)
		found = &c
		return nil
	})
	return found, err
}

func (m *memStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrResourceNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memStore) Save(ctx context.Context, a *domain.Account) error {
	m.saves.Add(1)
	if m.onSave != nil {
		if err := m.onSave(a); err != nil {
			return err
		}
	}
	return m.with(ctx, func(st *memState) error {
		if a.Version == 0 {
			for _, e := range st.accounts {
				if e.Email == a.Email {
					return domain.ErrDuplicateResource
				}
			}
			a.Version = 1
		} else {
			cur, ok := st.accounts[a.ID]
			if !ok {
				return domain.ErrResourceNotFound
			}
			if cur.Version != a.Version {
				return domain.ErrConcurrentModification
			}
			a.Version++
		}
		st.accounts[a.ID] = cloneAccount(*a)
		return nil
	})
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := m.with(ctx, func(st *memState) error {
		n = int64(len(st.accounts))
		return nil
	})
	return n, err
}

func (m *memStore) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var found *domain.Role
	err := m.with(ctx, func(st *memState) error {
		r, ok := st.roles[name]
		if !ok {
			return domain.ErrResourceNotFound
		}
		found = &r
		return nil
	})
	return found, err
}

func (m *memStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := m.FindByName(ctx, name)
	if errors.Is(err, domain.ErrResourceNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memStore) SaveRole(ctx context.Context, r *domain.Role) error {
	return m.with(ctx, func(st *memState) error {
		if _, ok := st.roles[r.Name]; ok {
			return domain.ErrDuplicateResource
		}
		st.roles[r.Name] = *r
		return nil
	})
}

func (m *memStore) Append(ctx context.Context, action, actor, target, detail string) error {
	if m.auditErr != nil {
		return m.auditErr
	}
	return m.with(ctx, func(st *memState) error {
		st.audit = append(st.audit, domain.AuditRecord{
			Action: action, Actor: actor, Target: target, Detail: detail, Timestamp: m.clock.Now(),
		})
		return nil
	})
}

func (m *memStore) LatestTimestamp(ctx context.Context, action string) (*time.Time, error) {
	var latest *time.Time
	err := m.with(ctx, func(st *memState) error {
		for _, r := range st.audit {
			if r.Action == action && (latest == nil || r.Timestamp.After(*latest)) {
				t := r.Timestamp
				latest = &t
			}
		}
		return nil
	})
	return latest, err
}

func (m *memStore) auditRecords(action string) []domain.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditRecord
	for _, r := range m.committed.audit {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) seedRole(t *testing.T, name string) {
	t.Helper()
	if err := m.SaveRole(context.Background(), &domain.Role{ID: "role-" + strings.ToLower(name), Name: name}); err != nil {
		t.Fatalf("seed role %s: %v", name, err)
	}
}

// roleStore adapts memStore to ports.RoleStore, whose Save collides with the
// account Save.
type roleStore struct{ *memStore }

func (r roleStore) Save(ctx context.Context, role *domain.Role) error { return r.SaveRole(ctx, role) }

type countingHasher struct {
	ports.PasswordHasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(plaintext, hash string) (bool, error) {
	h.verifies.Add(1)
	return h.PasswordHasher.Verify(plaintext, hash)
}

type stubCache struct {
	mu            sync.Mutex
	entries       map[string]*domain.Profile
	floors        map[string]int64
	hits          int
	invalidated   []string
	invalidateErr error
	// beforePut runs once, ahead of the next Put.
	beforePut func()
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string]*domain.Profile{}, floors: map[string]int64{}}
}

func (c *stubCache) Get(_ context.Context, email string) (*domain.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[email]
	if ok {
		c.hits++
	}
	return p, nil
}

func (c *stubCache) Put(_ context.Context, p *domain.Profile, version int64) error {
	c.mu.Lock()
	hook := c.beforePut
	c.beforePut = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if version < c.floors[p.Email] {
		return nil
	}
	c.entries[p.Email] = p
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, email string, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, email)
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	if version > c.floors[email] {
		c.floors[email] = version
	}
	delete(c.entries, email)
	return nil
}

type published struct {
	topic string
	key   string
	event domain.LifecycleEvent
}

type stubPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *stubPublisher) Publish(topic, key string, event domain.LifecycleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, key: key, event: event})
}

func (p *stubPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

var testKey = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	store  *memStore
	hasher *countingHasher
	codec  *security.JWTCodec
	cache  *stubCache
	events *stubPublisher
	auth   *AuthService
	roles  *RoleService
	stats  *StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := security.NewJWTCodec(testKey, time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	f := &fixture{
		store:  newMemStore(),
		hasher: &countingHasher{PasswordHasher: security.NewBcryptHasher(bcrypt.MinCost)},
		codec:  codec,
		cache:  newStubCache(),
		events: &stubPublisher{},
	}
	f.auth = NewAuthService(AuthDeps{
		Tx:     f.store,
		Users:  f.store,
		Roles:  roleStore{f.store},
		Audit:  f.store,
		Hasher: f.hasher,
		Tokens: codec,
		Cache:  f.cache,
		Events: f.events,
		Clock:  fixedClock{testNow},
		Topics: Topics{Registration: "user.registration", Login: "user.login"},
	}, zerolog.Nop())
	f.roles = NewRoleService(f.store, roleStore{f.store}, f.store, zerolog.Nop())
	f.stats = NewStatsService(f.store, f.store, zerolog.Nop())
	return f
}

func (f *fixture) register(t *testing.T, username, email, password string) *ports.AuthResult {
	t.Helper()
	res, err := f.auth.Register(context.Background(), ports.RegisterInput{Username: username, Email: email, Password: password})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res
}

var admin = &domain.Principal{Subject: "root@x.com", Roles: []string{domain.RoleUser, domain.RoleAdmin}}
