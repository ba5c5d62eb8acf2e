package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// dummyPassword is hashed once and compared against when a login names an
// unknown email, so both rejection paths pay for a bcrypt comparison.
const dummyPassword = "account-service-timing-equalizer"

// Topics names the event transport topics per lifecycle event.
type Topics struct {
	Registration string
	Login        string
}

// AuthDeps groups the collaborators of AuthService. Cache, Events and Clock
// are optional.
type AuthDeps struct {
	Tx     ports.TxManager
	Users  ports.UserStore
	Roles  ports.RoleStore
	Audit  ports.AuditSink
	Hasher ports.PasswordHasher
	Tokens ports.TokenCodec
	Cache  ports.ProfileCache
	Events ports.EventPublisher
	Clock  ports.Clock
	Topics Topics
}

// AuthService implements registration, login, profile lookup and role
// assignment.
type AuthService struct {
	tx     ports.TxManager
	users  ports.UserStore
	roles  ports.RoleStore
	audit  ports.AuditSink
	hasher ports.PasswordHasher
	tokens ports.TokenCodec
	cache  ports.ProfileCache
	events ports.EventPublisher
	clock  ports.Clock
	topics Topics
	logger zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(deps AuthDeps, logger zerolog.Logger) *AuthService {
	s := &AuthService{
		tx:     deps.Tx,
		users:  deps.Users,
		roles:  deps.Roles,
		audit:  deps.Audit,
		hasher: deps.Hasher,
		tokens: deps.Tokens,
		cache:  deps.Cache,
		events: deps.Events,
		clock:  deps.Clock,
		topics: deps.Topics,
		logger: logger,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	return s
}

// Register creates an account, records the audit entry in the same
// transaction and returns a session token for the stored account.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.users.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateResource
		}

		// the store may re-run fn; start from an unsaved account each time
		account.Version = 0
		account.Roles = nil
		role, err := s.roles.FindByName(ctx, domain.RoleUser)
		switch {
		case err == nil:
			account.Roles = []domain.Role{*role}
		case !errors.Is(err, domain.ErrResourceNotFound):
			return err
		}

		if err := s.users.Save(ctx, account); err != nil {
			return err
		}
		return s.audit.Append(ctx, domain.ActionUserRegistered, in.Email, in.Email, "account registered")
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateResource) {
			s.logger.Info().Str("email", in.Email).Msg("registration rejected: email taken")
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	stored, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("register: reload account: %w", err)
	}

	token, err := s.issue(stored)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.publish(s.topics.Registration, domain.EventUserRegistered, stored)
	s.logger.Info().Str("account_id", stored.ID).Str("email", stored.Email).Msg("account registered")

	return &ports.AuthResult{Token: token, AccountID: stored.ID, Email: stored.Email}, nil
}

// Login verifies credentials and returns a session token. Unknown emails and
// wrong passwords both yield ErrAuthenticationFailed; only the log tells them
// apart.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	account, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrResourceNotFound) {
		_, _ = s.hasher.Verify(password, s.timingHash())
		s.logger.Info().Str("email", email).Str("reason", "unknown_email").Msg("login rejected")
		return nil, domain.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("stored password hash unusable")
		return nil, fmt.Errorf("login: %w", err)
	}
	if !ok {
		s.logger.Info().Str("email", email).Str("reason", "wrong_password").Msg("login rejected")
		return nil, domain.ErrAuthenticationFailed
	}

	now := s.clock.Now()
	err = withRetry(ctx, s.tx, func(ctx context.Context) error {
		current, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		current.LastLoginAt = &now
		if err := s.users.Save(ctx, current); err != nil {
			return err
		}
		account = current
		return s.audit.Append(ctx, domain.ActionUserLoggedIn, email, email, "login succeeded")
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	token, err := s.issue(account)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.publish(s.topics.Login, domain.EventUserLoggedIn, account)
	s.logger.Info().Str("account_id", account.ID).Msg("login succeeded")

	return &ports.AuthResult{Token: token, AccountID: account.ID, Email: account.Email}, nil
}

// GetProfile resolves the profile for the email carried by a verified token.
// Cache failures are logged and fall through to the store.
func (s *AuthService) GetProfile(ctx context.Context, email string) (*domain.Profile, error) {
	cached, err := s.cache.Get(ctx, email)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("profile cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	account, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	profile := account.ToProfile()
	if err := s.cache.Put(ctx, profile, account.Version); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("profile cache write failed")
	}
	return profile, nil
}

// AssignRole grants an existing role to an account. The caller must hold
// ROLE_ADMIN. The role name is normalized before lookup.
func (s *AuthService) AssignRole(ctx context.Context, caller *domain.Principal, accountID, roleName string) (*domain.Profile, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name := domain.NormalizeRoleName(roleName)

	var updated *domain.Account
	err := withRetry(ctx, s.tx, func(ctx context.Context) error {
		account, err := s.users.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		role, err := s.roles.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if err := account.AddRole(*role); err != nil {
			return err
		}
		if err := s.users.Save(ctx, account); err != nil {
			return err
		}
		updated = account
		return s.audit.Append(ctx, domain.ActionRoleAssigned, caller.Subject, account.Email, "granted "+name)
	})
	if err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	if err := s.cache.Invalidate(ctx, updated.Email, updated.Version); err != nil {
		s.logger.Error().Err(err).Str("email", updated.Email).Msg("profile cache invalidation failed")
	}

	s.logger.Info().
		Str("account_id", updated.ID).
		Str("role", name).
		Str("actor", caller.Subject).
		Msg("role assigned")

	return updated.ToProfile(), nil
}

func (s *AuthService) issue(account *domain.Account) (string, error) {
	return s.tokens.Issue(account.Email, domain.RoleClaim(account.RoleNames()), s.clock.Now())
}

func (s *AuthService) publish(topic string, kind domain.EventKind, account *domain.Account) {
	s.events.Publish(topic, account.Email, domain.LifecycleEvent{
		Kind:      kind,
		AccountID: account.ID,
		Email:     account.Email,
		Timestamp: s.clock.Now(),
	})
}

func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error().Err(err).Msg("timing hash unavailable")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
