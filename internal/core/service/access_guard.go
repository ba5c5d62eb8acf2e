package service

import (
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// Outcome is the terminal state of a request's authorization.
type Outcome int

const (
	Granted Outcome = iota
	Unauthenticated
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decision is the typed result handed to the boundary layer. Principal is set
// whenever the token verified, including Forbidden outcomes.
type Decision struct {
	Outcome   Outcome
	Principal *domain.Principal
	// Reason is the token error kind behind an Unauthenticated outcome, for
	// logs and metrics only.
	Reason string
}

// Err maps the outcome onto the caller-visible error kind.
func (d Decision) Err() error {
	switch d.Outcome {
	case Granted:
		return nil
	case Forbidden:
		return domain.ErrForbidden
	default:
		return domain.ErrAuthenticationFailed
	}
}

// AccessGuard verifies the presented token on every request. It keeps no
// state between requests.
type AccessGuard struct {
	tokens ports.TokenCodec
	clock  ports.Clock
	logger zerolog.Logger
}

func NewAccessGuard(tokens ports.TokenCodec, clock ports.Clock, logger zerolog.Logger) *AccessGuard {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AccessGuard{tokens: tokens, clock: clock, logger: logger}
}

// Authenticate resolves the principal behind token. An empty token or any
// verification failure is Unauthenticated.
func (g *AccessGuard) Authenticate(token string) Decision {
	if token == "" {
		return Decision{Outcome: Unauthenticated, Reason: "missing"}
	}
	claims, err := g.tokens.Verify(token, g.clock.Now())
	if err != nil {
		kind := domain.TokenErrorKind(err)
		g.logger.Debug().Str("reason", kind).Msg("token rejected")
		return Decision{Outcome: Unauthenticated, Reason: kind}
	}
	return Decision{Outcome: Granted, Principal: domain.NewPrincipal(claims.Subject, claims.RoleClaim)}
}

// Authorize authenticates token and then requires the principal to hold at
// least one of roles. With no roles it only authenticates.
func (g *AccessGuard) Authorize(token string, roles ...string) Decision {
	d := g.Authenticate(token)
	if d.Outcome != Granted {
		return d
	}
	return g.Check(d.Principal, roles...)
}

// Check applies a role requirement to a principal resolved earlier in the
// same request.
func (g *AccessGuard) Check(p *domain.Principal, roles ...string) Decision {
	if p == nil {
		return Decision{Outcome: Unauthenticated, Reason: "missing"}
	}
	if len(roles) == 0 {
		return Decision{Outcome: Granted, Principal: p}
	}
	for _, r := range roles {
		if p.HasRole(r) {
			return Decision{Outcome: Granted, Principal: p}
		}
	}
	g.logger.Info().Str("subject", p.Subject).Strs("required", roles).Msg("access forbidden")
	return Decision{Outcome: Forbidden, Principal: p, Reason: "missing_role"}
}
