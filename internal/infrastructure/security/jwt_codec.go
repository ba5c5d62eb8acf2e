package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	// MinKeyLength is the shortest HS256 key accepted at startup.
	MinKeyLength = 32
	defaultTTL   = 24 * time.Hour
)

var errUnsupportedAlg = errors.New("unexpected signing algorithm")

// JWTCodec signs session tokens with HS256. The key is copied at construction
// and never changes for the life of the process.
type JWTCodec struct {
	key []byte
	ttl time.Duration
}

type sessionClaims struct {
	Roles string `json:"roles"`
	jwt.RegisteredClaims
}

// NewJWTCodec returns a codec for key. A short key is a fatal configuration
// error.
func NewJWTCodec(key []byte, ttl time.Duration) (*JWTCodec, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("%w: signing key must be at least %d bytes, got %d", domain.ErrFatal, MinKeyLength, len(key))
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &JWTCodec{key: k, ttl: ttl}, nil
}

// TTL is the lifetime given to issued tokens.
func (c *JWTCodec) TTL() time.Duration { return c.ttl }

func (c *JWTCodec) Issue(subject, roleClaim string, now time.Time) (string, error) {
	claims := sessionClaims{
		Roles: roleClaim,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry against now. A token is valid only while
// now is strictly before its expiry.
func (c *JWTCodec) Verify(raw string, now time.Time) (ports.TokenClaims, error) {
	if raw == "" {
		return ports.TokenClaims{}, domain.ErrTokenMalformed
	}

	parser := jwt.NewParser(
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := &sessionClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, c.keyFunc); err != nil {
		return ports.TokenClaims{}, classify(err)
	}

	exp := claims.ExpiresAt.Time
	if !now.Before(exp) {
		return ports.TokenClaims{}, domain.ErrTokenExpired
	}
	if claims.Subject == "" {
		return ports.TokenClaims{}, fmt.Errorf("%w: missing subject", domain.ErrTokenMalformed)
	}

	out := ports.TokenClaims{
		Subject:   claims.Subject,
		RoleClaim: claims.Roles,
		ExpiresAt: exp.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}

func (c *JWTCodec) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("%w: %s", errUnsupportedAlg, token.Method.Alg())
	}
	return c.key, nil
}

// classify maps jwt library errors onto the domain token error kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", domain.ErrTokenBadSignature, err)
	case errors.Is(err, errUnsupportedAlg), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrTokenUnsupported, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
}
