package ports

import "time"

// PasswordHasher produces and checks salted one-way password digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. A malformed hash is an
	// error wrapping domain.ErrFatal, never a plain mismatch.
	Verify(plaintext, hash string) (bool, error)
}

// TokenClaims is what a verified session token carries.
type TokenClaims struct {
	Subject   string
	RoleClaim string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec signs and verifies session tokens. Verify performs no I/O.
type TokenCodec interface {
	Issue(subject, roleClaim string, now time.Time) (string, error)
	Verify(token string, now time.Time) (TokenClaims, error)
}

// Clock is the source of the current time.
type Clock interface {
	Now() time.Time
}
