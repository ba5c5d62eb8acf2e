package domain

import "errors"

// Error kinds surfaced at the service boundary. Lower layers wrap their
// failures into one of these with %w so callers can branch with errors.Is.
var (
	ErrDuplicateResource = errors.New("resource already exists")
	ErrResourceNotFound  = errors.New("resource not found")
	ErrBadRequest        = errors.New("bad request")
	// ErrAuthenticationFailed covers bad credentials and every kind of invalid
	// token. It deliberately does not say which.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbidden            = errors.New("access forbidden")
	ErrFatal                = errors.New("fatal configuration error")
)

// ErrConcurrentModification is returned by stores when an optimistic version
// check fails on save. It never leaves the service layer.
var ErrConcurrentModification = errors.New("concurrent modification")

// Token verification failures. All of them collapse to ErrAuthenticationFailed
// for callers but stay distinguishable in logs and metrics.
var (
	ErrTokenMalformed    = errors.New("malformed token")
	ErrTokenBadSignature = errors.New("bad token signature")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenUnsupported  = errors.New("unsupported token format")
)

// TokenErrorKind returns a short label for a token verification error,
// suitable for log fields and metric labels.
func TokenErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenUnsupported):
		return "unsupported"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
