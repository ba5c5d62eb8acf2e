package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/security"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

func newGuard(t *testing.T) (*service.AccessGuard, *security.JWTCodec) {
	t.Helper()
	codec, err := security.NewJWTCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return service.NewAccessGuard(codec, fixedClock{}, zerolog.Nop()), codec
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	guard, codec := newGuard(t)
	token, err := codec.Issue("alice@x.com", "ROLE_USER,ROLE_ADMIN", testNow)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(guard)(func(c echo.Context) error {
		called = true
		p, ok := c.Get(PrincipalKey).(*domain.Principal)
		if !ok || p.Subject != "alice@x.com" {
			t.Fatalf("principal not set on echo context")
		}
		fromCtx, ok := domain.PrincipalFromContext(c.Request().Context())
		if !ok || fromCtx != p {
			t.Fatalf("principal not set on request context")
		}
		if !p.HasRole(domain.RoleAdmin) {
			t.Fatalf("roles not resolved: %v", p.Roles)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	guard, codec := newGuard(t)
	expired, _ := codec.Issue("alice@x.com", "ROLE_USER", testNow.Add(-2*time.Hour))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token abc"},
		{"garbage token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := Auth(guard)(func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})

			err := handler(c)
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %v", err)
			}
			if !errors.Is(he.Internal, domain.ErrAuthenticationFailed) {
				t.Fatalf("expected internal ErrAuthenticationFailed, got %v", he.Internal)
			}

			e.HTTPErrorHandler(err, c)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}
	for in, want := range tests {
		if got := bearerToken(in); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
