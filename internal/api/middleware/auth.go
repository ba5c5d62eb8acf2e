package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/metrics"
)

// PrincipalKey is the echo context key holding the *domain.Principal.
const PrincipalKey = "principal"

// Auth verifies the bearer token through the guard and attaches the resolved
// principal to both the echo context and the request context.
func Auth(guard *service.AccessGuard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := guard.Authenticate(bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)))
			metrics.GuardDecisionsTotal.WithLabelValues(d.Outcome.String(), d.Reason).Inc()
			if d.Outcome != service.Granted {
				return reject(d)
			}

			c.Set(PrincipalKey, d.Principal)
			req := c.Request()
			c.SetRequest(req.WithContext(domain.ContextWithPrincipal(req.Context(), d.Principal)))

			return next(c)
		}
	}
}

// bearerToken returns the token of a "Bearer <token>" header, or "" for any
// other shape.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func reject(d service.Decision) error {
	if d.Outcome == service.Forbidden {
		return echo.NewHTTPError(http.StatusForbidden, "access forbidden").SetInternal(d.Err())
	}
	return echo.NewHTTPError(http.StatusUnauthorized, "authentication required").SetInternal(d.Err())
}
