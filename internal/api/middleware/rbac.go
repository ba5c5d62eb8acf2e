package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/metrics"
)

// RBAC requires the principal set by Auth to hold at least one of
// allowedRoles. A request without a principal is unauthenticated, one with
// the wrong roles is forbidden.
func RBAC(guard *service.AccessGuard, allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := c.Get(PrincipalKey).(*domain.Principal)
			d := guard.Check(p, allowedRoles...)
			if d.Outcome != service.Granted {
				metrics.GuardDecisionsTotal.WithLabelValues(d.Outcome.String(), d.Reason).Inc()
				return reject(d)
			}
			return next(c)
		}
	}
}
