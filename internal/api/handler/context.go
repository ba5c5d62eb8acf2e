package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
)

// ctxPrincipal returns the principal attached by the Auth middleware. Its
// absence means the route was mounted without Auth and is treated as
// unauthenticated.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	if p, ok := c.Get(middleware.PrincipalKey).(*domain.Principal); ok && p != nil {
		return p, nil
	}
	if p, ok := domain.PrincipalFromContext(c.Request().Context()); ok {
		return p, nil
	}
	return nil, domain.ErrAuthenticationFailed
}
