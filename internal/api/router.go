package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/service"
)

// Deps are the services and health checks the router mounts.
type Deps struct {
	Auth   ports.AuthService
	Roles  ports.RoleService
	Stats  ports.StatsService
	Guard  *service.AccessGuard
	Health map[string]handler.Pinger
	Logger zerolog.Logger

	// Registerer and Gatherer back the HTTP metrics and /metrics. They
	// default to the prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/health")
		},
	}))

	authHandler := handler.NewAuthHandler(d.Auth)
	roleHandler := handler.NewRoleHandler(d.Roles)
	adminHandler := handler.NewAdminHandler(d.Stats)
	healthHandler := handler.NewHealthHandler(d.Health, d.Logger)

	authMW := middleware.Auth(d.Guard)
	adminOnly := middleware.RBAC(d.Guard, domain.RoleAdmin)

	// --- Public routes ---
	users := e.Group("/api/users")
	users.POST("/register", authHandler.Register)
	users.POST("/login", authHandler.Login)

	// --- Authenticated routes ---
	users.GET("/me", authHandler.Me, authMW)
	users.POST("/:userId/roles", authHandler.AssignRole, authMW, adminOnly)

	e.POST("/api/roles", roleHandler.Create, authMW, adminOnly)
	e.GET("/api/admin/stats", adminHandler.Stats, authMW, adminOnly)

	// --- Probes and metrics (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	return e
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
