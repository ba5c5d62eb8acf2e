package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/metrics"
)

const tokenType = "Bearer"

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new account and returns a session token for it.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/users/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	metrics.AuthAttemptsTotal.WithLabelValues("register", outcome(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toAuthResponse(res))
}

// Login authenticates by email and password and returns a session token.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/users/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	metrics.AuthAttemptsTotal.WithLabelValues("login", outcome(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Me returns the caller's profile.
//
// @Summary      Current user profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Profile
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/users/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	profile, err := h.authService.GetProfile(c.Request().Context(), p.Subject)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// AssignRole grants an existing role to an account.
//
// @Summary      Assign a role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string             true  "Account ID"
// @Param        body    body      assignRoleRequest  true  "Role to grant"
// @Success      200     {object}  domain.Profile
// @Failure      400     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Router       /api/users/{userId}/roles [post]
func (h *AuthHandler) AssignRole(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req assignRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.authService.AssignRole(c.Request().Context(), p, c.Param("userId"), req.RoleName)
	if err != nil {
		return err
	}
	metrics.RoleAssignmentsTotal.WithLabelValues(domain.NormalizeRoleName(req.RoleName)).Inc()
	return c.JSON(http.StatusOK, profile)
}

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		Token:     res.Token,
		TokenType: tokenType,
		UserID:    res.AccountID,
		Email:     res.Email,
	}
}

// bindAndValidate decodes the JSON body into req and runs the struct
// validation rules.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrDuplicateResource):
		return "duplicate"
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return "rejected"
	case errors.Is(err, domain.ErrBadRequest):
		return "invalid"
	default:
		return "error"
	}
}
