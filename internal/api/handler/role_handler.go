package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/ports"
)

type RoleHandler struct {
	roleService ports.RoleService
}

func NewRoleHandler(roleService ports.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// Create defines a new role. The name is normalized to the ROLE_ form.
//
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "Role name"
// @Success      201   {object}  roleResponse
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/roles [post]
func (h *RoleHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	role, err := h.roleService.CreateRole(c.Request().Context(), p, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, roleResponse{ID: role.ID, Name: role.Name})
}
