package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/ports"
)

type AdminHandler struct {
	statsService ports.StatsService
}

func NewAdminHandler(statsService ports.StatsService) *AdminHandler {
	return &AdminHandler{statsService: statsService}
}

// Stats returns the account count and the time of the latest login.
//
// @Summary      Admin statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Failure      403  {object}  map[string]string
// @Router       /api/admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	stats, err := h.statsService.Stats(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statsResponse{
		TotalUsers:         stats.TotalUsers,
		LastLoginTimestamp: stats.LastLoginAt,
	})
}
