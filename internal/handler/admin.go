package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/scheduler"
)

// AdminHandler holds admin-only operational endpoints.
type AdminHandler struct {
    Sweeper *scheduler.Sweeper
}

func NewAdminHandler(sweeper *scheduler.Sweeper) *AdminHandler {
    if sweeper == nil {
        panic("nil sweeper passed to NewAdminHandler")
    }
    return &AdminHandler{Sweeper: sweeper}
}

// RunSweep handles POST /v1/admin/sweep: triggers the expiring-offer sweep
// outside its cron schedule.
func (h *AdminHandler) RunSweep(c echo.Context) error {
    n, err := h.Sweeper.Run(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"notifications_created": n})
}
