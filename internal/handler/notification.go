package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/repository"
)

// NotificationHandler lists and acknowledges a user's notifications.  Works
// for members and partners alike; rows are always scoped to the
// authenticated user.
type NotificationHandler struct {
    Notifications *repository.NotificationRepo
}

func NewNotificationHandler(n *repository.NotificationRepo) *NotificationHandler {
    if n == nil {
        panic("nil repository passed to NewNotificationHandler")
    }
    return &NotificationHandler{Notifications: n}
}

// List handles GET /v1/notifications with optional ?limit=.
func (h *NotificationHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    items, err := h.Notifications.ListByUser(c.Request().Context(), userID, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MarkRead handles POST /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
    }
    if err := h.Notifications.MarkRead(c.Request().Context(), userID, id); err != nil {
        if errors.Is(err, repository.ErrNotificationNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mark notification"})
    }
    return c.JSON(http.StatusOK, echo.Map{"read": true})
}
