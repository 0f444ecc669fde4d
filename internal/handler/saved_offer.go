package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/repository"
)

// SavedOfferHandler manages a member's bookmarked offers.
type SavedOfferHandler struct {
    Saved  *repository.SavedOfferRepo
    Offers *repository.OfferRepo
}

func NewSavedOfferHandler(saved *repository.SavedOfferRepo, offers *repository.OfferRepo) *SavedOfferHandler {
    if saved == nil || offers == nil {
        panic("nil repository passed to NewSavedOfferHandler")
    }
    return &SavedOfferHandler{Saved: saved, Offers: offers}
}

// Save handles POST /v1/saved-offers with body {"offer_id": N}.
func (h *SavedOfferHandler) Save(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        OfferID uint64 `json:"offer_id"`
    }
    if err := c.Bind(&body); err != nil || body.OfferID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "offer_id is required"})
    }
    ctx := c.Request().Context()
    if _, err := h.Offers.GetByID(ctx, body.OfferID); err != nil {
        if errors.Is(err, repository.ErrOfferNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if err := h.Saved.Save(ctx, userID, body.OfferID); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "offer already saved"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save offer"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"saved": true})
}

// List handles GET /v1/saved-offers.
func (h *SavedOfferHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Saved.ListByMember(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load saved offers"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Remove handles DELETE /v1/saved-offers/:id where :id is the offer id.
func (h *SavedOfferHandler) Remove(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    offerID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
    }
    if err := h.Saved.Remove(c.Request().Context(), userID, offerID); err != nil {
        if errors.Is(err, repository.ErrSavedOfferNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "saved offer not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to remove saved offer"})
    }
    return c.NoContent(http.StatusNoContent)
}
