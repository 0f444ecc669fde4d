package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/repository"
)

// CategoryHandler is the admin surface for the shared category list.  The
// public read endpoint lives on PublicOfferHandler.
type CategoryHandler struct {
    Categories *repository.CategoryRepo
}

func NewCategoryHandler(categories *repository.CategoryRepo) *CategoryHandler {
    if categories == nil {
        panic("nil repository passed to NewCategoryHandler")
    }
    return &CategoryHandler{Categories: categories}
}

// Create handles POST /v1/admin/categories.
func (h *CategoryHandler) Create(c echo.Context) error {
    var body struct {
        Name string `json:"name"`
    }
    if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Name) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    cat := &repository.Category{Name: strings.TrimSpace(body.Name)}
    if err := h.Categories.Create(c.Request().Context(), cat); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "category already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create category"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"category": cat})
}

// Delete handles DELETE /v1/admin/categories/:id.  A category still
// referenced by offers answers 409.
func (h *CategoryHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
    }
    if err := h.Categories.Delete(c.Request().Context(), id); err != nil {
        switch {
        case errors.Is(err, repository.ErrCategoryNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "category is in use"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete category"})
        }
    }
    return c.NoContent(http.StatusNoContent)
}
