package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/repository"
)

// ProfileHandler reads and updates the role profile attached to the
// authenticated user.
type ProfileHandler struct {
    Members  *repository.MemberRepo
    Partners *repository.PartnerRepo
}

func NewProfileHandler(members *repository.MemberRepo, partners *repository.PartnerRepo) *ProfileHandler {
    if members == nil || partners == nil {
        panic("nil repository passed to NewProfileHandler")
    }
    return &ProfileHandler{Members: members, Partners: partners}
}

// GetMemberProfile handles GET /v1/member/profile.
func (h *ProfileHandler) GetMemberProfile(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    m, err := h.Members.GetByUserID(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, repository.ErrMemberNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "member profile not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":            m.ID,
        "first_name":    m.FirstName,
        "last_name":     m.LastName,
        "mobile_number": m.MobileNumber,
        "city":          m.City,
    })
}

// UpdateMemberProfile handles PUT /v1/member/profile.
func (h *ProfileHandler) UpdateMemberProfile(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        FirstName    string `json:"first_name"`
        LastName     string `json:"last_name"`
        MobileNumber string `json:"mobile_number"`
        City         string `json:"city"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if strings.TrimSpace(body.FirstName) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name required"})
    }
    err = h.Members.Update(c.Request().Context(), userID,
        strings.TrimSpace(body.FirstName), strings.TrimSpace(body.LastName),
        strings.TrimSpace(body.MobileNumber), strings.TrimSpace(body.City))
    if err != nil {
        if errors.Is(err, repository.ErrMemberNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "member profile not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// GetPartnerProfile handles GET /v1/partner/profile.
func (h *ProfileHandler) GetPartnerProfile(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    p, err := h.Partners.GetByUserID(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, repository.ErrPartnerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "partner profile not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":           p.ID,
        "partner_name": p.PartnerName,
        "shop_name":    p.ShopName,
        "city":         p.City,
        "category":     p.Category,
        "status":       p.Status,
        "is_premium":   p.IsPremium,
    })
}

// UpdatePartnerProfile handles PUT /v1/partner/profile.
func (h *ProfileHandler) UpdatePartnerProfile(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        PartnerName string `json:"partner_name"`
        ShopName    string `json:"shop_name"`
        City        string `json:"city"`
        Category    string `json:"category"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if strings.TrimSpace(body.ShopName) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "shop_name required"})
    }
    err = h.Partners.Update(c.Request().Context(), userID,
        strings.TrimSpace(body.PartnerName), strings.TrimSpace(body.ShopName),
        strings.TrimSpace(body.City), strings.TrimSpace(body.Category))
    if err != nil {
        if errors.Is(err, repository.ErrPartnerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "partner profile not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": true})
}
