package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/repository"
)

// PartnerOfferHandler lets a partner manage its own offers.
type PartnerOfferHandler struct {
    Offers   *repository.OfferRepo
    Partners *repository.PartnerRepo
}

func NewPartnerOfferHandler(offers *repository.OfferRepo, partners *repository.PartnerRepo) *PartnerOfferHandler {
    if offers == nil || partners == nil {
        panic("nil repository passed to NewPartnerOfferHandler")
    }
    return &PartnerOfferHandler{Offers: offers, Partners: partners}
}

type offerReq struct {
    Title                string  `json:"title"`
    Description          string  `json:"description"`
    DiscountPercent      uint8   `json:"discount_percent"`
    OriginalPriceCents   uint32  `json:"original_price_cents"`
    DiscountedPriceCents uint32  `json:"discounted_price_cents"`
    Category             string  `json:"category"`
    ExpiryDate           string  `json:"expiry_date"` // RFC3339
    CouponExpiryDays     *int    `json:"coupon_expiry_days"`
    CouponColor          string  `json:"coupon_color"`
    IsActive             *bool   `json:"is_active"`
    ImageURL             *string `json:"image_url"`
    Terms                *string `json:"terms"`
}

func (r *offerReq) validate() (time.Time, string) {
    if strings.TrimSpace(r.Title) == "" {
        return time.Time{}, "title is required"
    }
    if r.DiscountPercent > 100 {
        return time.Time{}, "discount_percent must be 0-100"
    }
    expiry, err := time.Parse(time.RFC3339, r.ExpiryDate)
    if err != nil {
        return time.Time{}, "expiry_date must be RFC3339"
    }
    if !expiry.After(time.Now().UTC()) {
        return time.Time{}, "expiry_date must be in the future"
    }
    if r.CouponExpiryDays != nil && *r.CouponExpiryDays < 1 {
        return time.Time{}, "coupon_expiry_days must be positive"
    }
    return expiry.UTC(), ""
}

// resolvePartner resolves the caller's partner profile or writes the error
// response.
func (h *PartnerOfferHandler) resolvePartner(c echo.Context) (*repository.Partner, error) {
    userID, err := getUserID(c)
    if err != nil {
        return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    p, err := h.Partners.GetByUserID(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, repository.ErrPartnerNotFound) {
            return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "partner profile not found"})
        }
        return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return p, nil
}

// CreateOffer handles POST /v1/partner/offers.
func (h *PartnerOfferHandler) CreateOffer(c echo.Context) error {
    partner, err := h.resolvePartner(c)
    if partner == nil {
        return err
    }
    var req offerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    expiry, msg := req.validate()
    if msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    o := &repository.Offer{
        PartnerID:            partner.ID,
        Title:                strings.TrimSpace(req.Title),
        Description:          strings.TrimSpace(req.Description),
        DiscountPercent:      req.DiscountPercent,
        OriginalPriceCents:   req.OriginalPriceCents,
        DiscountedPriceCents: req.DiscountedPriceCents,
        Category:             strings.TrimSpace(req.Category),
        ExpiryDate:           expiry,
        CouponExpiryDays:     req.CouponExpiryDays,
        CouponColor:          strings.TrimSpace(req.CouponColor),
        ImageURL:             req.ImageURL,
        Terms:                req.Terms,
    }
    if err := h.Offers.Create(c.Request().Context(), o); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create offer"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"offer": o})
}

// ListOffers handles GET /v1/partner/offers: the partner's own offers
// including inactive and expired ones.
func (h *PartnerOfferHandler) ListOffers(c echo.Context) error {
    partner, err := h.resolvePartner(c)
    if partner == nil {
        return err
    }
    items, err := h.Offers.ListByPartner(c.Request().Context(), partner.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load offers"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UpdateOffer handles PUT /v1/partner/offers/:id.
func (h *PartnerOfferHandler) UpdateOffer(c echo.Context) error {
    partner, err := h.resolvePartner(c)
    if partner == nil {
        return err
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
    }
    var req offerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    expiry, msg := req.validate()
    if msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    active := true
    if req.IsActive != nil {
        active = *req.IsActive
    }
    o := &repository.Offer{
        ID:                   id,
        Title:                strings.TrimSpace(req.Title),
        Description:          strings.TrimSpace(req.Description),
        DiscountPercent:      req.DiscountPercent,
        OriginalPriceCents:   req.OriginalPriceCents,
        DiscountedPriceCents: req.DiscountedPriceCents,
        Category:             strings.TrimSpace(req.Category),
        ExpiryDate:           expiry,
        CouponExpiryDays:     req.CouponExpiryDays,
        CouponColor:          strings.TrimSpace(req.CouponColor),
        IsActive:             active,
        ImageURL:             req.ImageURL,
        Terms:                req.Terms,
    }
    if err := h.Offers.Update(c.Request().Context(), partner.ID, o); err != nil {
        switch {
        case errors.Is(err, repository.ErrOfferNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update offer"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// DeleteOffer handles DELETE /v1/partner/offers/:id.
func (h *PartnerOfferHandler) DeleteOffer(c echo.Context) error {
    partner, err := h.resolvePartner(c)
    if partner == nil {
        return err
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
    }
    if err := h.Offers.Delete(c.Request().Context(), partner.ID, id); err != nil {
        switch {
        case errors.Is(err, repository.ErrOfferNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete offer"})
        }
    }
    return c.NoContent(http.StatusNoContent)
}
