package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/repository"
)

// SubscriptionHandler manages partner subscription plans.  Payment itself
// happens out of band; this records the purchased period and flips the
// premium flag.
type SubscriptionHandler struct {
    Subscriptions *repository.SubscriptionRepo
    Partners      *repository.PartnerRepo
}

func NewSubscriptionHandler(subs *repository.SubscriptionRepo, partners *repository.PartnerRepo) *SubscriptionHandler {
    if subs == nil || partners == nil {
        panic("nil repository passed to NewSubscriptionHandler")
    }
    return &SubscriptionHandler{Subscriptions: subs, Partners: partners}
}

// Create handles POST /v1/partner/subscriptions with body
// {"plan": "BASIC"|"PREMIUM", "months": N}.
func (h *SubscriptionHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Plan   string `json:"plan"`
        Months int    `json:"months"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    plan := strings.ToUpper(strings.TrimSpace(body.Plan))
    if plan != repository.PlanBasic && plan != repository.PlanPremium {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan must be BASIC or PREMIUM"})
    }
    if body.Months < 1 || body.Months > 24 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "months must be 1-24"})
    }
    ctx := c.Request().Context()
    p, err := h.Partners.GetByUserID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrPartnerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "partner profile not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    now := time.Now().UTC()
    s := &repository.Subscription{
        PartnerID: p.ID,
        Plan:      plan,
        StartsAt:  now,
        EndsAt:    now.AddDate(0, body.Months, 0),
    }
    if err := h.Subscriptions.Create(ctx, s); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create subscription"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"subscription": s})
}

// AdminCreate handles POST /v1/admin/subscriptions with body
// {"partner_id": N, "plan": "BASIC"|"PREMIUM", "months": N}.  Admins use it
// to record an out-of-band payment on behalf of a partner.
func (h *SubscriptionHandler) AdminCreate(c echo.Context) error {
    var body struct {
        PartnerID uint64 `json:"partner_id"`
        Plan      string `json:"plan"`
        Months    int    `json:"months"`
    }
    if err := c.Bind(&body); err != nil || body.PartnerID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    plan := strings.ToUpper(strings.TrimSpace(body.Plan))
    if plan != repository.PlanBasic && plan != repository.PlanPremium {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan must be BASIC or PREMIUM"})
    }
    if body.Months < 1 || body.Months > 24 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "months must be 1-24"})
    }
    ctx := c.Request().Context()
    p, err := h.Partners.GetByID(ctx, body.PartnerID)
    if err != nil {
        if errors.Is(err, repository.ErrPartnerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "partner not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    now := time.Now().UTC()
    s := &repository.Subscription{
        PartnerID: p.ID,
        Plan:      plan,
        StartsAt:  now,
        EndsAt:    now.AddDate(0, body.Months, 0),
    }
    if err := h.Subscriptions.Create(ctx, s); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create subscription"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"subscription": s})
}

// List handles GET /v1/partner/subscriptions.
func (h *SubscriptionHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx := c.Request().Context()
    p, err := h.Partners.GetByUserID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrPartnerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "partner profile not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    items, err := h.Subscriptions.ListByPartner(ctx, p.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load subscriptions"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
