package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/model"
    "github.com/offerus/offerus-api/internal/queue"
    "github.com/offerus/offerus-api/internal/repository"
    queue_publisher "github.com/offerus/offerus-api/internal/service"
    "github.com/offerus/offerus-api/internal/utils"
)

// PartnerCouponHandler serves the shop side of the coupon lifecycle:
// validating a scanned QR code and performing the redemption itself.  All
// methods assume JWT authentication and the PARTNER role have been enforced
// by middleware.
type PartnerCouponHandler struct {
    Coupons  *repository.CouponRepo
    Offers   *repository.OfferRepo
    Partners *repository.PartnerRepo
}

// NewPartnerCouponHandler constructs the handler.  All dependencies must be
// non-nil.
func NewPartnerCouponHandler(coupons *repository.CouponRepo, offers *repository.OfferRepo, partners *repository.PartnerRepo) *PartnerCouponHandler {
    if coupons == nil || offers == nil || partners == nil {
        panic("nil repository passed to NewPartnerCouponHandler")
    }
    return &PartnerCouponHandler{Coupons: coupons, Offers: offers, Partners: partners}
}

// resolvePartner resolves the caller's partner profile.  Returns nil and
// writes the response when no profile exists for the authenticated user.
func (h *PartnerCouponHandler) resolvePartner(c echo.Context, userID uint64) (*repository.Partner, error) {
    p, err := h.Partners.GetByUserID(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, repository.ErrPartnerNotFound) {
            return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "partner profile not found"})
        }
        return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return p, nil
}

// Validate handles POST /v1/coupons/validate.  The body carries whatever
// the partner's scanner produced; both the structured QR document and a
// bare legacy token are accepted.  The token format is checked before any
// lookup so junk input never reaches the database.  The verdict mirrors
// what the redeem endpoint would decide but changes nothing except the
// lazy expiry flip.
func (h *PartnerCouponHandler) Validate(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        QRData string `json:"qr_data"`
    }
    if err := c.Bind(&body); err != nil || body.QRData == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_data is required"})
    }
    token := utils.ParseScannedToken(body.QRData)
    if !utils.IsValidToken(token) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token format"})
    }

    partner, err := h.resolvePartner(c, userID)
    if partner == nil {
        return err
    }
    ctx := c.Request().Context()

    coupon, err := h.Coupons.GetByToken(ctx, token)
    if err != nil {
        if errors.Is(err, repository.ErrCouponNotFound) {
            // A failed scan is an expected outcome for the scanner UI, so
            // the body carries a verdict and not just the error.
            return c.JSON(http.StatusNotFound, echo.Map{
                "valid": false,
                "error": "coupon not found",
            })
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    // Another shop's coupon: answer with the generic reason and no detail
    // so one partner cannot probe another's coupons.
    if coupon.PartnerID != partner.ID {
        return c.JSON(http.StatusForbidden, echo.Map{
            "valid":  false,
            "reason": model.ReasonWrongShop,
        })
    }

    now := time.Now().UTC()
    if err := h.Coupons.ReconcileExpiry(ctx, coupon, now); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if ok, reason := coupon.ValidForRedemption(now); !ok {
        return c.JSON(http.StatusOK, echo.Map{
            "valid":  false,
            "reason": reason,
        })
    }

    detail, err := h.Coupons.GetDetail(ctx, coupon.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "valid":  true,
        "coupon": detail,
    })
}

// Redeem handles POST /v1/coupons/redeem.  The state transition is one
// conditional UPDATE, so when two devices race on the same coupon exactly
// one succeeds; the loser re-reads the row to report the precise reason.
// Counter bumps and the broker event are best-effort after the commit and
// never fail the redemption.
func (h *PartnerCouponHandler) Redeem(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        CouponID uint64 `json:"coupon_id"`
    }
    if err := c.Bind(&body); err != nil || body.CouponID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "coupon_id is required"})
    }

    partner, err := h.resolvePartner(c, userID)
    if partner == nil {
        return err
    }
    ctx := c.Request().Context()

    coupon, err := h.Coupons.GetByID(ctx, body.CouponID)
    if err != nil {
        if errors.Is(err, repository.ErrCouponNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if coupon.PartnerID != partner.ID {
        return c.JSON(http.StatusForbidden, echo.Map{
            "redeemed": false,
            "reason":   model.ReasonWrongShop,
        })
    }

    now := time.Now().UTC()
    if err := h.Coupons.ReconcileExpiry(ctx, coupon, now); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if ok, reason := coupon.ValidForRedemption(now); !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "redeemed": false,
            "reason":   reason,
        })
    }

    won, err := h.Coupons.Redeem(ctx, coupon.ID, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to redeem coupon"})
    }
    if !won {
        // Lost the race or expired between the read and the update.
        fresh, err := h.Coupons.GetByID(ctx, coupon.ID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        _, reason := fresh.ValidForRedemption(now)
        if reason == "" {
            reason = model.ReasonExpired
        }
        return c.JSON(http.StatusBadRequest, echo.Map{
            "redeemed": false,
            "reason":   reason,
        })
    }

    detail, err := h.Coupons.GetDetail(ctx, coupon.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    // Side effects after the committed transition: failures are logged and
    // swallowed, the redemption already happened.
    if err := h.Offers.IncrementRedemptions(ctx, coupon.OfferID); err != nil {
        log.Printf("redeem: increment redemptions failed for offer %d: %v", coupon.OfferID, err)
    }
    redeemedAt := now.Format(time.RFC3339)
    if detail.RedeemedAt != nil {
        redeemedAt = detail.RedeemedAt.UTC().Format(time.RFC3339)
    }
    go func(ev queue.CouponRedeemedEvent) {
        pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = queue_publisher.PublishCouponRedeemed(pubCtx, ev)
    }(queue.CouponRedeemedEvent{
        CouponID:      detail.ID,
        CouponCode:    detail.CouponCode,
        OfferID:       detail.OfferID,
        OfferTitle:    detail.Offer.Title,
        PartnerID:     partner.ID,
        PartnerUserID: partner.UserID,
        ShopName:      partner.ShopName,
        MemberUserID:  detail.MemberUserID,
        RedeemedAt:    redeemedAt,
    })

    return c.JSON(http.StatusOK, echo.Map{
        "redeemed": true,
        "coupon":   detail,
    })
}

// Redemptions handles GET /v1/partner/redemptions: the shop's redemption
// history, most recent first.
func (h *PartnerCouponHandler) Redemptions(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    partner, err := h.resolvePartner(c, userID)
    if partner == nil {
        return err
    }
    items, err := h.Coupons.ListRedeemedByPartner(c.Request().Context(), partner.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load redemptions"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
