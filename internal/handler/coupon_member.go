package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/config"
    "github.com/offerus/offerus-api/internal/model"
    "github.com/offerus/offerus-api/internal/repository"
    "github.com/offerus/offerus-api/internal/utils"
)

// identifierRetries bounds how often coupon creation is retried with fresh
// randomness when an identifier collides.  The code space is small enough
// that a collision is possible, two in a row is effectively impossible.
const identifierRetries = 3

// MemberCouponHandler serves the member side of the coupon lifecycle:
// issuing against an offer, listing with lazy expiry, stats and detail.
// All methods assume JWT authentication and the MEMBER role have been
// enforced by middleware.
type MemberCouponHandler struct {
    Cfg     config.Config
    Coupons *repository.CouponRepo
    Offers  *repository.OfferRepo
    Members *repository.MemberRepo
}

// NewMemberCouponHandler constructs the handler.  All dependencies must be
// non-nil.
func NewMemberCouponHandler(cfg config.Config, coupons *repository.CouponRepo, offers *repository.OfferRepo, members *repository.MemberRepo) *MemberCouponHandler {
    if coupons == nil || offers == nil || members == nil {
        panic("nil repository passed to NewMemberCouponHandler")
    }
    return &MemberCouponHandler{Cfg: cfg, Coupons: coupons, Offers: offers, Members: members}
}

// Generate handles POST /v1/coupons/generate.  It issues a coupon for the
// given offer to the authenticated member.  The offer must exist, be
// active and unexpired, and the member must have a profile.  The coupon's
// expiry is the offer's coupon window when one is configured, otherwise
// the offer's own expiry date.  Returns 201 with the coupon and its QR
// image as a data URL.
func (h *MemberCouponHandler) Generate(c echo.Context) error {
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

    offer, err := h.Offers.GetByID(ctx, body.OfferID)
    if err != nil {
        if errors.Is(err, repository.ErrOfferNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    now := time.Now().UTC()
    if !offer.IsActive {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "offer is not active"})
    }
    if !offer.ExpiryDate.After(now) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "offer has expired"})
    }
    if _, err := h.Members.GetByUserID(ctx, userID); err != nil {
        if errors.Is(err, repository.ErrMemberNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "member profile not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    if h.Cfg.CouponMaxActivePerOffer > 0 {
        n, err := h.Coupons.CountActiveForMemberOffer(ctx, userID, offer.ID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        if n >= h.Cfg.CouponMaxActivePerOffer {
            return c.JSON(http.StatusConflict, echo.Map{"error": "active coupon limit reached for this offer"})
        }
    }

    // A configured coupon window always wins, even past the offer's own
    // expiry date; without one the coupon rides along with the offer.
    expiry := offer.ExpiryDate
    if offer.CouponExpiryDays != nil && *offer.CouponExpiryDays > 0 {
        expiry = now.AddDate(0, 0, *offer.CouponExpiryDays)
    }

    var coupon *model.Coupon
    for attempt := 0; attempt < identifierRetries; attempt++ {
        code, err := utils.NewCouponCode()
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mint coupon code"})
        }
        token, err := utils.NewQRToken()
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mint token"})
        }
        cand := &model.Coupon{
            CouponCode:   code,
            QRToken:      token,
            MemberUserID: userID,
            PartnerID:    offer.PartnerID,
            OfferID:      offer.ID,
            CouponColor:  offer.CouponColor,
            ExpiryDate:   expiry,
        }
        err = h.Coupons.Create(ctx, cand)
        if err == nil {
            coupon = cand
            break
        }
        if !errors.Is(err, repository.ErrDuplicateIdentifier) {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create coupon"})
        }
    }
    if coupon == nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create coupon"})
    }

    payload, err := utils.EncodeQRPayload(coupon.QRToken, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to encode qr payload"})
    }
    qr, err := utils.RenderQRDataURL(payload)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render qr code"})
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "coupon":  coupon,
        "qr_code": qr,
    })
}

// ListMyCoupons handles GET /v1/my-coupons.  Stale ACTIVE coupons are
// flipped to EXPIRED first so the statuses in the listing are current.  An
// optional ?status= filter narrows the result.
func (h *MemberCouponHandler) ListMyCoupons(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
    switch status {
    case "", model.StatusActive, model.StatusRedeemed, model.StatusExpired:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
    }
    ctx := c.Request().Context()

    if err := h.Coupons.ExpireStaleForMember(ctx, userID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    items, err := h.Coupons.ListByMember(ctx, userID, status)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load coupons"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Stats handles GET /v1/my-coupons/stats.
func (h *MemberCouponHandler) Stats(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    stats, err := h.Coupons.StatsForMember(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load stats"})
    }
    return c.JSON(http.StatusOK, stats)
}

// GetCoupon handles GET /v1/coupons/:id.  Only the owning member may view
// a coupon; foreign ids answer 404 rather than 403 so existence is not
// leaked.  For an ACTIVE coupon the QR image is re-rendered so the member
// never has to store it client-side.
func (h *MemberCouponHandler) GetCoupon(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon id"})
    }
    ctx := c.Request().Context()

    detail, err := h.Coupons.GetDetail(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrCouponNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if detail.MemberUserID != userID {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
    }
    if err := h.Coupons.ReconcileExpiry(ctx, &detail.Coupon, time.Now().UTC()); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    resp := echo.Map{"coupon": detail}
    if detail.Status == model.StatusActive {
        payload, err := utils.EncodeQRPayload(detail.QRToken, userID)
        if err == nil {
            if qr, err := utils.RenderQRDataURL(payload); err == nil {
                resp["qr_code"] = qr
            }
        }
    }
    return c.JSON(http.StatusOK, resp)
}
