package handler

import (
    "errors"
    "log"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/repository"
)

// PublicOfferHandler serves the unauthenticated catalogue: browsing offers,
// offer detail with reviews, shops and categories.  These routes sit behind
// the response cache middleware since they are read-heavy and identical for
// every visitor.
type PublicOfferHandler struct {
    Offers     *repository.OfferRepo
    Partners   *repository.PartnerRepo
    Reviews    *repository.ReviewRepo
    Categories *repository.CategoryRepo
}

func NewPublicOfferHandler(offers *repository.OfferRepo, partners *repository.PartnerRepo, reviews *repository.ReviewRepo, categories *repository.CategoryRepo) *PublicOfferHandler {
    if offers == nil || partners == nil || reviews == nil || categories == nil {
        panic("nil repository passed to NewPublicOfferHandler")
    }
    return &PublicOfferHandler{Offers: offers, Partners: partners, Reviews: reviews, Categories: categories}
}

// ListOffers handles GET /v1/offers with optional ?category=, ?search=,
// ?page= and ?limit= parameters.
func (h *PublicOfferHandler) ListOffers(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    items, err := h.Offers.ListPublic(c.Request().Context(),
        c.QueryParam("category"), c.QueryParam("search"), page, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load offers"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetOffer handles GET /v1/offers/:id.  Each detail view bumps the view
// counter; the bump is best-effort and never fails the request.  The
// response includes the shop summary and review aggregate.
func (h *PublicOfferHandler) GetOffer(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
    }
    ctx := c.Request().Context()
    offer, err := h.Offers.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrOfferNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if err := h.Offers.IncrementViews(ctx, id); err != nil {
        log.Printf("offer %d: increment views failed: %v", id, err)
    }

    resp := echo.Map{"offer": offer}
    if p, err := h.Partners.GetByID(ctx, offer.PartnerID); err == nil {
        resp["shop"] = echo.Map{
            "shop_name": p.ShopName,
            "city":      p.City,
            "category":  p.Category,
        }
    }
    if avg, count, err := h.Reviews.AverageForOffer(ctx, id); err == nil {
        resp["rating"] = echo.Map{"average": avg, "count": count}
    }
    return c.JSON(http.StatusOK, resp)
}

// ClickOffer handles POST /v1/offers/:id/click.  Tracks outbound interest
// separately from views.
func (h *PublicOfferHandler) ClickOffer(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Offers.GetByID(ctx, id); err != nil {
        if errors.Is(err, repository.ErrOfferNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if err := h.Offers.IncrementClicks(ctx, id); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record click"})
    }
    return c.NoContent(http.StatusNoContent)
}

// ListShops handles GET /v1/shops: approved partner shops.
func (h *PublicOfferHandler) ListShops(c echo.Context) error {
    partners, err := h.Partners.ListApproved(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load shops"})
    }
    items := make([]echo.Map, 0, len(partners))
    for _, p := range partners {
        items = append(items, echo.Map{
            "id":         p.ID,
            "shop_name":  p.ShopName,
            "city":       p.City,
            "category":   p.Category,
            "is_premium": p.IsPremium,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListCategories handles GET /v1/categories.
func (h *PublicOfferHandler) ListCategories(c echo.Context) error {
    items, err := h.Categories.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load categories"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListOfferReviews handles GET /v1/offers/:id/reviews.
func (h *PublicOfferHandler) ListOfferReviews(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
    }
    items, err := h.Reviews.ListByOffer(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reviews"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
