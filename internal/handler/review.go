package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/repository"
)

// ReviewHandler lets members review offers.  Listing reviews is public and
// lives on PublicOfferHandler.
type ReviewHandler struct {
    Reviews *repository.ReviewRepo
    Offers  *repository.OfferRepo
}

func NewReviewHandler(reviews *repository.ReviewRepo, offers *repository.OfferRepo) *ReviewHandler {
    if reviews == nil || offers == nil {
        panic("nil repository passed to NewReviewHandler")
    }
    return &ReviewHandler{Reviews: reviews, Offers: offers}
}

// Create handles POST /v1/offers/:id/reviews.  One review per member per
// offer; a second attempt answers 409.
func (h *ReviewHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    offerID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer id"})
    }
    var body struct {
        Rating  uint8  `json:"rating"`
        Comment string `json:"comment"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx := c.Request().Context()
    if _, err := h.Offers.GetByID(ctx, offerID); err != nil {
        if errors.Is(err, repository.ErrOfferNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    rv := &repository.Review{
        MemberUserID: userID,
        OfferID:      offerID,
        Rating:       body.Rating,
        Comment:      strings.TrimSpace(body.Comment),
    }
    if err := h.Reviews.Create(ctx, rv); err != nil {
        switch {
        case errors.Is(err, repository.ErrInvalidRating):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "offer already reviewed"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create review"})
        }
    }
    return c.JSON(http.StatusCreated, echo.Map{"review": rv})
}
