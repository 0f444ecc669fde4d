package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// SavedOffer mirrors the 'saved_offers' table: a member's bookmark of an
// offer.  The (member_user_id, offer_id) pair is unique so saving twice is
// a conflict, not a duplicate row.
type SavedOffer struct {
    ID           uint64    `json:"id"`
    MemberUserID uint64    `json:"member_user_id"`
    OfferID      uint64    `json:"offer_id"`
    CreatedAt    time.Time `json:"created_at"`
}

// SavedOfferWithOffer joins a bookmark with the offer it points at for the
// member's saved list.
type SavedOfferWithOffer struct {
    SavedOffer
    Offer Offer `json:"offer"`
}

// ErrSavedOfferNotFound indicates the member has no bookmark for the offer.
var ErrSavedOfferNotFound = errors.New("saved offer not found")

// SavedOfferRepo manages persistence for saved offers.
type SavedOfferRepo struct {
    db *sql.DB
}

// NewSavedOfferRepo returns a new SavedOfferRepo bound to the database.
func NewSavedOfferRepo(db *sql.DB) *SavedOfferRepo { return &SavedOfferRepo{db: db} }

// Save bookmarks an offer for a member.  Returns ErrConflict when already
// saved.
func (r *SavedOfferRepo) Save(ctx context.Context, memberUserID, offerID uint64) error {
    const q = `INSERT INTO saved_offers (member_user_id, offer_id) VALUES (?, ?)`
    _, err := r.db.ExecContext(ctx, q, memberUserID, offerID)
    if err != nil && isDuplicateKey(err) {
        return ErrConflict
    }
    return err
}

// Remove deletes a member's bookmark.  Returns ErrSavedOfferNotFound when
// nothing was saved.
func (r *SavedOfferRepo) Remove(ctx context.Context, memberUserID, offerID uint64) error {
    const q = `DELETE FROM saved_offers WHERE member_user_id = ? AND offer_id = ?`
    res, err := r.db.ExecContext(ctx, q, memberUserID, offerID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrSavedOfferNotFound
    }
    return nil
}

// ListByMember returns a member's bookmarks joined with their offers,
// newest bookmark first.
func (r *SavedOfferRepo) ListByMember(ctx context.Context, memberUserID uint64) ([]SavedOfferWithOffer, error) {
    q := `SELECT s.id, s.member_user_id, s.offer_id, s.created_at,
                 o.id, o.partner_id, o.title, o.description, o.discount_percent, o.original_price_cents,
                 o.discounted_price_cents, o.category, o.expiry_date, o.coupon_expiry_days, o.coupon_color,
                 o.is_active, o.views, o.clicks, o.redemptions, o.image_url, o.terms, o.created_at, o.updated_at
          FROM saved_offers s
          JOIN offers o ON o.id = s.offer_id
          WHERE s.member_user_id = ?
          ORDER BY s.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, memberUserID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]SavedOfferWithOffer, 0)
    for rows.Next() {
        var s SavedOfferWithOffer
        var days sql.NullInt64
        var imageURL, terms sql.NullString
        err := rows.Scan(&s.ID, &s.MemberUserID, &s.OfferID, &s.CreatedAt,
            &s.Offer.ID, &s.Offer.PartnerID, &s.Offer.Title, &s.Offer.Description, &s.Offer.DiscountPercent,
            &s.Offer.OriginalPriceCents, &s.Offer.DiscountedPriceCents, &s.Offer.Category, &s.Offer.ExpiryDate,
            &days, &s.Offer.CouponColor, &s.Offer.IsActive, &s.Offer.Views, &s.Offer.Clicks, &s.Offer.Redemptions,
            &imageURL, &terms, &s.Offer.CreatedAt, &s.Offer.UpdatedAt)
        if err != nil {
            return nil, err
        }
        if days.Valid {
            d := int(days.Int64)
            s.Offer.CouponExpiryDays = &d
        }
        if imageURL.Valid {
            v := imageURL.String
            s.Offer.ImageURL = &v
        }
        if terms.Valid {
            v := terms.String
            s.Offer.Terms = &v
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// ExpiringSoon lists bookmarks whose offer expires within the lookahead
// window from now.  The sweep uses this to warn members before a saved
// deal lapses.
func (r *SavedOfferRepo) ExpiringSoon(ctx context.Context, now time.Time, lookahead time.Duration) ([]SavedOfferWithOffer, error) {
    q := `SELECT s.id, s.member_user_id, s.offer_id, s.created_at,
                 o.id, o.partner_id, o.title, o.description, o.discount_percent, o.original_price_cents,
                 o.discounted_price_cents, o.category, o.expiry_date, o.coupon_expiry_days, o.coupon_color,
                 o.is_active, o.views, o.clicks, o.redemptions, o.image_url, o.terms, o.created_at, o.updated_at
          FROM saved_offers s
          JOIN offers o ON o.id = s.offer_id
          WHERE o.is_active = 1 AND o.expiry_date > ? AND o.expiry_date <= ?`
    const f = "2006-01-02 15:04:05"
    rows, err := r.db.QueryContext(ctx, q, now.UTC().Format(f), now.Add(lookahead).UTC().Format(f))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]SavedOfferWithOffer, 0)
    for rows.Next() {
        var s SavedOfferWithOffer
        var days sql.NullInt64
        var imageURL, terms sql.NullString
        err := rows.Scan(&s.ID, &s.MemberUserID, &s.OfferID, &s.CreatedAt,
            &s.Offer.ID, &s.Offer.PartnerID, &s.Offer.Title, &s.Offer.Description, &s.Offer.DiscountPercent,
            &s.Offer.OriginalPriceCents, &s.Offer.DiscountedPriceCents, &s.Offer.Category, &s.Offer.ExpiryDate,
            &days, &s.Offer.CouponColor, &s.Offer.IsActive, &s.Offer.Views, &s.Offer.Clicks, &s.Offer.Redemptions,
            &imageURL, &terms, &s.Offer.CreatedAt, &s.Offer.UpdatedAt)
        if err != nil {
            return nil, err
        }
        if days.Valid {
            d := int(days.Int64)
            s.Offer.CouponExpiryDays = &d
        }
        if imageURL.Valid {
            v := imageURL.String
            s.Offer.ImageURL = &v
        }
        if terms.Valid {
            v := terms.String
            s.Offer.Terms = &v
        }
        out = append(out, s)
    }
    return out, rows.Err()
}
