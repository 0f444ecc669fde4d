// Package repository contains data access logic for offer operations. This
// file defines the Offer model and repository methods. An Offer is a
// discounted listing published by a partner; coupons are issued against it.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "errors"       // errors for sentinel definitions
    "strings"
    "time"
)

// Offer mirrors the 'offers' table.  CouponExpiryDays, when set, shortens
// the redemption window of coupons issued against the offer; when nil the
// coupon simply inherits ExpiryDate.  The analytics counters are only ever
// changed through atomic increments, never read-modify-write.
type Offer struct {
    ID                   uint64     `json:"id"`
    PartnerID            uint64     `json:"partner_id"`
    Title                string     `json:"title"`
    Description          string     `json:"description"`
    DiscountPercent      uint8      `json:"discount_percent"`
    OriginalPriceCents   uint32     `json:"original_price_cents"`
    DiscountedPriceCents uint32     `json:"discounted_price_cents"`
    Category             string     `json:"category"`
    ExpiryDate           time.Time  `json:"expiry_date"`
    CouponExpiryDays     *int       `json:"coupon_expiry_days,omitempty"`
    CouponColor          string     `json:"coupon_color"`
    IsActive             bool       `json:"is_active"`
    Views                uint64     `json:"views"`
    Clicks               uint64     `json:"clicks"`
    Redemptions          uint64     `json:"redemptions"`
    ImageURL             *string    `json:"image_url,omitempty"`
    Terms                *string    `json:"terms,omitempty"`
    CreatedAt            time.Time  `json:"created_at"`
    UpdatedAt            time.Time  `json:"updated_at"`
}

// ErrOfferNotFound indicates that an offer was not located in the DB.
var ErrOfferNotFound = errors.New("offer not found")

// OfferRepo manages persistence for offers.
type OfferRepo struct {
    db *sql.DB
}

// NewOfferRepo returns a new OfferRepo bound to the given database.
func NewOfferRepo(db *sql.DB) *OfferRepo { return &OfferRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *OfferRepo) DB() *sql.DB { return r.db }

const offerColumns = `id, partner_id, title, description, discount_percent, original_price_cents,
       discounted_price_cents, category, expiry_date, coupon_expiry_days, coupon_color,
       is_active, views, clicks, redemptions, image_url, terms, created_at, updated_at`

func scanOffer(row interface{ Scan(...any) error }) (*Offer, error) {
    var o Offer
    var days sql.NullInt64
    var imageURL, terms sql.NullString
    err := row.Scan(&o.ID, &o.PartnerID, &o.Title, &o.Description, &o.DiscountPercent,
        &o.OriginalPriceCents, &o.DiscountedPriceCents, &o.Category, &o.ExpiryDate,
        &days, &o.CouponColor, &o.IsActive, &o.Views, &o.Clicks, &o.Redemptions,
        &imageURL, &terms, &o.CreatedAt, &o.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if days.Valid {
        d := int(days.Int64)
        o.CouponExpiryDays = &d
    }
    if imageURL.Valid {
        s := imageURL.String
        o.ImageURL = &s
    }
    if terms.Valid {
        s := terms.String
        o.Terms = &s
    }
    return &o, nil
}

// Create inserts a new offer and populates generated fields on it.
func (r *OfferRepo) Create(ctx context.Context, o *Offer) error {
    const q = `INSERT INTO offers (partner_id, title, description, discount_percent, original_price_cents,
               discounted_price_cents, category, expiry_date, coupon_expiry_days, coupon_color, image_url, terms)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    color := o.CouponColor
    if color == "" {
        color = "#c9a962" // default theme color carried onto coupons
    }
    res, err := r.db.ExecContext(ctx, q, o.PartnerID, o.Title, o.Description, o.DiscountPercent,
        o.OriginalPriceCents, o.DiscountedPriceCents, o.Category,
        o.ExpiryDate.UTC().Format("2006-01-02 15:04:05"), o.CouponExpiryDays, color, o.ImageURL, o.Terms)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    // Query back the full row to populate defaults and timestamps.
    sel := `SELECT ` + offerColumns + ` FROM offers WHERE id = ?`
    got, err := scanOffer(r.db.QueryRowContext(ctx, sel, o.ID))
    if err != nil {
        return err
    }
    *o = *got
    return nil
}

// GetByID fetches a single offer.  Returns ErrOfferNotFound when absent.
func (r *OfferRepo) GetByID(ctx context.Context, id uint64) (*Offer, error) {
    q := `SELECT ` + offerColumns + ` FROM offers WHERE id = ?`
    o, err := scanOffer(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrOfferNotFound
        }
        return nil, err
    }
    return o, nil
}

// ListPublic returns active, unexpired offers for the public catalogue with
// optional category and free-text filters, newest first, paginated.
func (r *OfferRepo) ListPublic(ctx context.Context, category, search string, page, limit int) ([]Offer, error) {
    if page < 1 {
        page = 1
    }
    if limit < 1 || limit > 100 {
        limit = 20
    }
    q := `SELECT ` + offerColumns + ` FROM offers WHERE is_active = 1 AND expiry_date > UTC_TIMESTAMP()`
    args := make([]any, 0, 4)
    if category != "" {
        q += ` AND category = ?`
        args = append(args, category)
    }
    if search != "" {
        q += ` AND (title LIKE ? OR description LIKE ?)`
        like := "%" + strings.TrimSpace(search) + "%"
        args = append(args, like, like)
    }
    q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
    args = append(args, limit, (page-1)*limit)
    return r.list(ctx, q, args...)
}

// ListByPartner returns all offers belonging to a partner, newest first.
func (r *OfferRepo) ListByPartner(ctx context.Context, partnerID uint64) ([]Offer, error) {
    q := `SELECT ` + offerColumns + ` FROM offers WHERE partner_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, partnerID)
}

func (r *OfferRepo) list(ctx context.Context, q string, args ...any) ([]Offer, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]Offer, 0)
    for rows.Next() {
        o, err := scanOffer(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *o)
    }
    return out, rows.Err()
}

// Update rewrites an offer's editable fields after verifying the caller's
// partner profile owns it.  Returns ErrOfferNotFound or ErrForbidden.
func (r *OfferRepo) Update(ctx context.Context, partnerID uint64, o *Offer) error {
    owner, err := r.ownerOf(ctx, o.ID)
    if err != nil {
        return err
    }
    if owner != partnerID {
        return ErrForbidden
    }
    const q = `UPDATE offers SET title = ?, description = ?, discount_percent = ?, original_price_cents = ?,
               discounted_price_cents = ?, category = ?, expiry_date = ?, coupon_expiry_days = ?,
               coupon_color = ?, is_active = ?, image_url = ?, terms = ?
               WHERE id = ?`
    _, err = r.db.ExecContext(ctx, q, o.Title, o.Description, o.DiscountPercent, o.OriginalPriceCents,
        o.DiscountedPriceCents, o.Category, o.ExpiryDate.UTC().Format("2006-01-02 15:04:05"),
        o.CouponExpiryDays, o.CouponColor, o.IsActive, o.ImageURL, o.Terms, o.ID)
    return err
}

// Delete removes an offer after an ownership check.  Coupons already issued
// against it keep their own copy of the fields they need.
func (r *OfferRepo) Delete(ctx context.Context, partnerID, offerID uint64) error {
    owner, err := r.ownerOf(ctx, offerID)
    if err != nil {
        return err
    }
    if owner != partnerID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx, `DELETE FROM offers WHERE id = ?`, offerID)
    return err
}

func (r *OfferRepo) ownerOf(ctx context.Context, offerID uint64) (uint64, error) {
    var owner uint64
    err := r.db.QueryRowContext(ctx, `SELECT partner_id FROM offers WHERE id = ?`, offerID).Scan(&owner)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return 0, ErrOfferNotFound
        }
        return 0, err
    }
    return owner, nil
}

// IncrementViews bumps the view counter atomically.
func (r *OfferRepo) IncrementViews(ctx context.Context, offerID uint64) error {
    _, err := r.db.ExecContext(ctx, `UPDATE offers SET views = views + 1 WHERE id = ?`, offerID)
    return err
}

// IncrementClicks bumps the click counter atomically.
func (r *OfferRepo) IncrementClicks(ctx context.Context, offerID uint64) error {
    _, err := r.db.ExecContext(ctx, `UPDATE offers SET clicks = clicks + 1 WHERE id = ?`, offerID)
    return err
}

// IncrementRedemptions bumps the redemption counter atomically.  Called as a
// best-effort side effect after a coupon is redeemed; concurrent redemptions
// across different coupons of the same offer cannot lose updates.
func (r *OfferRepo) IncrementRedemptions(ctx context.Context, offerID uint64) error {
    _, err := r.db.ExecContext(ctx, `UPDATE offers SET redemptions = redemptions + 1 WHERE id = ?`, offerID)
    return err
}
