// Package repository: coupon persistence.  The coupon table is the only
// contested record in the system; every state transition here is a single
// conditional UPDATE so that concurrent attempts resolve inside the
// database rather than in application code.
package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/offerus/offerus-api/internal/model"
)

// ErrCouponNotFound indicates that a coupon was not located in the DB.
var ErrCouponNotFound = errors.New("coupon not found")

// CouponRepo manages persistence for coupons.
type CouponRepo struct {
    db *sql.DB
}

// NewCouponRepo returns a new CouponRepo bound to the given database.
func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

// DB exposes the underlying sql.DB for cross-repository transactions.
func (r *CouponRepo) DB() *sql.DB { return r.db }

const couponColumns = `id, coupon_code, qr_token, member_user_id, partner_id, offer_id, status,
       coupon_color, expiry_date, redeemed_at, redeemed_by, created_at, updated_at`

func scanCoupon(row interface{ Scan(...any) error }) (*model.Coupon, error) {
    var c model.Coupon
    var redeemedAt sql.NullTime
    var redeemedBy sql.NullInt64
    err := row.Scan(&c.ID, &c.CouponCode, &c.QRToken, &c.MemberUserID, &c.PartnerID, &c.OfferID,
        &c.Status, &c.CouponColor, &c.ExpiryDate, &redeemedAt, &redeemedBy, &c.CreatedAt, &c.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if redeemedAt.Valid {
        t := redeemedAt.Time
        c.RedeemedAt = &t
    }
    if redeemedBy.Valid {
        id := uint64(redeemedBy.Int64)
        c.RedeemedBy = &id
    }
    return &c, nil
}

// Create inserts a new coupon and populates generated fields on it.  Both
// identifiers must already be minted by the caller.  A unique-constraint
// violation on either identifier surfaces as ErrDuplicateIdentifier so the
// caller can retry with fresh randomness instead of failing the request.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
    const q = `INSERT INTO coupons (coupon_code, qr_token, member_user_id, partner_id, offer_id, coupon_color, expiry_date)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, c.CouponCode, c.QRToken, c.MemberUserID, c.PartnerID, c.OfferID,
        c.CouponColor, c.ExpiryDate.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicateIdentifier
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    c.ID = uint64(id)
    sel := `SELECT ` + couponColumns + ` FROM coupons WHERE id = ?`
    got, err := scanCoupon(r.db.QueryRowContext(ctx, sel, c.ID))
    if err != nil {
        return err
    }
    *c = *got
    return nil
}

// GetByID fetches a coupon by primary key.  Returns ErrCouponNotFound when
// absent.
func (r *CouponRepo) GetByID(ctx context.Context, id uint64) (*model.Coupon, error) {
    q := `SELECT ` + couponColumns + ` FROM coupons WHERE id = ?`
    return r.one(r.db.QueryRowContext(ctx, q, id))
}

// GetByToken fetches a coupon by its QR redemption token.  Callers must
// format-check the token first; this method goes straight to storage.
func (r *CouponRepo) GetByToken(ctx context.Context, token string) (*model.Coupon, error) {
    q := `SELECT ` + couponColumns + ` FROM coupons WHERE qr_token = ?`
    return r.one(r.db.QueryRowContext(ctx, q, token))
}

func (r *CouponRepo) one(row *sql.Row) (*model.Coupon, error) {
    c, err := scanCoupon(row)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrCouponNotFound
        }
        return nil, err
    }
    return c, nil
}

// CountActiveForMemberOffer counts a member's ACTIVE, unexpired coupons for
// one offer.  Used to enforce the configurable per-offer issuance limit.
func (r *CouponRepo) CountActiveForMemberOffer(ctx context.Context, memberUserID, offerID uint64) (int, error) {
    const q = `SELECT COUNT(*) FROM coupons
               WHERE member_user_id = ? AND offer_id = ? AND status = 'ACTIVE' AND expiry_date > UTC_TIMESTAMP()`
    var n int
    err := r.db.QueryRowContext(ctx, q, memberUserID, offerID).Scan(&n)
    return n, err
}

// MarkExpired flips a coupon from ACTIVE to EXPIRED.  The condition on the
// current status makes the lazy-expiry write idempotent and guarantees a
// REDEEMED coupon is never overwritten.  Reports whether a row changed.
func (r *CouponRepo) MarkExpired(ctx context.Context, id uint64) (bool, error) {
    const q = `UPDATE coupons SET status = 'EXPIRED' WHERE id = ? AND status = 'ACTIVE'`
    res, err := r.db.ExecContext(ctx, q, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n == 1, err
}

// ExpireStaleForMember bulk-expires a member's ACTIVE coupons whose expiry
// date has passed.  Run before listing so the member sees current statuses.
func (r *CouponRepo) ExpireStaleForMember(ctx context.Context, memberUserID uint64) error {
    const q = `UPDATE coupons SET status = 'EXPIRED'
               WHERE member_user_id = ? AND status = 'ACTIVE' AND expiry_date < UTC_TIMESTAMP()`
    _, err := r.db.ExecContext(ctx, q, memberUserID)
    return err
}

// Redeem performs the one-way ACTIVE -> REDEEMED transition.  The WHERE
// clause re-checks the full eligibility predicate inside the database, so
// of two near-simultaneous attempts on the same coupon exactly one sees
// RowsAffected == 1.  The loser must re-read the coupon to learn why.
func (r *CouponRepo) Redeem(ctx context.Context, id, redeemerUserID uint64) (bool, error) {
    const q = `UPDATE coupons SET status = 'REDEEMED', redeemed_at = UTC_TIMESTAMP(), redeemed_by = ?
               WHERE id = ? AND status = 'ACTIVE' AND expiry_date > UTC_TIMESTAMP()`
    res, err := r.db.ExecContext(ctx, q, redeemerUserID, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n == 1, err
}

// MemberCouponStats aggregates a member's coupon counts for the stats
// endpoint.
type MemberCouponStats struct {
    TotalGenerated int `json:"total_generated"`
    TotalRedeemed  int `json:"total_redeemed"`
    ActiveCoupons  int `json:"active_coupons"`
}

// StatsForMember computes the member's coupon statistics in one query.
func (r *CouponRepo) StatsForMember(ctx context.Context, memberUserID uint64) (MemberCouponStats, error) {
    const q = `SELECT COUNT(*),
                      COALESCE(SUM(status = 'REDEEMED'), 0),
                      COALESCE(SUM(status = 'ACTIVE' AND expiry_date > UTC_TIMESTAMP()), 0)
               FROM coupons WHERE member_user_id = ?`
    var s MemberCouponStats
    err := r.db.QueryRowContext(ctx, q, memberUserID).Scan(&s.TotalGenerated, &s.TotalRedeemed, &s.ActiveCoupons)
    return s, err
}

// CouponDetail is a coupon joined with summaries of its offer, partner and
// member for display.  Returned to the rightful member, or to the owning
// partner after a successful validation; never leaked for foreign coupons.
type CouponDetail struct {
    model.Coupon
    Offer struct {
        Title                string `json:"title"`
        Description          string `json:"description"`
        DiscountPercent      uint8  `json:"discount_percent"`
        OriginalPriceCents   uint32 `json:"original_price_cents"`
        DiscountedPriceCents uint32 `json:"discounted_price_cents"`
    } `json:"offer"`
    Partner struct {
        ShopName    string `json:"shop_name"`
        PartnerName string `json:"partner_name"`
        City        string `json:"city"`
    } `json:"partner"`
    Member struct {
        Email string `json:"email"`
    } `json:"member"`
}

const couponDetailQuery = `SELECT c.id, c.coupon_code, c.qr_token, c.member_user_id, c.partner_id, c.offer_id,
              c.status, c.coupon_color, c.expiry_date, c.redeemed_at, c.redeemed_by, c.created_at, c.updated_at,
              o.title, o.description, o.discount_percent, o.original_price_cents, o.discounted_price_cents,
              p.shop_name, p.partner_name, p.city,
              u.email
       FROM coupons c
       JOIN offers o ON o.id = c.offer_id
       JOIN partners p ON p.id = c.partner_id
       JOIN users u ON u.id = c.member_user_id`

func scanCouponDetail(row interface{ Scan(...any) error }) (*CouponDetail, error) {
    var d CouponDetail
    var redeemedAt sql.NullTime
    var redeemedBy sql.NullInt64
    err := row.Scan(&d.ID, &d.CouponCode, &d.QRToken, &d.MemberUserID, &d.PartnerID, &d.OfferID,
        &d.Status, &d.CouponColor, &d.ExpiryDate, &redeemedAt, &redeemedBy, &d.CreatedAt, &d.UpdatedAt,
        &d.Offer.Title, &d.Offer.Description, &d.Offer.DiscountPercent,
        &d.Offer.OriginalPriceCents, &d.Offer.DiscountedPriceCents,
        &d.Partner.ShopName, &d.Partner.PartnerName, &d.Partner.City,
        &d.Member.Email)
    if err != nil {
        return nil, err
    }
    if redeemedAt.Valid {
        t := redeemedAt.Time
        d.RedeemedAt = &t
    }
    if redeemedBy.Valid {
        id := uint64(redeemedBy.Int64)
        d.RedeemedBy = &id
    }
    return &d, nil
}

// GetDetail loads a coupon with its nested summaries.
func (r *CouponRepo) GetDetail(ctx context.Context, id uint64) (*CouponDetail, error) {
    q := couponDetailQuery + ` WHERE c.id = ?`
    d, err := scanCouponDetail(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrCouponNotFound
        }
        return nil, err
    }
    return d, nil
}

// ListByMember returns a member's coupons with summaries, newest first,
// optionally filtered by status.
func (r *CouponRepo) ListByMember(ctx context.Context, memberUserID uint64, status string) ([]CouponDetail, error) {
    q := couponDetailQuery + ` WHERE c.member_user_id = ?`
    args := []any{memberUserID}
    if status != "" {
        q += ` AND c.status = ?`
        args = append(args, status)
    }
    q += ` ORDER BY c.created_at DESC`
    return r.listDetails(ctx, q, args...)
}

// ListRedeemedByPartner returns a partner's redemption history, most recent
// redemption first.
func (r *CouponRepo) ListRedeemedByPartner(ctx context.Context, partnerID uint64) ([]CouponDetail, error) {
    q := couponDetailQuery + ` WHERE c.partner_id = ? AND c.status = 'REDEEMED' ORDER BY c.redeemed_at DESC`
    return r.listDetails(ctx, q, partnerID)
}

func (r *CouponRepo) listDetails(ctx context.Context, q string, args ...any) ([]CouponDetail, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]CouponDetail, 0)
    for rows.Next() {
        d, err := scanCouponDetail(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *d)
    }
    return out, rows.Err()
}

// ReconcileExpiry applies lazy expiry to a loaded coupon: when the stored
// status is ACTIVE but the expiry date has passed at now, the EXPIRED
// transition is persisted and the in-memory copy updated.  Validation and
// redemption both call this before applying the eligibility predicate.
func (r *CouponRepo) ReconcileExpiry(ctx context.Context, c *model.Coupon, now time.Time) error {
    if c.Status != model.StatusActive || !c.IsExpired(now) {
        return nil
    }
    if _, err := r.MarkExpired(ctx, c.ID); err != nil {
        return err
    }
    c.Status = model.StatusExpired
    return nil
}
