package model

import "time"

// Coupon status values.  A coupon starts ACTIVE and moves exactly once to
// either REDEEMED (explicit partner redemption) or EXPIRED (observed lazily
// when a stale coupon is next touched).  Neither terminal state can be left.
const (
    StatusActive   = "ACTIVE"
    StatusRedeemed = "REDEEMED"
    StatusExpired  = "EXPIRED"
)

// Redemption-failure reasons shared by validation and redemption so the
// partner scanner UI sees one vocabulary.
const (
    ReasonAlreadyRedeemed = "coupon has already been redeemed"
    ReasonExpired         = "coupon has expired"
    ReasonWrongShop       = "this coupon is not valid at your shop"
)

// Coupon is a single-use redemption credential issued to a member against a
// specific offer at a specific partner.  The QR token is the coupon's true
// lookup key for validation; the coupon code is a short human-friendly
// identifier for manual reference.  Member, partner and offer references are
// immutable after creation, as are both identifiers and the expiry date.
// The token never appears in JSON responses; the QR image is rendered
// server-side for the owning member only.
type Coupon struct {
    ID           uint64     `json:"id"`
    CouponCode   string     `json:"coupon_code"`
    QRToken      string     `json:"-"`
    MemberUserID uint64     `json:"member_user_id"`
    PartnerID    uint64     `json:"partner_id"`
    OfferID      uint64     `json:"offer_id"`
    Status       string     `json:"status"`
    CouponColor  string     `json:"coupon_color"`
    ExpiryDate   time.Time  `json:"expiry_date"`
    RedeemedAt   *time.Time `json:"redeemed_at,omitempty"`
    RedeemedBy   *uint64    `json:"redeemed_by,omitempty"`
    CreatedAt    time.Time  `json:"created_at"`
    UpdatedAt    time.Time  `json:"updated_at"`
}

// IsExpired reports whether the coupon's expiry date has passed at the given
// instant, regardless of the stored status.
func (c *Coupon) IsExpired(now time.Time) bool {
    return c.ExpiryDate.Before(now)
}

// ValidForRedemption applies the shared eligibility predicate: a coupon is
// redeemable iff its status is ACTIVE and its expiry date has not passed.
// The returned reason is empty when the coupon is valid.  Reasons are
// checked in priority order: an already-redeemed coupon reports
// ReasonAlreadyRedeemed even if it has also passed its expiry date.
func (c *Coupon) ValidForRedemption(now time.Time) (bool, string) {
    if c.Status == StatusRedeemed {
        return false, ReasonAlreadyRedeemed
    }
    if c.Status == StatusExpired || c.IsExpired(now) {
        return false, ReasonExpired
    }
    return true, ""
}
