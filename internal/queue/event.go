// Package queue defines message payloads exchanged over the message broker.
package queue

// CouponRedeemedEvent is published after a coupon completes the redemption
// transition.  It carries enough denormalized detail for downstream
// consumers to notify or run analytics without querying the primary
// database.
type CouponRedeemedEvent struct {
    CouponID      uint64 `json:"coupon_id"`
    CouponCode    string `json:"coupon_code"`
    OfferID       uint64 `json:"offer_id"`
    OfferTitle    string `json:"offer_title"`
    PartnerID     uint64 `json:"partner_id"`
    PartnerUserID uint64 `json:"partner_user_id"`
    ShopName      string `json:"shop_name"`
    MemberUserID  uint64 `json:"member_user_id"`
    RedeemedAt    string `json:"redeemed_at"`
}
