package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

    c := &Coupon{ExpiryDate: now.Add(time.Hour)}
    assert.False(t, c.IsExpired(now))

    c.ExpiryDate = now.Add(-time.Second)
    assert.True(t, c.IsExpired(now))

    // exactly at the boundary the coupon is still usable
    c.ExpiryDate = now
    assert.False(t, c.IsExpired(now))
}

func TestValidForRedemption_Active(t *testing.T) {
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    c := &Coupon{Status: StatusActive, ExpiryDate: now.Add(24 * time.Hour)}

    ok, reason := c.ValidForRedemption(now)
    assert.True(t, ok)
    assert.Empty(t, reason)
}

func TestValidForRedemption_Redeemed(t *testing.T) {
    now := time.Now().UTC()
    c := &Coupon{Status: StatusRedeemed, ExpiryDate: now.Add(24 * time.Hour)}

    ok, reason := c.ValidForRedemption(now)
    assert.False(t, ok)
    assert.Equal(t, ReasonAlreadyRedeemed, reason)
}

func TestValidForRedemption_RedeemedBeatsExpired(t *testing.T) {
    // A redeemed coupon whose date has also passed reports the redemption,
    // not the expiry.
    now := time.Now().UTC()
    c := &Coupon{Status: StatusRedeemed, ExpiryDate: now.Add(-time.Hour)}

    ok, reason := c.ValidForRedemption(now)
    assert.False(t, ok)
    assert.Equal(t, ReasonAlreadyRedeemed, reason)
}

func TestValidForRedemption_Expired(t *testing.T) {
    now := time.Now().UTC()

    marked := &Coupon{Status: StatusExpired, ExpiryDate: now.Add(24 * time.Hour)}
    ok, reason := marked.ValidForRedemption(now)
    assert.False(t, ok)
    assert.Equal(t, ReasonExpired, reason)

    // ACTIVE in storage but past its date: the lazy transition has not run
    // yet, the verdict must already say expired.
    stale := &Coupon{Status: StatusActive, ExpiryDate: now.Add(-time.Minute)}
    ok, reason = stale.ValidForRedemption(now)
    assert.False(t, ok)
    assert.Equal(t, ReasonExpired, reason)
}
