package utils

import (
    "crypto/rand"
    "encoding/base64"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "regexp"
    "strings"

    qrcode "github.com/skip2/go-qrcode"
)

// tokenPattern matches a well-formed redemption token: exactly 64 lowercase
// hexadecimal characters (32 random bytes).  Anything else is rejected
// before storage is consulted.
var tokenPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// QRPayload is the structured document embedded in a coupon's QR code.  The
// short keys keep the encoded image small: t is the redemption token, m the
// member's user id so a scanning partner can cross-check the presenter.
// Already-issued codes depend on this shape; do not change it without a
// versioned successor.
type QRPayload struct {
    Token    string `json:"t"`
    MemberID uint64 `json:"m"`
}

// NewQRToken returns a fresh redemption token: 32 bytes from crypto/rand
// encoded as 64 lowercase hex characters.
func NewQRToken() (string, error) {
    b := make([]byte, 32)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}

// NewCouponCode returns a short human-readable coupon code in the form
// COUP-XXXX-XXXX built from 4 random bytes.  The code space is small enough
// that collisions are possible at scale; callers must retry insertion with a
// fresh code on a duplicate-key error.
func NewCouponCode() (string, error) {
    b := make([]byte, 4)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    s := strings.ToUpper(hex.EncodeToString(b))
    return fmt.Sprintf("COUP-%s-%s", s[:4], s[4:]), nil
}

// IsValidToken reports whether token has the exact fixed-length hex format.
func IsValidToken(token string) bool {
    return tokenPattern.MatchString(token)
}

// EncodeQRPayload serializes the payload document carried by the QR image.
func EncodeQRPayload(token string, memberID uint64) (string, error) {
    b, err := json.Marshal(QRPayload{Token: token, MemberID: memberID})
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// ParseScannedToken normalizes a scanned value into a bare redemption token.
// New QR codes carry the structured JSON document; codes issued before the
// payload format existed carry the raw token alone, so a non-JSON input is
// returned as-is for the caller to format-check.
func ParseScannedToken(scanned string) string {
    s := strings.TrimSpace(scanned)
    if !strings.HasPrefix(s, "{") {
        return s
    }
    var p QRPayload
    if err := json.Unmarshal([]byte(s), &p); err != nil || p.Token == "" {
        // Malformed document; hand back the raw input so the format check
        // rejects it with the standard error.
        return s
    }
    return p.Token
}

// RenderQRDataURL encodes the payload into a PNG QR image and returns it as
// a base64 data URL ready for an <img> tag.  Error-correction level H keeps
// codes scannable on worn phone screens.
func RenderQRDataURL(payload string) (string, error) {
    png, err := qrcode.Encode(payload, qrcode.High, 400)
    if err != nil {
        return "", fmt.Errorf("render qr: %w", err)
    }
    return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
