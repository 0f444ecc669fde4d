package utils

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewQRToken(t *testing.T) {
    tok, err := NewQRToken()
    require.NoError(t, err)
    assert.Len(t, tok, 64)
    assert.True(t, IsValidToken(tok))

    other, err := NewQRToken()
    require.NoError(t, err)
    assert.NotEqual(t, tok, other)
}

func TestNewCouponCode(t *testing.T) {
    code, err := NewCouponCode()
    require.NoError(t, err)
    assert.Regexp(t, `^COUP-[0-9A-F]{4}-[0-9A-F]{4}$`, code)
}

func TestIsValidToken(t *testing.T) {
    assert.False(t, IsValidToken(""))
    assert.False(t, IsValidToken("short"))
    assert.False(t, IsValidToken(strings.Repeat("g", 64)))        // non-hex
    assert.False(t, IsValidToken(strings.ToUpper(strings.Repeat("ab", 32)))) // uppercase
    assert.False(t, IsValidToken(strings.Repeat("a", 63)))
    assert.False(t, IsValidToken(strings.Repeat("a", 65)))
    assert.True(t, IsValidToken(strings.Repeat("ab", 32)))
}

func TestQRPayloadRoundTrip(t *testing.T) {
    tok, err := NewQRToken()
    require.NoError(t, err)

    payload, err := EncodeQRPayload(tok, 42)
    require.NoError(t, err)
    assert.True(t, strings.HasPrefix(payload, "{"))

    got := ParseScannedToken(payload)
    assert.Equal(t, tok, got)
}

func TestParseScannedToken_LegacyBareToken(t *testing.T) {
    tok := strings.Repeat("cd", 32)
    assert.Equal(t, tok, ParseScannedToken("  "+tok+"\n"))
}

func TestParseScannedToken_MalformedJSON(t *testing.T) {
    // Malformed documents come back as-is so the caller's format check
    // rejects them.
    in := `{"t": }`
    assert.Equal(t, in, ParseScannedToken(in))

    in = `{"m": 7}`
    assert.Equal(t, in, ParseScannedToken(in))
}

func TestRenderQRDataURL(t *testing.T) {
    url, err := RenderQRDataURL("hello")
    require.NoError(t, err)
    assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
    assert.Greater(t, len(url), len("data:image/png;base64,"))
}
