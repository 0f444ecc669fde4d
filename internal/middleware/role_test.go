package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func runWithRole(t *testing.T, mw echo.MiddlewareFunc, role interface{}) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if role != nil {
        c.Set("role", role)
    }
    h := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
    require.NoError(t, h(c))
    return rec
}

func TestRequireRole_Allowed(t *testing.T) {
    rec := runWithRole(t, RequireRole("MEMBER", "PARTNER"), "MEMBER")
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Denied(t *testing.T) {
    rec := runWithRole(t, RequireRole("ADMIN"), "MEMBER")
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_MissingRole(t *testing.T) {
    rec := runWithRole(t, RequireRole("MEMBER"), nil)
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_NonStringRole(t *testing.T) {
    rec := runWithRole(t, RequireRole("MEMBER"), 42)
    assert.Equal(t, http.StatusForbidden, rec.Code)
}
