package handler

import (
    "database/sql/driver"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/offerus/offerus-api/internal/config"
    "github.com/offerus/offerus-api/internal/repository"
)

// newJSONContext builds an echo context carrying a JSON body and the
// authenticated identity the JWT middleware would normally inject.
func newJSONContext(t *testing.T, method, target, body string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    // JWT numeric claims decode as float64
    c.Set("user_id", float64(userID))
    return c, rec
}

var offerCols = []string{
    "id", "partner_id", "title", "description", "discount_percent", "original_price_cents",
    "discounted_price_cents", "category", "expiry_date", "coupon_expiry_days", "coupon_color",
    "is_active", "views", "clicks", "redemptions", "image_url", "terms", "created_at", "updated_at",
}

func offerRow(id uint64, active bool, expiry time.Time, couponDays interface{}) *sqlmock.Rows {
    now := time.Now().UTC()
    return sqlmock.NewRows(offerCols).AddRow(
        id, 3, "Lunch special", "Two for one", 50, 2000, 1000, "Food",
        expiry, couponDays, "#c9a962", active, 0, 0, 0, nil, nil, now, now)
}

var memberCols = []string{"id", "user_id", "first_name", "last_name", "mobile_number", "city", "created_at", "updated_at"}

func memberRow(userID uint64) *sqlmock.Rows {
    now := time.Now().UTC()
    return sqlmock.NewRows(memberCols).AddRow(1, userID, "Ada", "L", "0700", "Zurich", now, now)
}

func newMemberHandler(t *testing.T) (*MemberCouponHandler, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    h := NewMemberCouponHandler(config.Config{},
        repository.NewCouponRepo(db), repository.NewOfferRepo(db), repository.NewMemberRepo(db))
    return h, mock
}

func TestGenerate_OfferNotFound(t *testing.T) {
    h, mock := newMemberHandler(t)
    mock.ExpectQuery("FROM offers WHERE id").
        WillReturnRows(sqlmock.NewRows(offerCols))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/generate", `{"offer_id": 11}`, 7)
    require.NoError(t, h.Generate(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Contains(t, rec.Body.String(), "offer not found")
}

func TestGenerate_InactiveOfferDoesNotInsert(t *testing.T) {
    h, mock := newMemberHandler(t)
    mock.ExpectQuery("FROM offers WHERE id").
        WillReturnRows(offerRow(11, false, time.Now().UTC().Add(72*time.Hour), nil))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/generate", `{"offer_id": 11}`, 7)
    require.NoError(t, h.Generate(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "offer is not active")
    // no INSERT was ever expected; any write would fail the mock
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerate_ExpiredOffer(t *testing.T) {
    h, mock := newMemberHandler(t)
    mock.ExpectQuery("FROM offers WHERE id").
        WillReturnRows(offerRow(11, true, time.Now().UTC().Add(-time.Hour), nil))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/generate", `{"offer_id": 11}`, 7)
    require.NoError(t, h.Generate(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "offer has expired")
}

// dayMatcher accepts a DB datetime string falling on the wanted UTC date.
type dayMatcher struct{ day string }

func (m dayMatcher) Match(v driver.Value) bool {
    s, ok := v.(string)
    return ok && strings.HasPrefix(s, m.day)
}

func TestGenerate_CouponWindowSetsExpiry(t *testing.T) {
    h, mock := newMemberHandler(t)
    now := time.Now().UTC()
    offerExpiry := now.Add(30 * 24 * time.Hour)
    wantDay := now.AddDate(0, 0, 3).Format("2006-01-02")

    mock.ExpectQuery("FROM offers WHERE id").
        WillReturnRows(offerRow(11, true, offerExpiry, 3))
    mock.ExpectQuery("FROM members WHERE user_id").
        WillReturnRows(memberRow(7))
    mock.ExpectExec("INSERT INTO coupons").
        WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(7), uint64(3), uint64(11),
            "#c9a962", dayMatcher{day: wantDay}).
        WillReturnResult(sqlmock.NewResult(42, 1))
    mock.ExpectQuery("FROM coupons WHERE id").
        WillReturnRows(couponRowForHandler(42, "ACTIVE", now.AddDate(0, 0, 3)))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/generate", `{"offer_id": 11}`, 7)
    require.NoError(t, h.Generate(c))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.Contains(t, rec.Body.String(), "data:image/png;base64,")
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerate_CouponWindowOutlivesOfferExpiry(t *testing.T) {
    h, mock := newMemberHandler(t)
    now := time.Now().UTC()
    offerExpiry := now.Add(48 * time.Hour)
    wantDay := now.AddDate(0, 0, 5).Format("2006-01-02")

    mock.ExpectQuery("FROM offers WHERE id").
        WillReturnRows(offerRow(11, true, offerExpiry, 5))
    mock.ExpectQuery("FROM members WHERE user_id").
        WillReturnRows(memberRow(7))
    // the five-day window wins even though the offer itself dies in two days
    mock.ExpectExec("INSERT INTO coupons").
        WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(7), uint64(3), uint64(11),
            "#c9a962", dayMatcher{day: wantDay}).
        WillReturnResult(sqlmock.NewResult(42, 1))
    mock.ExpectQuery("FROM coupons WHERE id").
        WillReturnRows(couponRowForHandler(42, "ACTIVE", now.AddDate(0, 0, 5)))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/generate", `{"offer_id": 11}`, 7)
    require.NoError(t, h.Generate(c))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerate_MissingMemberProfile(t *testing.T) {
    h, mock := newMemberHandler(t)
    mock.ExpectQuery("FROM offers WHERE id").
        WillReturnRows(offerRow(11, true, time.Now().UTC().Add(72*time.Hour), nil))
    mock.ExpectQuery("FROM members WHERE user_id").
        WillReturnRows(sqlmock.NewRows(memberCols))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/generate", `{"offer_id": 11}`, 7)
    require.NoError(t, h.Generate(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Contains(t, rec.Body.String(), "member profile not found")
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerate_RetriesOnDuplicateIdentifier(t *testing.T) {
    h, mock := newMemberHandler(t)
    now := time.Now().UTC()
    expiry := now.Add(72 * time.Hour)

    mock.ExpectQuery("FROM offers WHERE id").
        WillReturnRows(offerRow(11, true, expiry, nil))
    mock.ExpectQuery("FROM members WHERE user_id").
        WillReturnRows(memberRow(7))
    mock.ExpectExec("INSERT INTO coupons").
        WillReturnError(fmt.Errorf("Error 1062 (23000): Duplicate entry 'COUP-AB12-CD34' for key 'coupons.coupon_code'"))
    mock.ExpectExec("INSERT INTO coupons").
        WillReturnResult(sqlmock.NewResult(43, 1))
    mock.ExpectQuery("FROM coupons WHERE id").
        WillReturnRows(couponRowForHandler(43, "ACTIVE", expiry))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/generate", `{"offer_id": 11}`, 7)
    require.NoError(t, h.Generate(c))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMyCoupons_InvalidStatusFilter(t *testing.T) {
    h, mock := newMemberHandler(t)

    c, rec := newJSONContext(t, http.MethodGet, "/v1/my-coupons?status=BOGUS", "", 7)
    require.NoError(t, h.ListMyCoupons(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMyCoupons_ExpiresStaleFirst(t *testing.T) {
    h, mock := newMemberHandler(t)

    mock.ExpectExec("UPDATE coupons SET status = 'EXPIRED'").
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectQuery("FROM coupons c").
        WillReturnRows(sqlmock.NewRows(couponDetailColsForHandler()))

    c, rec := newJSONContext(t, http.MethodGet, "/v1/my-coupons", "", 7)
    require.NoError(t, h.ListMyCoupons(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}
