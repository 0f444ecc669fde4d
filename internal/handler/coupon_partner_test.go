package handler

import (
    "net/http"
    "strings"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/offerus/offerus-api/internal/model"
    "github.com/offerus/offerus-api/internal/repository"
)

var couponColsForHandler = []string{
    "id", "coupon_code", "qr_token", "member_user_id", "partner_id", "offer_id",
    "status", "coupon_color", "expiry_date", "redeemed_at", "redeemed_by", "created_at", "updated_at",
}

const testToken = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func couponRowForHandler(id uint64, status string, expiry time.Time) *sqlmock.Rows {
    now := time.Now().UTC()
    return sqlmock.NewRows(couponColsForHandler).AddRow(
        id, "COUP-AB12-CD34", testToken, 7, 3, 11, status, "#c9a962", expiry, nil, nil, now, now)
}

func couponDetailColsForHandler() []string {
    return append(append([]string{}, couponColsForHandler...),
        "title", "description", "discount_percent", "original_price_cents", "discounted_price_cents",
        "shop_name", "partner_name", "city", "email")
}

func couponDetailRow(id uint64, status string, expiry time.Time, redeemedAt *time.Time) *sqlmock.Rows {
    now := time.Now().UTC()
    var rAt interface{}
    var rBy interface{}
    if redeemedAt != nil {
        rAt = *redeemedAt
        rBy = int64(99)
    }
    return sqlmock.NewRows(couponDetailColsForHandler()).AddRow(
        id, "COUP-AB12-CD34", testToken, 7, 3, 11, status, "#c9a962", expiry, rAt, rBy, now, now,
        "Lunch special", "Two for one", 50, 2000, 1000,
        "Cafe Rex", "R. Rex", "Zurich", "ada@example.com")
}

var partnerCols = []string{"id", "user_id", "partner_name", "shop_name", "city", "category", "status", "is_premium", "created_at", "updated_at"}

func partnerRow(id, userID uint64, status string) *sqlmock.Rows {
    now := time.Now().UTC()
    return sqlmock.NewRows(partnerCols).AddRow(id, userID, "R. Rex", "Cafe Rex", "Zurich", "Food", status, false, now, now)
}

func newPartnerHandler(t *testing.T) (*PartnerCouponHandler, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    h := NewPartnerCouponHandler(
        repository.NewCouponRepo(db), repository.NewOfferRepo(db), repository.NewPartnerRepo(db))
    return h, mock
}

func TestValidate_MalformedTokenNeverTouchesStorage(t *testing.T) {
    h, mock := newPartnerHandler(t)

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate", `{"qr_data": "not-a-token"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "invalid token format")
    // zero queries expected: junk input is rejected on shape alone
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidate_UppercaseTokenRejected(t *testing.T) {
    h, mock := newPartnerHandler(t)

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate",
        `{"qr_data": "`+strings.ToUpper(testToken)+`"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidate_MissingPartnerProfile(t *testing.T) {
    h, mock := newPartnerHandler(t)
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(sqlmock.NewRows(partnerCols))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate",
        `{"qr_data": "`+testToken+`"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Contains(t, rec.Body.String(), "partner profile not found")
}

func TestValidate_PendingPartnerCanScan(t *testing.T) {
    h, mock := newPartnerHandler(t)
    expiry := time.Now().UTC().Add(time.Hour)
    // moderation status does not gate scanning, only the public listings
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(3, 99, repository.PartnerPending))
    mock.ExpectQuery("FROM coupons WHERE qr_token").
        WillReturnRows(couponRowForHandler(42, model.StatusActive, expiry))
    mock.ExpectQuery("FROM coupons c").
        WillReturnRows(couponDetailRow(42, model.StatusActive, expiry, nil))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate",
        `{"qr_data": "`+testToken+`"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"valid":true`)
}

func TestValidate_UnknownTokenReportsNotValid(t *testing.T) {
    h, mock := newPartnerHandler(t)
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(3, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE qr_token").
        WillReturnRows(sqlmock.NewRows(couponColsForHandler))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate",
        `{"qr_data": "`+testToken+`"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestValidate_WrongShopGetsGenericReason(t *testing.T) {
    h, mock := newPartnerHandler(t)
    // caller's partner profile id 8 does not match the coupon's partner id 3
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(8, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE qr_token").
        WillReturnRows(couponRowForHandler(42, model.StatusActive, time.Now().UTC().Add(time.Hour)))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate",
        `{"qr_data": "`+testToken+`"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.Contains(t, rec.Body.String(), model.ReasonWrongShop)
    // no coupon detail may leak to a foreign shop
    assert.NotContains(t, rec.Body.String(), "COUP-AB12-CD34")
}

func TestValidate_AlreadyRedeemed(t *testing.T) {
    h, mock := newPartnerHandler(t)
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(3, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE qr_token").
        WillReturnRows(couponRowForHandler(42, model.StatusRedeemed, time.Now().UTC().Add(time.Hour)))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate",
        `{"qr_data": "`+testToken+`"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"valid":false`)
    assert.Contains(t, rec.Body.String(), model.ReasonAlreadyRedeemed)
}

func TestValidate_StaleActiveFlipsToExpired(t *testing.T) {
    h, mock := newPartnerHandler(t)
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(3, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE qr_token").
        WillReturnRows(couponRowForHandler(42, model.StatusActive, time.Now().UTC().Add(-time.Hour)))
    // the lazy transition is persisted during validation
    mock.ExpectExec("UPDATE coupons SET status = 'EXPIRED'").
        WillReturnResult(sqlmock.NewResult(0, 1))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate",
        `{"qr_data": "`+testToken+`"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), model.ReasonExpired)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidate_ActiveCouponReturnsDetail(t *testing.T) {
    h, mock := newPartnerHandler(t)
    expiry := time.Now().UTC().Add(time.Hour)
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(3, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE qr_token").
        WillReturnRows(couponRowForHandler(42, model.StatusActive, expiry))
    mock.ExpectQuery("FROM coupons c").
        WillReturnRows(couponDetailRow(42, model.StatusActive, expiry, nil))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/validate",
        `{"qr_data": "`+testToken+`"}`, 99)
    require.NoError(t, h.Validate(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"valid":true`)
    assert.Contains(t, rec.Body.String(), "COUP-AB12-CD34")
}

func TestRedeem_RaceLoserGetsPreciseReason(t *testing.T) {
    h, mock := newPartnerHandler(t)
    expiry := time.Now().UTC().Add(time.Hour)
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(3, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE id").
        WillReturnRows(couponRowForHandler(42, model.StatusActive, expiry))
    // conditional update matches nothing: the other device won
    mock.ExpectExec("UPDATE coupons SET status = 'REDEEMED'").
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectQuery("FROM coupons WHERE id").
        WillReturnRows(couponRowForHandler(42, model.StatusRedeemed, expiry))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/redeem", `{"coupon_id": 42}`, 99)
    require.NoError(t, h.Redeem(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), `"redeemed":false`)
    assert.Contains(t, rec.Body.String(), model.ReasonAlreadyRedeemed)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeem_AlreadyRedeemedRejectedBeforeUpdate(t *testing.T) {
    h, mock := newPartnerHandler(t)
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(3, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE id").
        WillReturnRows(couponRowForHandler(42, model.StatusRedeemed, time.Now().UTC().Add(time.Hour)))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/redeem", `{"coupon_id": 42}`, 99)
    require.NoError(t, h.Redeem(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), model.ReasonAlreadyRedeemed)
    // the conditional UPDATE never ran
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeem_WrongShop(t *testing.T) {
    h, mock := newPartnerHandler(t)
    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(8, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE id").
        WillReturnRows(couponRowForHandler(42, model.StatusActive, time.Now().UTC().Add(time.Hour)))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/redeem", `{"coupon_id": 42}`, 99)
    require.NoError(t, h.Redeem(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.Contains(t, rec.Body.String(), model.ReasonWrongShop)
}

func TestRedeem_WinnerBumpsOfferCounter(t *testing.T) {
    h, mock := newPartnerHandler(t)
    expiry := time.Now().UTC().Add(time.Hour)
    redeemedAt := time.Now().UTC()

    mock.ExpectQuery("FROM partners WHERE user_id").
        WillReturnRows(partnerRow(3, 99, repository.PartnerApproved))
    mock.ExpectQuery("FROM coupons WHERE id").
        WillReturnRows(couponRowForHandler(42, model.StatusActive, expiry))
    mock.ExpectExec("UPDATE coupons SET status = 'REDEEMED'").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery("FROM coupons c").
        WillReturnRows(couponDetailRow(42, model.StatusRedeemed, expiry, &redeemedAt))
    mock.ExpectExec("UPDATE offers SET redemptions = redemptions \\+ 1").
        WillReturnResult(sqlmock.NewResult(0, 1))

    c, rec := newJSONContext(t, http.MethodPost, "/v1/coupons/redeem", `{"coupon_id": 42}`, 99)
    require.NoError(t, h.Redeem(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"redeemed":true`)
    assert.NoError(t, mock.ExpectationsWereMet())
}
