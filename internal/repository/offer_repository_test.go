package repository

import (
    "context"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

var offerCols = []string{
    "id", "partner_id", "title", "description", "discount_percent", "original_price_cents",
    "discounted_price_cents", "category", "expiry_date", "coupon_expiry_days", "coupon_color",
    "is_active", "views", "clicks", "redemptions", "image_url", "terms", "created_at", "updated_at",
}

func offerTestRow(id, partnerID uint64) *sqlmock.Rows {
    now := time.Now().UTC()
    return sqlmock.NewRows(offerCols).AddRow(
        id, partnerID, "Lunch special", "Two for one", 50, 2000, 1000, "Food",
        now.Add(72*time.Hour), nil, "#c9a962", true, 0, 0, 0, nil, nil, now, now)
}

func TestOfferRepoCreate_SelectsBackDefaults(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    mock.ExpectExec("INSERT INTO offers").
        WillReturnResult(sqlmock.NewResult(11, 1))
    mock.ExpectQuery("FROM offers WHERE id").
        WillReturnRows(offerTestRow(11, 3))

    repo := NewOfferRepo(db)
    o := &Offer{PartnerID: 3, Title: "Lunch special", ExpiryDate: time.Now().UTC().Add(72 * time.Hour)}
    require.NoError(t, repo.Create(context.Background(), o))
    assert.Equal(t, uint64(11), o.ID)
    assert.Equal(t, "#c9a962", o.CouponColor)
    assert.True(t, o.IsActive)
}

func TestOfferRepoUpdate_ForeignOfferForbidden(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    mock.ExpectQuery("SELECT partner_id FROM offers").
        WillReturnRows(sqlmock.NewRows([]string{"partner_id"}).AddRow(9))

    repo := NewOfferRepo(db)
    o := &Offer{ID: 11, Title: "x", ExpiryDate: time.Now().UTC().Add(time.Hour)}
    err = repo.Update(context.Background(), 3, o)
    assert.ErrorIs(t, err, ErrForbidden)
    // the UPDATE itself never ran
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferRepoDelete_MissingOffer(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    mock.ExpectQuery("SELECT partner_id FROM offers").
        WillReturnRows(sqlmock.NewRows([]string{"partner_id"}))

    repo := NewOfferRepo(db)
    err = repo.Delete(context.Background(), 3, 11)
    assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestOfferRepoIncrementRedemptions(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    mock.ExpectExec(`UPDATE offers SET redemptions = redemptions \+ 1`).
        WithArgs(uint64(11)).
        WillReturnResult(sqlmock.NewResult(0, 1))

    repo := NewOfferRepo(db)
    require.NoError(t, repo.IncrementRedemptions(context.Background(), 11))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferRepoListPublic_Filters(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    mock.ExpectQuery("FROM offers WHERE is_active = 1").
        WithArgs("Food", "%pizza%", "%pizza%", 20, 0).
        WillReturnRows(offerTestRow(11, 3))

    repo := NewOfferRepo(db)
    items, err := repo.ListPublic(context.Background(), "Food", "pizza", 0, 0)
    require.NoError(t, err)
    require.Len(t, items, 1)
    assert.Equal(t, "Lunch special", items[0].Title)
}
