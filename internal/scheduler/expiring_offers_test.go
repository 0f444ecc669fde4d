package scheduler

import (
    "context"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/offerus/offerus-api/internal/repository"
)

var savedJoinCols = []string{
    "id", "member_user_id", "offer_id", "created_at",
    "o_id", "partner_id", "title", "description", "discount_percent", "original_price_cents",
    "discounted_price_cents", "category", "expiry_date", "coupon_expiry_days", "coupon_color",
    "is_active", "views", "clicks", "redemptions", "image_url", "terms", "o_created_at", "o_updated_at",
}

func savedJoinRow(rows *sqlmock.Rows, id, memberUserID, offerID uint64, title string, expiry time.Time) *sqlmock.Rows {
    now := time.Now().UTC()
    return rows.AddRow(
        id, memberUserID, offerID, now,
        offerID, 3, title, "desc", 50, 2000, 1000, "Food",
        expiry, nil, "#c9a962", true, 0, 0, 0, nil, nil, now, now)
}

func newSweeper(t *testing.T, now time.Time) (*Sweeper, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    s := NewSweeper(repository.NewSavedOfferRepo(db), repository.NewNotificationRepo(db), 5)
    s.Now = func() time.Time { return now }
    return s, mock
}

func TestSweepNotifiesForExpiringSavedOffers(t *testing.T) {
    now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
    s, mock := newSweeper(t, now)

    rows := sqlmock.NewRows(savedJoinCols)
    rows = savedJoinRow(rows, 1, 7, 11, "Lunch special", now.Add(48*time.Hour))
    mock.ExpectQuery("FROM saved_offers s").WillReturnRows(rows)
    mock.ExpectQuery("SELECT EXISTS").
        WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(false))
    mock.ExpectExec("INSERT INTO notifications").
        WillReturnResult(sqlmock.NewResult(1, 1))

    n, err := s.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 1, n)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepSkipsAlreadyNotified(t *testing.T) {
    now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
    s, mock := newSweeper(t, now)

    rows := sqlmock.NewRows(savedJoinCols)
    rows = savedJoinRow(rows, 1, 7, 11, "Lunch special", now.Add(24*time.Hour))
    rows = savedJoinRow(rows, 2, 8, 11, "Lunch special", now.Add(24*time.Hour))
    mock.ExpectQuery("FROM saved_offers s").WillReturnRows(rows)
    // member 7 was already warned today, member 8 was not
    mock.ExpectQuery("SELECT EXISTS").
        WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
    mock.ExpectQuery("SELECT EXISTS").
        WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(false))
    mock.ExpectExec("INSERT INTO notifications").
        WillReturnResult(sqlmock.NewResult(1, 1))

    n, err := s.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 1, n)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepEmptyWindow(t *testing.T) {
    now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
    s, mock := newSweeper(t, now)

    mock.ExpectQuery("FROM saved_offers s").
        WillReturnRows(sqlmock.NewRows(savedJoinCols))

    n, err := s.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 0, n)
}
