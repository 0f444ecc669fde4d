package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// Review mirrors the 'reviews' table.  One review per member per offer,
// enforced by a unique (member_user_id, offer_id) index.
type Review struct {
    ID           uint64    `json:"id"`
    MemberUserID uint64    `json:"member_user_id"`
    OfferID      uint64    `json:"offer_id"`
    Rating       uint8     `json:"rating"`
    Comment      string    `json:"comment"`
    CreatedAt    time.Time `json:"created_at"`
}

// ErrInvalidRating rejects ratings outside 1..5 before touching storage.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// ReviewRepo manages persistence for offer reviews.
type ReviewRepo struct {
    db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts a review.  Returns ErrInvalidRating for out-of-range
// ratings and ErrConflict when the member already reviewed the offer.
func (r *ReviewRepo) Create(ctx context.Context, rv *Review) error {
    if rv.Rating < 1 || rv.Rating > 5 {
        return ErrInvalidRating
    }
    const q = `INSERT INTO reviews (member_user_id, offer_id, rating, comment) VALUES (?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, rv.MemberUserID, rv.OfferID, rv.Rating, rv.Comment)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rv.ID = uint64(id)
    return nil
}

// ListByOffer returns an offer's reviews, newest first.
func (r *ReviewRepo) ListByOffer(ctx context.Context, offerID uint64) ([]Review, error) {
    const q = `SELECT id, member_user_id, offer_id, rating, comment, created_at
               FROM reviews WHERE offer_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, offerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]Review, 0)
    for rows.Next() {
        var rv Review
        if err := rows.Scan(&rv.ID, &rv.MemberUserID, &rv.OfferID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, rv)
    }
    return out, rows.Err()
}

// AverageForOffer computes the mean rating and review count in one query.
// Average is 0 when there are no reviews.
func (r *ReviewRepo) AverageForOffer(ctx context.Context, offerID uint64) (avg float64, count int, err error) {
    const q = `SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE offer_id = ?`
    err = r.db.QueryRowContext(ctx, q, offerID).Scan(&avg, &count)
    return avg, count, err
}
