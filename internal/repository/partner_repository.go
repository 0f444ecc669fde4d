package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// Partner statuses.  Registration creates partners APPROVED; PENDING and
// REJECTED exist for the back-office moderation tool, which can take a shop
// out of the public listings without deleting it.
const (
    PartnerPending  = "PENDING"
    PartnerApproved = "APPROVED"
    PartnerRejected = "REJECTED"
)

// Partner mirrors the 'partners' table: the shop profile attached to a
// PARTNER user.  Coupons reference the partner profile id, not the user id,
// so ownership checks compare against Partner.ID.
type Partner struct {
    ID          uint64    // partners.id
    UserID      uint64    // partners.user_id (unique, references users.id)
    PartnerName string    // partners.partner_name (contact person)
    ShopName    string    // partners.shop_name
    City        string    // partners.city
    Category    string    // partners.category
    Status      string    // partners.status
    IsPremium   bool      // partners.is_premium
    CreatedAt   time.Time // partners.created_at
    UpdatedAt   time.Time // partners.updated_at
}

// ErrPartnerNotFound indicates that no partner profile exists for a user.
var ErrPartnerNotFound = errors.New("partner profile not found")

// PartnerRepo manages persistence for partner profiles.
type PartnerRepo struct {
    db *sql.DB
}

// NewPartnerRepo returns a new PartnerRepo bound to the given database.
func NewPartnerRepo(db *sql.DB) *PartnerRepo { return &PartnerRepo{db: db} }

// CreateTx inserts a partner profile inside the caller's transaction.
func (r *PartnerRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *Partner) error {
    const q = `INSERT INTO partners (user_id, partner_name, shop_name, city, category, status)
               VALUES (?, ?, ?, ?, ?, ?)`
    status := p.Status
    if status == "" {
        status = PartnerApproved
    }
    res, err := tx.ExecContext(ctx, q, p.UserID, p.PartnerName, p.ShopName, p.City, p.Category, status)
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
    p.ID = uint64(id)
    p.Status = status
    return nil
}

// GetByUserID resolves the partner profile belonging to an authenticated
// user.  Returns ErrPartnerNotFound when no profile exists.
func (r *PartnerRepo) GetByUserID(ctx context.Context, userID uint64) (*Partner, error) {
    const q = `SELECT id, user_id, partner_name, shop_name, city, category, status, is_premium, created_at, updated_at
               FROM partners WHERE user_id = ? LIMIT 1`
    return r.scanOne(r.db.QueryRowContext(ctx, q, userID))
}

// GetByID fetches a partner profile by its primary key.
func (r *PartnerRepo) GetByID(ctx context.Context, id uint64) (*Partner, error) {
    const q = `SELECT id, user_id, partner_name, shop_name, city, category, status, is_premium, created_at, updated_at
               FROM partners WHERE id = ? LIMIT 1`
    return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *PartnerRepo) scanOne(row *sql.Row) (*Partner, error) {
    var p Partner
    err := row.Scan(&p.ID, &p.UserID, &p.PartnerName, &p.ShopName, &p.City, &p.Category,
        &p.Status, &p.IsPremium, &p.CreatedAt, &p.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrPartnerNotFound
        }
        return nil, err
    }
    return &p, nil
}

// Update rewrites the mutable shop fields for the given user's profile.
func (r *PartnerRepo) Update(ctx context.Context, userID uint64, partnerName, shopName, city, category string) error {
    const q = `UPDATE partners SET partner_name = ?, shop_name = ?, city = ?, category = ? WHERE user_id = ?`
    res, err := r.db.ExecContext(ctx, q, partnerName, shopName, city, category, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        if _, err := r.GetByUserID(ctx, userID); err != nil {
            return err
        }
    }
    return nil
}

// ListApproved returns approved partner shops for public browsing, newest
// first.
func (r *PartnerRepo) ListApproved(ctx context.Context) ([]Partner, error) {
    const q = `SELECT id, user_id, partner_name, shop_name, city, category, status, is_premium, created_at, updated_at
               FROM partners WHERE status = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, PartnerApproved)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]Partner, 0)
    for rows.Next() {
        var p Partner
        if err := rows.Scan(&p.ID, &p.UserID, &p.PartnerName, &p.ShopName, &p.City, &p.Category,
            &p.Status, &p.IsPremium, &p.CreatedAt, &p.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}
