package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// Member mirrors the 'members' table: the profile attached to a MEMBER user.
// The coupon flow resolves this profile before issuing; only the profile
// owner may update it.
type Member struct {
    ID           uint64    // members.id
    UserID       uint64    // members.user_id (unique, references users.id)
    FirstName    string    // members.first_name
    LastName     string    // members.last_name
    MobileNumber string    // members.mobile_number
    City         string    // members.city
    CreatedAt    time.Time // members.created_at
    UpdatedAt    time.Time // members.updated_at
}

// ErrMemberNotFound indicates that no member profile exists for a user.
var ErrMemberNotFound = errors.New("member profile not found")

// MemberRepo manages persistence for member profiles.
type MemberRepo struct {
    db *sql.DB
}

// NewMemberRepo returns a new MemberRepo bound to the given database.
func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

// CreateTx inserts a member profile inside the caller's transaction.  Used
// by registration together with UserRepo.CreateTx.
func (r *MemberRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *Member) error {
    const q = `INSERT INTO members (user_id, first_name, last_name, mobile_number, city) VALUES (?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, m.UserID, m.FirstName, m.LastName, m.MobileNumber, m.City)
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
    m.ID = uint64(id)
    return nil
}

// GetByUserID resolves the member profile belonging to an authenticated
// user.  Returns ErrMemberNotFound when no profile exists.
func (r *MemberRepo) GetByUserID(ctx context.Context, userID uint64) (*Member, error) {
    const q = `SELECT id, user_id, first_name, last_name, mobile_number, city, created_at, updated_at
               FROM members WHERE user_id = ? LIMIT 1`
    var m Member
    err := r.db.QueryRowContext(ctx, q, userID).Scan(
        &m.ID, &m.UserID, &m.FirstName, &m.LastName, &m.MobileNumber, &m.City, &m.CreatedAt, &m.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrMemberNotFound
        }
        return nil, err
    }
    return &m, nil
}

// Update rewrites the mutable profile fields for the given user.  Returns
// ErrMemberNotFound when the user has no profile row.
func (r *MemberRepo) Update(ctx context.Context, userID uint64, firstName, lastName, mobile, city string) error {
    const q = `UPDATE members SET first_name = ?, last_name = ?, mobile_number = ?, city = ? WHERE user_id = ?`
    res, err := r.db.ExecContext(ctx, q, firstName, lastName, mobile, city, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Could also be a no-op update of identical values; re-check existence.
        if _, err := r.GetByUserID(ctx, userID); err != nil {
            return err
        }
    }
    return nil
}
