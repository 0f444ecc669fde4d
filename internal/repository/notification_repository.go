package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// Notification kinds.
const (
    NotifOfferExpiring  = "OFFER_EXPIRING"
    NotifCouponRedeemed = "COUPON_REDEEMED"
)

// Notification mirrors the 'notifications' table.  EntityID points at the
// subject of the notification (an offer or a coupon, depending on Kind).
type Notification struct {
    ID        uint64    `json:"id"`
    UserID    uint64    `json:"user_id"`
    Kind      string    `json:"kind"`
    Title     string    `json:"title"`
    Body      string    `json:"body"`
    EntityID  uint64    `json:"entity_id"`
    IsRead    bool      `json:"is_read"`
    CreatedAt time.Time `json:"created_at"`
}

// ErrNotificationNotFound indicates a missing or foreign notification.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepo manages persistence for notifications.
type NotificationRepo struct {
    db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification row.
func (r *NotificationRepo) Create(ctx context.Context, n *Notification) error {
    const q = `INSERT INTO notifications (user_id, kind, title, body, entity_id) VALUES (?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, n.UserID, n.Kind, n.Title, n.Body, n.EntityID)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    n.ID = uint64(id)
    return nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]Notification, error) {
    if limit < 1 || limit > 200 {
        limit = 50
    }
    const q = `SELECT id, user_id, kind, title, body, entity_id, is_read, created_at
               FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, userID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]Notification, 0)
    for rows.Next() {
        var n Notification
        if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.EntityID, &n.IsRead, &n.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, n)
    }
    return out, rows.Err()
}

// MarkRead flags one notification as read.  The WHERE clause carries the
// user id so a caller can never read-flag someone else's notification.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, notificationID uint64) error {
    const q = `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`
    res, err := r.db.ExecContext(ctx, q, notificationID, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var exists bool
        err := r.db.QueryRowContext(ctx,
            `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = ? AND user_id = ?)`,
            notificationID, userID).Scan(&exists)
        if err != nil {
            return err
        }
        if !exists {
            return ErrNotificationNotFound
        }
    }
    return nil
}

// ExistsTodayForEntity reports whether the user already received a
// notification of this kind about this entity on the given UTC day.  The
// sweep uses it to avoid nagging daily about the same expiring offer more
// than once per day.
func (r *NotificationRepo) ExistsTodayForEntity(ctx context.Context, userID uint64, kind string, entityID uint64, day time.Time) (bool, error) {
    const q = `SELECT EXISTS(SELECT 1 FROM notifications
               WHERE user_id = ? AND kind = ? AND entity_id = ? AND DATE(created_at) = ?)`
    var exists bool
    err := r.db.QueryRowContext(ctx, q, userID, kind, entityID, day.UTC().Format("2006-01-02")).Scan(&exists)
    return exists, err
}
