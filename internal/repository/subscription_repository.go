package repository

import (
    "context"
    "database/sql"
    "time"
)

// Subscription plans a partner can hold.
const (
    PlanBasic   = "BASIC"
    PlanPremium = "PREMIUM"
)

// Subscription mirrors the 'subscriptions' table.  The newest row for a
// partner is the current plan; older rows form the billing history.
type Subscription struct {
    ID        uint64    `json:"id"`
    PartnerID uint64    `json:"partner_id"`
    Plan      string    `json:"plan"`
    StartsAt  time.Time `json:"starts_at"`
    EndsAt    time.Time `json:"ends_at"`
    CreatedAt time.Time `json:"created_at"`
}

// SubscriptionRepo manages persistence for partner subscriptions.
type SubscriptionRepo struct {
    db *sql.DB
}

// NewSubscriptionRepo returns a new SubscriptionRepo bound to the database.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// Create records a subscription period and, for premium plans, flips the
// partner's is_premium flag in the same transaction.
func (r *SubscriptionRepo) Create(ctx context.Context, s *Subscription) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const f = "2006-01-02 15:04:05"
    res, err := tx.ExecContext(ctx,
        `INSERT INTO subscriptions (partner_id, plan, starts_at, ends_at) VALUES (?, ?, ?, ?)`,
        s.PartnerID, s.Plan, s.StartsAt.UTC().Format(f), s.EndsAt.UTC().Format(f))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)

    premium := 0
    if s.Plan == PlanPremium {
        premium = 1
    }
    if _, err := tx.ExecContext(ctx, `UPDATE partners SET is_premium = ? WHERE id = ?`, premium, s.PartnerID); err != nil {
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ListByPartner returns a partner's subscription history, newest first.
func (r *SubscriptionRepo) ListByPartner(ctx context.Context, partnerID uint64) ([]Subscription, error) {
    const q = `SELECT id, partner_id, plan, starts_at, ends_at, created_at
               FROM subscriptions WHERE partner_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, partnerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]Subscription, 0)
    for rows.Next() {
        var s Subscription
        if err := rows.Scan(&s.ID, &s.PartnerID, &s.Plan, &s.StartsAt, &s.EndsAt, &s.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}
