// Package scheduler runs the recurring background jobs of the API.  The
// only job today is the expiring-offer sweep: members who bookmarked an
// offer get a notification when its expiry date comes within the lookahead
// window.
package scheduler

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/robfig/cron/v3"

    "github.com/offerus/offerus-api/internal/repository"
)

// Sweeper scans saved offers and writes OFFER_EXPIRING notifications.  The
// clock is injectable so tests can pin time.
type Sweeper struct {
    Saved         *repository.SavedOfferRepo
    Notifications *repository.NotificationRepo
    Lookahead     time.Duration
    Now           func() time.Time
}

// NewSweeper builds a Sweeper with a real clock and a lookahead in days.
func NewSweeper(saved *repository.SavedOfferRepo, notifs *repository.NotificationRepo, lookaheadDays int) *Sweeper {
    if saved == nil || notifs == nil {
        panic("nil repository passed to NewSweeper")
    }
    if lookaheadDays < 1 {
        lookaheadDays = 5
    }
    return &Sweeper{
        Saved:         saved,
        Notifications: notifs,
        Lookahead:     time.Duration(lookaheadDays) * 24 * time.Hour,
        Now:           func() time.Time { return time.Now().UTC() },
    }
}

// Run performs one sweep.  Each member is warned at most once per day per
// offer; a failed insert is logged and the sweep moves on.  Returns how
// many notifications were written.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
    now := s.Now()
    items, err := s.Saved.ExpiringSoon(ctx, now, s.Lookahead)
    if err != nil {
        return 0, fmt.Errorf("load expiring saved offers: %w", err)
    }

    created := 0
    for _, it := range items {
        exists, err := s.Notifications.ExistsTodayForEntity(ctx, it.MemberUserID, repository.NotifOfferExpiring, it.OfferID, now)
        if err != nil {
            log.Printf("sweep: dedupe check failed for user %d offer %d: %v", it.MemberUserID, it.OfferID, err)
            continue
        }
        if exists {
            continue
        }
        daysLeft := int(it.Offer.ExpiryDate.Sub(now).Hours() / 24)
        if daysLeft < 0 {
            daysLeft = 0
        }
        n := &repository.Notification{
            UserID:   it.MemberUserID,
            Kind:     repository.NotifOfferExpiring,
            Title:    "Saved offer expiring soon",
            Body:     fmt.Sprintf("%q expires in %d day(s)", it.Offer.Title, daysLeft),
            EntityID: it.OfferID,
        }
        if err := s.Notifications.Create(ctx, n); err != nil {
            log.Printf("sweep: create notification failed for user %d offer %d: %v", it.MemberUserID, it.OfferID, err)
            continue
        }
        created++
    }
    return created, nil
}

// Start registers the sweep on a cron schedule and starts the scheduler.
// The returned cron can be stopped for graceful shutdown.
func (s *Sweeper) Start(spec string) (*cron.Cron, error) {
    c := cron.New()
    _, err := c.AddFunc(spec, func() {
        ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
        defer cancel()
        n, err := s.Run(ctx)
        if err != nil {
            log.Printf("sweep: run failed: %v", err)
            return
        }
        log.Printf("sweep: wrote %d expiring-offer notification(s)", n)
    })
    if err != nil {
        return nil, fmt.Errorf("register sweep schedule %q: %w", spec, err)
    }
    c.Start()
    return c, nil
}
