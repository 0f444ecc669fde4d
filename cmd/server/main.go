package main // API entry point

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/config"
    "github.com/offerus/offerus-api/internal/database"
    "github.com/offerus/offerus-api/internal/handler"
    "github.com/offerus/offerus-api/internal/queue"
    "github.com/offerus/offerus-api/internal/repository"
    "github.com/offerus/offerus-api/internal/router"
    "github.com/offerus/offerus-api/internal/scheduler"
)

func main() {
    // .env is optional; real deployments set variables in the environment.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer func() { _ = db.Close() }()

    // Redis is optional: a nil client disables the limiter and cache.
    rdb := config.NewRedisClient()

    users := repository.NewUserRepo(db)
    members := repository.NewMemberRepo(db)
    partners := repository.NewPartnerRepo(db)
    offers := repository.NewOfferRepo(db)
    coupons := repository.NewCouponRepo(db)
    saved := repository.NewSavedOfferRepo(db)
    notifications := repository.NewNotificationRepo(db)
    reviews := repository.NewReviewRepo(db)
    categories := repository.NewCategoryRepo(db)
    subscriptions := repository.NewSubscriptionRepo(db)

    sweeper := scheduler.NewSweeper(saved, notifications, cfg.SweepLookaheadDays)
    cronRunner, err := sweeper.Start(cfg.SweepSchedule)
    if err != nil {
        log.Fatalf("scheduler: %v", err)
    }
    defer cronRunner.Stop()

    // Broker consumer turns coupon.redeemed events into partner
    // notifications.  It reconnects forever on its own.
    go func() {
        if err := queue.StartCouponConsumer(notifications); err != nil {
            log.Printf("coupon consumer stopped: %v", err)
        }
    }()

    h := router.Handlers{
        Auth:           handler.NewAuthHandler(cfg, users, members, partners),
        Public:         handler.NewPublicOfferHandler(offers, partners, reviews, categories),
        MemberCoupons:  handler.NewMemberCouponHandler(cfg, coupons, offers, members),
        PartnerCoupons: handler.NewPartnerCouponHandler(coupons, offers, partners),
        PartnerOffers:  handler.NewPartnerOfferHandler(offers, partners),
        Saved:          handler.NewSavedOfferHandler(saved, offers),
        Notifications:  handler.NewNotificationHandler(notifications),
        Profiles:       handler.NewProfileHandler(members, partners),
        Reviews:        handler.NewReviewHandler(reviews, offers),
        Categories:     handler.NewCategoryHandler(categories),
        Subscriptions:  handler.NewSubscriptionHandler(subscriptions, partners),
        Admin:          handler.NewAdminHandler(sweeper),
    }

    e := echo.New()
    e.HideBanner = true
    router.Register(e, h, cfg, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
