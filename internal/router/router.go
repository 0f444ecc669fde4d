package router // router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/offerus/offerus-api/internal/config"
    "github.com/offerus/offerus-api/internal/handler"
    "github.com/offerus/offerus-api/internal/middleware"
    "github.com/offerus/offerus-api/internal/repository"
)

// Handlers bundles every handler the router needs.  Grouping them in one
// struct keeps the registration call short as the surface grows.
type Handlers struct {
    Auth           *handler.AuthHandler
    Public         *handler.PublicOfferHandler
    MemberCoupons  *handler.MemberCouponHandler
    PartnerCoupons *handler.PartnerCouponHandler
    PartnerOffers  *handler.PartnerOfferHandler
    Saved          *handler.SavedOfferHandler
    Notifications  *handler.NotificationHandler
    Profiles       *handler.ProfileHandler
    Reviews        *handler.ReviewHandler
    Categories     *handler.CategoryHandler
    Subscriptions  *handler.SubscriptionHandler
    Admin          *handler.AdminHandler
}

// Register wires every route of the API onto the Echo instance.  Public
// catalogue reads go through the Redis response cache, everything goes
// through the shared token-bucket limiter, and protected groups carry JWT
// plus role middleware.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
    e.GET("/healthz", handler.Health)

    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    // Session endpoints.
    auth := e.Group("/v1/auth")
    auth.POST("/register/member", h.Auth.RegisterMember)
    auth.POST("/register/partner", h.Auth.RegisterPartner)
    auth.POST("/login", h.Auth.Login)

    // Public catalogue, cached.
    pub := e.Group("/v1", cache)
    pub.GET("/offers", h.Public.ListOffers)
    pub.GET("/offers/:id", h.Public.GetOffer)
    pub.GET("/offers/:id/reviews", h.Public.ListOfferReviews)
    pub.GET("/shops", h.Public.ListShops)
    pub.GET("/categories", h.Public.ListCategories)
    // Click tracking is a write; keep it out of the cache group.
    e.POST("/v1/offers/:id/click", h.Public.ClickOffer)

    // Any authenticated user.
    me := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
    me.GET("/me", h.Auth.Me)
    me.GET("/notifications", h.Notifications.List)
    me.POST("/notifications/:id/read", h.Notifications.MarkRead)

    // Member-only surface: coupons, bookmarks, reviews, profile.
    member := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(repository.RoleMember))
    member.POST("/coupons/generate", h.MemberCoupons.Generate)
    member.GET("/my-coupons", h.MemberCoupons.ListMyCoupons)
    member.GET("/my-coupons/stats", h.MemberCoupons.Stats)
    member.GET("/coupons/:id", h.MemberCoupons.GetCoupon)
    member.POST("/saved-offers", h.Saved.Save)
    member.GET("/saved-offers", h.Saved.List)
    member.DELETE("/saved-offers/:id", h.Saved.Remove)
    member.POST("/offers/:id/reviews", h.Reviews.Create)
    member.GET("/member/profile", h.Profiles.GetMemberProfile)
    member.PUT("/member/profile", h.Profiles.UpdateMemberProfile)

    // Partner-only surface: validation, redemption, offers, subscriptions.
    partner := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(repository.RolePartner))
    partner.POST("/coupons/validate", h.PartnerCoupons.Validate)
    partner.POST("/coupons/redeem", h.PartnerCoupons.Redeem)
    partner.GET("/partner/redemptions", h.PartnerCoupons.Redemptions)
    partner.POST("/partner/offers", h.PartnerOffers.CreateOffer)
    partner.GET("/partner/offers", h.PartnerOffers.ListOffers)
    partner.PUT("/partner/offers/:id", h.PartnerOffers.UpdateOffer)
    partner.DELETE("/partner/offers/:id", h.PartnerOffers.DeleteOffer)
    partner.GET("/partner/profile", h.Profiles.GetPartnerProfile)
    partner.PUT("/partner/profile", h.Profiles.UpdatePartnerProfile)
    partner.POST("/partner/subscriptions", h.Subscriptions.Create)
    partner.GET("/partner/subscriptions", h.Subscriptions.List)

    // Admin surface: reference data and operational triggers.
    admin := e.Group("/v1/admin", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(repository.RoleAdmin))
    admin.POST("/categories", h.Categories.Create)
    admin.DELETE("/categories/:id", h.Categories.Delete)
    admin.POST("/subscriptions", h.Subscriptions.AdminCreate)
    admin.POST("/sweep", h.Admin.RunSweep)
}
