package handler

import (
    "context"      // context with cancellation for DB calls
    "database/sql" // SQL database interactions
    "net/http"     // HTTP status codes
    "strings"      // input normalization
    "time"         // timeouts for DB calls

    "github.com/labstack/echo/v4"

    "github.com/offerus/offerus-api/internal/config"
    "github.com/offerus/offerus-api/internal/repository"
    "github.com/offerus/offerus-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.  Registration writes
// the user row and its role profile row inside a single transaction so a
// half-registered account can never exist.
type AuthHandler struct {
    Cfg      config.Config
    Users    *repository.UserRepo
    Members  *repository.MemberRepo
    Partners *repository.PartnerRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, m *repository.MemberRepo, p *repository.PartnerRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Members: m, Partners: p}
}

// ----- DTOs -----

type registerMemberReq struct {
    Email        string `json:"email"`
    Password     string `json:"password"`
    FirstName    string `json:"first_name"`
    LastName     string `json:"last_name"`
    MobileNumber string `json:"mobile_number"`
    City         string `json:"city"`
}

type registerPartnerReq struct {
    Email       string `json:"email"`
    Password    string `json:"password"`
    PartnerName string `json:"partner_name"`
    ShopName    string `json:"shop_name"`
    City        string `json:"city"`
    Category    string `json:"category"`
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Role  string `json:"role"`
}
type authResp struct {
    User   userPart  `json:"user"`
    Access tokenPart `json:"access"`
}

// RegisterMember handles POST /v1/auth/register/member.
func (h *AuthHandler) RegisterMember(c echo.Context) error {
    var req registerMemberReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }
    if strings.TrimSpace(req.FirstName) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tx, err := h.Users.DB.BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    uid, err := h.Users.CreateTx(ctx, tx, req.Email, req.Password, repository.RoleMember, h.Cfg.BcryptCost)
    if err != nil {
        if err == repository.ErrEmailExists {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }
    m := &repository.Member{
        UserID:       uid,
        FirstName:    strings.TrimSpace(req.FirstName),
        LastName:     strings.TrimSpace(req.LastName),
        MobileNumber: strings.TrimSpace(req.MobileNumber),
        City:         strings.TrimSpace(req.City),
    }
    if err := h.Members.CreateTx(ctx, tx, m); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create profile failed"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, repository.RoleMember, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusCreated, authResp{
        User:   userPart{ID: uid, Email: req.Email, Role: repository.RoleMember},
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// RegisterPartner handles POST /v1/auth/register/partner.  The new partner
// can publish offers and redeem coupons immediately.
func (h *AuthHandler) RegisterPartner(c echo.Context) error {
    var req registerPartnerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }
    if strings.TrimSpace(req.ShopName) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "shop_name required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tx, err := h.Users.DB.BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    uid, err := h.Users.CreateTx(ctx, tx, req.Email, req.Password, repository.RolePartner, h.Cfg.BcryptCost)
    if err != nil {
        if err == repository.ErrEmailExists {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }
    p := &repository.Partner{
        UserID:      uid,
        PartnerName: strings.TrimSpace(req.PartnerName),
        ShopName:    strings.TrimSpace(req.ShopName),
        City:        strings.TrimSpace(req.City),
        Category:    strings.TrimSpace(req.Category),
    }
    if err := h.Partners.CreateTx(ctx, tx, p); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create profile failed"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, repository.RolePartner, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusCreated, authResp{
        User:   userPart{ID: uid, Email: req.Email, Role: repository.RolePartner},
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Login: verify credentials and return a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !u.IsActive {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, authResp{
        User:   userPart{ID: u.ID, Email: u.Email, Role: u.Role},
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "user_id": c.Get("user_id"),
        "role":    c.Get("role"),
    })
}
