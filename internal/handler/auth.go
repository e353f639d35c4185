package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/auth"
	"github.com/iliyamo/marketplace-api/internal/config"
	"github.com/iliyamo/marketplace-api/internal/middleware"
	"github.com/iliyamo/marketplace-api/internal/model"
	"github.com/iliyamo/marketplace-api/internal/repository"
	"github.com/iliyamo/marketplace-api/internal/utils"
)

// AuthHandler bundles dependencies for registration, login and the two
// token refresh endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *auth.TokenService
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *auth.TokenService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // buyer | seller | admin
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type userResp struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

const bearerType = "bearer"

// Register creates a user account. The plaintext password is hashed in
// the repository and never echoed back.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	role := model.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role == "" {
		role = model.RoleBuyer
	}
	if !role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	return c.JSON(http.StatusCreated, userResp{ID: uid, Email: req.Email, Role: role.String(), IsActive: true})
}

// Login verifies credentials and returns a fresh access/refresh pair.
// An unknown email and a wrong password produce the same 401 so the
// endpoint cannot be used to enumerate accounts.
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

	u, err := h.Users.GetActiveByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := h.Tokens.IssueAccess(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := h.Tokens.IssueRefresh(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    bearerType,
	})
}

// Refresh rotates a refresh token: it validates the presented token,
// re-checks that the account is still active, and issues a brand-new
// refresh token with a fresh expiry. There is no server-side revocation
// store, so the old token stays decodable until it expires; the active
// re-check is what keeps a deactivated account from minting new tokens.
func (h *AuthHandler) Refresh(c echo.Context) error {
	u, ok := h.resolveRefresh(c)
	if !ok {
		return nil // response already written
	}
	refresh, err := h.Tokens.IssueRefresh(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"refresh_token": refresh,
		"token_type":    bearerType,
	})
}

// RefreshAccess issues a new access token from a refresh token without
// rotating the refresh token. Validation is identical to Refresh.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	u, ok := h.resolveRefresh(c)
	if !ok {
		return nil
	}
	access, err := h.Tokens.IssueAccess(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": access,
		"token_type":   bearerType,
	})
}

// resolveRefresh binds the refresh request, decodes the token requiring
// the refresh kind, and loads the account requiring it to be active. On
// failure it writes the error response and returns ok=false. A signed,
// unexpired token for a deactivated account fails here with 401.
func (h *AuthHandler) resolveRefresh(c echo.Context) (model.User, bool) {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
		return model.User{}, false
	}

	claims, err := h.Tokens.DecodeKind(strings.TrimSpace(req.RefreshToken), auth.KindRefresh)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		return model.User{}, false
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetActiveByID(ctx, claims.UserID)
	if err != nil {
		// unknown and deactivated accounts are indistinguishable here
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		return model.User{}, false
	}
	return u, true
}

// Me returns the authenticated account, resolved by the JWT middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, err := getRole(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	email, _ := c.Get(middleware.CtxEmail).(string)
	return c.JSON(http.StatusOK, userResp{ID: id, Email: email, Role: role.String(), IsActive: true})
}
