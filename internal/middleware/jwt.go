package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/auth"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

// Context keys populated by JWTAuth for downstream middleware and handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxEmail  = "email"
)

// JWTAuth returns an Echo middleware that resolves the bearer token into a
// concrete active account. The token must be of the access kind: a refresh
// token, whatever its validity, is rejected here. The account is re-read
// from the database on every request so that a still-unexpired token stops
// working the moment its account is deactivated.
//
// All failure modes (missing header, bad signature, expired token, wrong
// token kind, unknown or inactive account) collapse into a single 401 so
// the response does not leak which check failed.
func JWTAuth(tokens *auth.TokenService, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := tokens.DecodeKind(raw, auth.KindAccess)
			if err != nil {
				// expired vs invalid matters for logs only, not the client
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetActiveByID(ctx, claims.UserID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUserID, u.ID)
			c.Set(CtxRole, u.Role)
			c.Set(CtxEmail, u.Email)
			return next(c)
		}
	}
}
