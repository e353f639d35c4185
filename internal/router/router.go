// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/handler"
	"github.com/iliyamo/marketplace-api/internal/middleware"
	"github.com/iliyamo/marketplace-api/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers registration, login and the token exchange
// endpoints. Registration and the token endpoints are unauthenticated:
// the refresh endpoints authenticate by the presented refresh token
// itself. /v1/users/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authMW echo.MiddlewareFunc) {
	g := e.Group("/v1/users")
	g.POST("", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh-token", a.Refresh)
	// issues a new access token without rotating the refresh token
	g.POST("/access-token", a.RefreshAccess)

	g.GET("/me", a.Me, authMW)
}

// RegisterUsers registers the protected user management endpoints. The
// list endpoint is admin-only; update and deactivate enforce the
// self-or-admin rule inside the handler, so only authentication is
// applied here.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, authMW echo.MiddlewareFunc) {
	g := e.Group("/v1/users", authMW)
	g.GET("", h.List, middleware.RequireRole(model.RoleAdmin))
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Deactivate)
}

// RegisterCatalog registers the product, category and review endpoints.
// Reads are public and pass through the response cache; mutations
// require an access token and the role noted on each route. Ownership
// checks live in the handlers.
func RegisterCatalog(e *echo.Echo, p *handler.ProductHandler, cat *handler.CategoryHandler, rev *handler.ReviewHandler, authMW, cacheMW echo.MiddlewareFunc) {
	// public reads, cached
	e.GET("/v1/products", p.List, cacheMW)
	e.GET("/v1/products/:id", p.Get, cacheMW)
	e.GET("/v1/products/:id/reviews", rev.ListByProduct, cacheMW)
	e.GET("/v1/categories", cat.List, cacheMW)
	e.GET("/v1/reviews", rev.List, cacheMW)

	// product mutations: sellers create, owner-or-admin modify
	e.POST("/v1/products", p.Create, authMW, middleware.RequireRole(model.RoleSeller))
	e.PUT("/v1/products/:id", p.Update, authMW, middleware.RequireRole(model.RoleSeller, model.RoleAdmin))
	e.DELETE("/v1/products/:id", p.Delete, authMW, middleware.RequireRole(model.RoleSeller, model.RoleAdmin))

	// category mutations: admin only
	e.POST("/v1/categories", cat.Create, authMW, middleware.RequireRole(model.RoleAdmin))
	e.PUT("/v1/categories/:id", cat.Update, authMW, middleware.RequireRole(model.RoleAdmin))
	e.DELETE("/v1/categories/:id", cat.Delete, authMW, middleware.RequireRole(model.RoleAdmin))

	// review mutations: buyers create, author-or-admin retract
	e.POST("/v1/reviews", rev.Create, authMW, middleware.RequireRole(model.RoleBuyer))
	e.DELETE("/v1/reviews/:id", rev.Delete, authMW, middleware.RequireRole(model.RoleBuyer, model.RoleAdmin))
}
