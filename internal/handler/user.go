// Package handler: user management endpoints, including the account
// deactivation cascade. Deactivating an account and soft-deleting every
// record it owns happens in one transaction so a failure midway leaves
// the account fully active.
package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/config"
	"github.com/iliyamo/marketplace-api/internal/model"
	"github.com/iliyamo/marketplace-api/internal/queue"
	"github.com/iliyamo/marketplace-api/internal/repository"
	queue_publisher "github.com/iliyamo/marketplace-api/internal/service"
)

// UserHandler bundles the repositories the user endpoints touch. The
// product, review and category repositories are needed by the
// deactivation cascade.
type UserHandler struct {
	Cfg        config.Config
	Users      *repository.UserRepo
	Products   *repository.ProductRepo
	Reviews    *repository.ReviewRepo
	Categories *repository.CategoryRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo, p *repository.ProductRepo, r *repository.ReviewRepo, cat *repository.CategoryRepo) *UserHandler {
	if u == nil || p == nil || r == nil || cat == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Cfg: cfg, Users: u, Products: p, Reviews: r, Categories: cat}
}

type updateUserReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// List handles GET /v1/users (admin only, enforced at the route). It
// returns every account including deactivated ones, since this is a
// management surface.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, userResp{ID: u.ID, Email: u.Email, Role: u.Role.String(), IsActive: u.IsActive})
	}
	return c.JSON(http.StatusOK, out)
}

// Update handles PUT /v1/users/:id. A user may update their own record;
// admins may update anyone. The password is always re-hashed.
func (h *UserHandler) Update(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	callerRole, err := getRole(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if callerRole != model.RoleAdmin && callerID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not enough permissions"})
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := model.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if req.Email == "" || req.Password == "" || !role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password/role required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Update(ctx, id, req.Email, req.Password, role, h.Cfg.BcryptCost); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case repository.ErrEmailExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.JSON(http.StatusOK, userResp{ID: id, Email: req.Email, Role: role.String(), IsActive: true})
}

// Deactivate handles DELETE /v1/users/:id. It soft-deletes the account
// and cascades to everything the account owns, branching on role:
// a seller's products go inactive, a buyer's reviews are retracted (and
// every affected product's rating is recomputed), an admin's categories
// go inactive. All writes share one transaction.
func (h *UserHandler) Deactivate(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	callerRole, err := getRole(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if callerRole != model.RoleAdmin && callerID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not enough permissions"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	target, err := h.Users.GetActiveByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	tx, err := h.Users.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Users.DeactivateTx(ctx, tx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}

	event := queue.AccountDeactivatedEvent{UserID: id, Role: target.Role.String()}
	switch target.Role {
	case model.RoleSeller:
		n, err := h.Products.DeactivateBySellerTx(ctx, tx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cascade failed"})
		}
		event.ProductsDeactivated = n
	case model.RoleBuyer:
		// Affected products must be captured before the retraction, while
		// the author's reviews are still active.
		productIDs, err := h.Reviews.ActiveProductIDsByAuthorTx(ctx, tx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cascade failed"})
		}
		n, err := h.Reviews.DeactivateByAuthorTx(ctx, tx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cascade failed"})
		}
		for _, pid := range productIDs {
			if err := h.Reviews.RecomputeProductRatingTx(ctx, tx, pid); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cascade failed"})
			}
		}
		event.ReviewsRetracted = n
	case model.RoleAdmin:
		n, err := h.Categories.DeactivateByAdminTx(ctx, tx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cascade failed"})
		}
		event.CategoriesDeactivated = n
	default:
		// unreachable with a valid role; refuse to commit a partial cascade
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unknown role"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	_ = queue_publisher.PublishAccountDeactivated(c.Request().Context(), event)

	return c.JSON(http.StatusOK, echo.Map{"message": "user deactivated"})
}
