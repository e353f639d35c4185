// Package handler: review endpoints. Creating or retracting a review and
// recomputing the affected product's rating are one transaction, so a
// reader can never observe a committed review without its rating update.
package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/model"
	"github.com/iliyamo/marketplace-api/internal/queue"
	"github.com/iliyamo/marketplace-api/internal/repository"
	queue_publisher "github.com/iliyamo/marketplace-api/internal/service"
)

// ReviewHandler bundles repositories for the review endpoints.
type ReviewHandler struct {
	Reviews  *repository.ReviewRepo
	Products *repository.ProductRepo
}

func NewReviewHandler(r *repository.ReviewRepo, p *repository.ProductRepo) *ReviewHandler {
	if r == nil || p == nil {
		panic("nil repository passed to NewReviewHandler")
	}
	return &ReviewHandler{Reviews: r, Products: p}
}

type reviewReq struct {
	ProductID uint64  `json:"product_id"`
	Comment   *string `json:"comment"`
	Grade     int     `json:"grade"`
}

type reviewResp struct {
	ID        uint64  `json:"id"`
	UserID    uint64  `json:"user_id"`
	ProductID uint64  `json:"product_id"`
	Comment   *string `json:"comment,omitempty"`
	Grade     int     `json:"grade"`
}

func toReviewResp(rv model.Review) reviewResp {
	return reviewResp{ID: rv.ID, UserID: rv.UserID, ProductID: rv.ProductID, Comment: rv.Comment, Grade: rv.Grade}
}

// List handles GET /v1/reviews. Only active reviews are visible.
func (h *ReviewHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reviews, err := h.Reviews.ListActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]reviewResp, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReviewResp(rv))
	}
	return c.JSON(http.StatusOK, out)
}

// ListByProduct handles GET /v1/products/:id/reviews. A missing or
// inactive product yields 404 before any review is listed.
func (h *ReviewHandler) ListByProduct(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Products.GetActiveByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	reviews, err := h.Reviews.ListActiveByProduct(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]reviewResp, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReviewResp(rv))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/reviews (buyer only, enforced at the route).
// The review insert and the product rating recompute commit together.
func (h *ReviewHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ProductID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_id required"})
	}
	if req.Grade < 1 || req.Grade > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "grade must be between 1 and 5"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Products.GetActiveByID(ctx, req.ProductID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	rv := model.Review{UserID: userID, ProductID: req.ProductID, Comment: req.Comment, Grade: req.Grade, IsActive: true}

	tx, err := h.Reviews.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Reviews.CreateTx(ctx, tx, &rv); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create review failed"})
	}
	if err := h.Reviews.RecomputeProductRatingTx(ctx, tx, rv.ProductID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rating update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishActivity("created", rv)
	return c.JSON(http.StatusCreated, toReviewResp(rv))
}

// Delete handles DELETE /v1/reviews/:id. Retraction, not deletion: the
// row keeps its product and author and only goes inactive. Buyers may
// retract their own reviews; admins may retract any.
func (h *ReviewHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, err := getRole(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// existence first: an already-retracted review is a 404, not a 403
	rv, err := h.Reviews.GetActiveByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if role != model.RoleBuyer && role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only buyers or admin can perform this action"})
	}
	if role == model.RoleBuyer && rv.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "buyers can only delete their own reviews"})
	}

	tx, err := h.Reviews.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Reviews.DeactivateTx(ctx, tx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := h.Reviews.RecomputeProductRatingTx(ctx, tx, rv.ProductID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rating update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishActivity("retracted", rv)
	return c.JSON(http.StatusOK, toReviewResp(rv))
}

// publishActivity emits a best-effort review event carrying the rating
// as it stands after the commit. It runs on a fresh context so a closed
// request cannot cancel the publish.
func (h *ReviewHandler) publishActivity(action string, rv model.Review) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var rating float64
	if p, err := h.Products.GetActiveByID(ctx, rv.ProductID); err == nil {
		rating = p.Rating
	}
	_ = queue_publisher.PublishReviewActivity(ctx, queue.ReviewActivityEvent{
		Action:     action,
		ReviewID:   rv.ID,
		ProductID:  rv.ProductID,
		UserID:     rv.UserID,
		Grade:      rv.Grade,
		NewRating:  rating,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}
