package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/marketplace-api/internal/model"
)

// ReviewRepo provides persistence for reviews and owns the product rating
// recompute. Every statement that changes the active review set of a
// product runs inside a transaction supplied by the caller, and the
// caller is expected to recompute the affected products' ratings in that
// same transaction before committing.
type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// DB exposes the underlying handle for cross-repository transactions.
func (r *ReviewRepo) DB() *sql.DB { return r.db }

const reviewCols = "id,user_id,product_id,comment,grade,is_active,created_at"

// CreateTx inserts a review within the caller's transaction and populates
// the generated ID.
func (r *ReviewRepo) CreateTx(ctx context.Context, tx *sql.Tx, rv *model.Review) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reviews (user_id, product_id, comment, grade) VALUES (?,?,?,?)",
		rv.UserID, rv.ProductID, rv.Comment, rv.Grade)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// ListActive returns all active reviews.
func (r *ReviewRepo) ListActive(ctx context.Context) ([]model.Review, error) {
	return r.queryReviews(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE is_active=1 ORDER BY id")
}

// ListActiveByProduct returns the active reviews of one product.
func (r *ReviewRepo) ListActiveByProduct(ctx context.Context, productID uint64) ([]model.Review, error) {
	return r.queryReviews(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE product_id=? AND is_active=1 ORDER BY id", productID)
}

func (r *ReviewRepo) queryReviews(ctx context.Context, q string, args ...any) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Comment, &rv.Grade, &rv.IsActive, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// GetActiveByID fetches an active review.
func (r *ReviewRepo) GetActiveByID(ctx context.Context, id uint64) (model.Review, error) {
	var rv model.Review
	err := r.db.QueryRowContext(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE id=? AND is_active=1 LIMIT 1", id).
		Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Comment, &rv.Grade, &rv.IsActive, &rv.CreatedAt)
	return rv, err
}

// DeactivateTx retracts a review within the caller's transaction. The row
// itself is kept; only is_active flips.
func (r *ReviewRepo) DeactivateTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE reviews SET is_active=0 WHERE id=? AND is_active=1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ActiveProductIDsByAuthorTx lists the distinct products that currently
// have an active review by the given author. The cascade uses it to know
// which ratings to recompute after retracting the author's reviews.
func (r *ReviewRepo) ActiveProductIDsByAuthorTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT DISTINCT product_id FROM reviews WHERE user_id=? AND is_active=1", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeactivateByAuthorTx retracts every active review by the given author
// within the caller's transaction and returns the number of affected rows.
func (r *ReviewRepo) DeactivateByAuthorTx(ctx context.Context, tx *sql.Tx, userID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE reviews SET is_active=0 WHERE user_id=? AND is_active=1", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecomputeProductRatingTx rewrites a product's rating as the average
// grade over its active reviews, or 0 when none remain. Running it twice
// over the same review set yields the same value, and because it executes
// in the same transaction as the review mutation, readers never observe a
// committed review without its rating update.
func (r *ReviewRepo) RecomputeProductRatingTx(ctx context.Context, tx *sql.Tx, productID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE products SET rating = COALESCE((SELECT AVG(grade) FROM reviews WHERE product_id=? AND is_active=1), 0) WHERE id=?",
		productID, productID)
	return err
}
