package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/marketplace-api/internal/model"
)

// CategoryRepo provides persistence for categories.
type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = "id,name,description,admin_id,is_active,created_at,updated_at"

// Create inserts a category owned by the given admin and populates the
// generated ID.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, description, admin_id) VALUES (?,?,?)",
		c.Name, c.Description, c.AdminID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ListActive returns all active categories.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryCols+" FROM categories WHERE is_active=1 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.AdminID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetActiveByID fetches an active category.
func (r *CategoryRepo) GetActiveByID(ctx context.Context, id uint64) (model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx,
		"SELECT "+categoryCols+" FROM categories WHERE id=? AND is_active=1 LIMIT 1", id).
		Scan(&c.ID, &c.Name, &c.Description, &c.AdminID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Update rewrites name and description of an active category.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name=?, description=? WHERE id=? AND is_active=1",
		c.Name, c.Description, c.ID)
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

// Deactivate soft-deletes a single category.
func (r *CategoryRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET is_active=0 WHERE id=? AND is_active=1", id)
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

// DeactivateByAdminTx soft-deletes every category owned by the given
// admin within the caller's transaction, as part of the account
// deactivation cascade. It returns the number of affected rows.
func (r *CategoryRepo) DeactivateByAdminTx(ctx context.Context, tx *sql.Tx, adminID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE categories SET is_active=0 WHERE admin_id=? AND is_active=1", adminID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
