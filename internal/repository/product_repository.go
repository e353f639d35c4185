package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/marketplace-api/internal/model"
)

// ProductRepo provides persistence for products. The rating column is
// derived from reviews and is only ever written by the review repository's
// recompute statement, never from request input.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying handle for cross-repository transactions.
func (r *ProductRepo) DB() *sql.DB { return r.db }

const productCols = "id,name,description,price,image_url,stock,rating,category_id,seller_id,is_active,created_at,updated_at"

func scanProductRow(scan func(dest ...any) error) (model.Product, error) {
	var p model.Product
	err := scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Stock,
		&p.Rating, &p.CategoryID, &p.SellerID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a product and populates the generated ID. New products
// start active with a zero rating.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO products (name, description, price, image_url, stock, category_id, seller_id) VALUES (?,?,?,?,?,?,?)",
		p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.CategoryID, p.SellerID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListActive returns all active products.
func (r *ProductRepo) ListActive(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productCols+" FROM products WHERE is_active=1 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Product
	for rows.Next() {
		p, err := scanProductRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetActiveByID fetches an active product. Inactive products look absent
// to every read path, per the soft-delete contract.
func (r *ProductRepo) GetActiveByID(ctx context.Context, id uint64) (model.Product, error) {
	return scanProductRow(r.db.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id=? AND is_active=1 LIMIT 1", id).Scan)
}

// Update rewrites the caller-editable columns of a product. Rating and
// seller are deliberately excluded.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name=?, description=?, price=?, image_url=?, stock=?, category_id=? WHERE id=? AND is_active=1",
		p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.CategoryID, p.ID)
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

// Deactivate soft-deletes a single product.
func (r *ProductRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET is_active=0 WHERE id=? AND is_active=1", id)
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

// DeactivateBySellerTx soft-deletes every product owned by the given
// seller within the caller's transaction, as part of the account
// deactivation cascade. It returns the number of affected rows.
func (r *ProductRepo) DeactivateBySellerTx(ctx context.Context, tx *sql.Tx, sellerID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET is_active=0 WHERE seller_id=? AND is_active=1", sellerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
