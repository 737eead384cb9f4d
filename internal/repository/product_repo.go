package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/storefront_api/internal/models"
)

// ProductRepository handles data access for products and their variants.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID returns a product with its variants. Returns sql.ErrNoRows if absent.
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	const q = `SELECT * FROM products WHERE id = $1 LIMIT 1`
	var p models.Product
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, err
	}

	const vq = `SELECT * FROM product_variants WHERE product_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &p.Variants, vq, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the requested products with variants keyed by product id.
// Missing ids are simply absent from the map.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int) (map[int]*models.Product, error) {
	result := make(map[int]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	const q = `SELECT * FROM products WHERE id = ANY($1)`
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, q, pq.Array(ids)); err != nil {
		return nil, err
	}
	for i := range products {
		result[products[i].ID] = &products[i]
	}

	const vq = `SELECT * FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, id`
	var variants []models.Variant
	if err := r.db.SelectContext(ctx, &variants, vq, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, v := range variants {
		if p, ok := result[v.ProductID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return result, nil
}

// GetVariant returns one variant addressed by (product id, sku).
// Returns sql.ErrNoRows if the product or the sku does not exist.
func (r *ProductRepository) GetVariant(ctx context.Context, productID int, sku string) (*models.Variant, error) {
	const q = `SELECT * FROM product_variants WHERE product_id = $1 AND sku = $2 LIMIT 1`
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var v models.Variant
	if err := stmt.GetContext(ctx, &v, productID, sku); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &v, nil
}

// UpdateVariantStock writes the aggregate stock onto a single variant row.
// Status and has_stock are derived from qty here so they can never drift from it.
// Returns false when no such variant exists.
func (r *ProductRepository) UpdateVariantStock(ctx context.Context, productID int, sku string, qty int) (bool, error) {
	var v models.Variant
	v.ApplyStock(qty)

	const q = `
        UPDATE product_variants SET
            stock_quantity = $3,
            stock_status = $4,
            has_stock = $5,
            updated_at = NOW()
        WHERE product_id = $1 AND sku = $2`

	res, err := r.db.ExecContext(ctx, q, productID, sku, v.StockQuantity, v.StockStatus, v.HasStock)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
