package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/storefront_api/internal/database"
	"github.com/GTDGit/storefront_api/internal/models"
)

// CartRepository handles data access for carts and cart items.
type CartRepository struct {
	db *sqlx.DB
}

// NewCartRepository creates a new CartRepository.
func NewCartRepository(db *sqlx.DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetByOwner returns the owner's cart with its items. Returns sql.ErrNoRows if
// the owner has no cart yet.
func (r *CartRepository) GetByOwner(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	var (
		cart models.Cart
		err  error
	)
	if owner.IsGuest() {
		err = r.db.GetContext(ctx, &cart, `SELECT * FROM carts WHERE session_id = $1 LIMIT 1`, owner.SessionID)
	} else {
		err = r.db.GetContext(ctx, &cart, `SELECT * FROM carts WHERE user_id = $1 LIMIT 1`, owner.UserID)
	}
	if err != nil {
		return nil, err
	}

	if cart.Items, err = r.listItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreate returns the owner's cart, creating an empty one if needed.
// Items are not loaded.
func (r *CartRepository) GetOrCreate(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	const userQ = `
        INSERT INTO carts (user_id) VALUES ($1)
        ON CONFLICT (user_id) WHERE user_id IS NOT NULL DO UPDATE SET updated_at = NOW()
        RETURNING *`
	const guestQ = `
        INSERT INTO carts (session_id) VALUES ($1)
        ON CONFLICT (session_id) WHERE session_id IS NOT NULL DO UPDATE SET updated_at = NOW()
        RETURNING *`

	var (
		cart models.Cart
		err  error
	)
	if owner.IsGuest() {
		err = r.db.GetContext(ctx, &cart, guestQ, owner.SessionID)
	} else {
		err = r.db.GetContext(ctx, &cart, userQ, owner.UserID)
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *CartRepository) listItems(ctx context.Context, cartID int) ([]models.CartItem, error) {
	const q = `SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY id`
	items := []models.CartItem{}
	if err := r.db.SelectContext(ctx, &items, q, cartID); err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertItem adds item to its cart. A matching line (same product and variant,
// or same title for items outside the catalog) absorbs the quantity and takes
// the new price snapshot. The stored line is written back into item.
func (r *CartRepository) UpsertItem(ctx context.Context, item *models.CartItem) error {
	const catalogQ = `
        INSERT INTO cart_items (cart_id, product_id, variant_sku, title, image, category, quantity, price_snapshot)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (cart_id, product_id, variant_sku) WHERE product_id IS NOT NULL DO UPDATE SET
            quantity = cart_items.quantity + EXCLUDED.quantity,
            price_snapshot = EXCLUDED.price_snapshot,
            title = EXCLUDED.title,
            image = EXCLUDED.image,
            category = EXCLUDED.category,
            updated_at = NOW()
        RETURNING *`
	const externalQ = `
        INSERT INTO cart_items (cart_id, product_id, variant_sku, title, image, category, quantity, price_snapshot)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (cart_id, title) WHERE product_id IS NULL DO UPDATE SET
            quantity = cart_items.quantity + EXCLUDED.quantity,
            price_snapshot = EXCLUDED.price_snapshot,
            image = EXCLUDED.image,
            category = EXCLUDED.category,
            updated_at = NOW()
        RETURNING *`

	q := externalQ
	if item.IsCatalogItem() {
		q = catalogQ
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, item, q,
			item.CartID, item.ProductID, item.VariantSKU, item.Title, item.Image,
			item.Category, item.Quantity, item.PriceSnapshot,
		); err != nil {
			return err
		}
		return touchCart(ctx, tx, item.CartID)
	})
}

// UpdateItemQuantity sets the quantity of one line. Returns sql.ErrNoRows when
// the line is not in the cart.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID, qty int) (*models.CartItem, error) {
	const q = `
        UPDATE cart_items SET quantity = $3, updated_at = NOW()
        WHERE id = $2 AND cart_id = $1
        RETURNING *`

	var item models.CartItem
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &item, q, cartID, itemID, qty); err != nil {
			return err
		}
		return touchCart(ctx, tx, cartID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes one line. Returns false when the line is not in the cart.
func (r *CartRepository) DeleteItem(ctx context.Context, cartID, itemID int) (bool, error) {
	const q = `DELETE FROM cart_items WHERE id = $2 AND cart_id = $1`
	res, err := r.db.ExecContext(ctx, q, cartID, itemID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Merge folds every line of cart from into cart to and deletes cart from,
// all in one transaction.
func (r *CartRepository) Merge(ctx context.Context, fromCartID, toCartID int) error {
	const catalogQ = `
        INSERT INTO cart_items (cart_id, product_id, variant_sku, title, image, category, quantity, price_snapshot)
        SELECT $2, product_id, variant_sku, title, image, category, quantity, price_snapshot
        FROM cart_items WHERE cart_id = $1 AND product_id IS NOT NULL
        ON CONFLICT (cart_id, product_id, variant_sku) WHERE product_id IS NOT NULL DO UPDATE SET
            quantity = cart_items.quantity + EXCLUDED.quantity,
            price_snapshot = EXCLUDED.price_snapshot,
            updated_at = NOW()`
	const externalQ = `
        INSERT INTO cart_items (cart_id, product_id, variant_sku, title, image, category, quantity, price_snapshot)
        SELECT $2, product_id, variant_sku, title, image, category, quantity, price_snapshot
        FROM cart_items WHERE cart_id = $1 AND product_id IS NULL
        ON CONFLICT (cart_id, title) WHERE product_id IS NULL DO UPDATE SET
            quantity = cart_items.quantity + EXCLUDED.quantity,
            price_snapshot = EXCLUDED.price_snapshot,
            updated_at = NOW()`

	if fromCartID == toCartID {
		return nil
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, catalogQ, fromCartID, toCartID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, externalQ, fromCartID, toCartID); err != nil {
			return err
		}
		// Items cascade.
		if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, fromCartID); err != nil {
			return err
		}
		return touchCart(ctx, tx, toCartID)
	})
}

// DeleteIdleGuestCarts removes guest carts not touched since olderThan.
func (r *CartRepository) DeleteIdleGuestCarts(ctx context.Context, olderThan time.Time) (int64, error) {
	const q = `DELETE FROM carts WHERE user_id IS NULL AND updated_at < $1`
	res, err := r.db.ExecContext(ctx, q, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func touchCart(ctx context.Context, tx *sqlx.Tx, cartID int) error {
	res, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
