package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// StoreRepository handles data access for stores.
type StoreRepository struct {
	db *sqlx.DB
}

// NewStoreRepository creates a new StoreRepository.
func NewStoreRepository(db *sqlx.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// IsOperator reports whether userID owns the active store storeID.
func (r *StoreRepository) IsOperator(ctx context.Context, storeID, userID int) (bool, error) {
	const q = `SELECT EXISTS (
        SELECT 1 FROM stores WHERE id = $1 AND owner_user_id = $2 AND is_active = true
    )`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, storeID, userID); err != nil {
		return false, err
	}
	return ok, nil
}
