package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CartStore persists carts and their lines.
type CartStore interface {
	GetByOwner(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	GetOrCreate(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	UpsertItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID, qty int) (*models.CartItem, error)
	DeleteItem(ctx context.Context, cartID, itemID int) (bool, error)
	Merge(ctx context.Context, fromCartID, toCartID int) error
	DeleteIdleGuestCarts(ctx context.Context, olderThan time.Time) (int64, error)
}

// CartService manages user and guest carts.
type CartService struct {
	carts    CartStore
	products ProductReader
}

// NewCartService constructs a CartService.
func NewCartService(carts CartStore, products ProductReader) *CartService {
	return &CartService{carts: carts, products: products}
}

// AddCartItemRequest adds either a catalog variant (productId and variantSku)
// or an externally sourced product (title and price).
type AddCartItemRequest struct {
	ProductID  *int             `json:"productId"`
	VariantSKU string           `json:"variantSku"`
	Title      string           `json:"title"`
	Image      string           `json:"image"`
	Category   string           `json:"category"`
	Price      *decimal.Decimal `json:"price"`
	Quantity   int              `json:"quantity"`
}

// UpdateCartItemRequest changes the quantity of a cart line.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the owner's cart. An owner without a cart gets an empty one.
func (s *CartService) GetCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emptyCart(owner), nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// AddItem adds a line to the owner's cart, merging it into a matching line.
// Catalog lines snapshot the live variant price.
func (s *CartService) AddItem(ctx context.Context, owner models.CartOwner, req AddCartItemRequest) (*models.Cart, error) {
	if req.Quantity < 1 {
		return nil, utils.ValidationError(utils.CodeInvalidQuantity, "quantity must be at least 1")
	}

	item := &models.CartItem{Quantity: req.Quantity}
	if req.ProductID != nil {
		sku := strings.TrimSpace(req.VariantSKU)
		if sku == "" {
			return nil, utils.ValidationError(utils.CodeVariantSelectionMissing, "select a variant before adding product %d", *req.ProductID)
		}
		product, err := s.products.GetByID(ctx, *req.ProductID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, utils.NotFoundError(utils.CodeProductNotFound, "product %d not found", *req.ProductID)
			}
			return nil, fmt.Errorf("load product: %w", err)
		}
		variant, ok := product.Variants.BySKU(sku)
		if !ok || !product.IsActive {
			return nil, utils.NotFoundError(utils.CodeVariantNotFound, "product %q has no variant %q", product.Name, sku)
		}
		productID := product.ID
		item.ProductID = &productID
		item.VariantSKU = &sku
		item.Title = product.Name
		item.Image = product.Image
		item.Category = product.Category
		item.PriceSnapshot = variant.Price
	} else {
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return nil, utils.ValidationError(utils.CodeInvalidRequest, "title is required for items outside the catalog")
		}
		if req.Price == nil || req.Price.IsNegative() {
			return nil, utils.ValidationError(utils.CodeInvalidRequest, "a non-negative price is required for items outside the catalog")
		}
		item.Title = title
		item.Image = req.Image
		item.Category = req.Category
		item.PriceSnapshot = *req.Price
	}

	cart, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("open cart: %w", err)
	}
	item.CartID = cart.ID
	if err := s.carts.UpsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	log.Debug().
		Int("cart_id", cart.ID).
		Str("line", item.LineKey()).
		Int("quantity", item.Quantity).
		Msg("cart line added")
	return s.GetCart(ctx, owner)
}

// UpdateQuantity sets the quantity of one line of the owner's cart.
func (s *CartService) UpdateQuantity(ctx context.Context, owner models.CartOwner, itemID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, utils.ValidationError(utils.CodeInvalidQuantity, "quantity must be at least 1")
	}
	cart, err := s.ownedCart(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.carts.UpdateItemQuantity(ctx, cart.ID, itemID, qty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, itemNotFound(itemID)
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.GetCart(ctx, owner)
}

// RemoveItem deletes one line of the owner's cart.
func (s *CartService) RemoveItem(ctx context.Context, owner models.CartOwner, itemID int) (*models.Cart, error) {
	cart, err := s.ownedCart(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}
	ok, err := s.carts.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	if !ok {
		return nil, itemNotFound(itemID)
	}
	return s.GetCart(ctx, owner)
}

// MergeGuestCart folds the guest cart of sessionID into the cart of userID,
// typically right after sign-in. The guest cart is deleted.
func (s *CartService) MergeGuestCart(ctx context.Context, sessionID string, userID int) (*models.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, utils.ValidationError(utils.CodeInvalidRequest, "guest session id is required")
	}
	user := models.CartOwner{UserID: userID}

	guest, err := s.carts.GetByOwner(ctx, models.CartOwner{SessionID: sessionID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.GetCart(ctx, user)
		}
		return nil, fmt.Errorf("load guest cart: %w", err)
	}

	target, err := s.carts.GetOrCreate(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("open user cart: %w", err)
	}
	if err := s.carts.Merge(ctx, guest.ID, target.ID); err != nil {
		return nil, fmt.Errorf("merge carts: %w", err)
	}
	return s.GetCart(ctx, user)
}

// CleanupIdleGuestCarts deletes guest carts idle for longer than ttl.
func (s *CartService) CleanupIdleGuestCarts(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.carts.DeleteIdleGuestCarts(ctx, time.Now().Add(-ttl))
}

func (s *CartService) ownedCart(ctx context.Context, owner models.CartOwner, itemID int) (*models.Cart, error) {
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, itemNotFound(itemID)
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

func itemNotFound(itemID int) error {
	return utils.NotFoundError(utils.CodeCartItemNotFound, "cart item %d not found", itemID)
}

func emptyCart(owner models.CartOwner) *models.Cart {
	cart := &models.Cart{Items: []models.CartItem{}}
	if owner.IsGuest() {
		sid := owner.SessionID
		cart.SessionID = &sid
	} else {
		uid := owner.UserID
		cart.UserID = &uid
	}
	return cart
}
