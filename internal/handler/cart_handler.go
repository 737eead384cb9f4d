package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/middleware"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CartHandler exposes user and guest carts.
type CartHandler struct {
	cartService *service.CartService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart handles GET /v1/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.cartService.GetCart(c.Request.Context(), middleware.GetCartOwner(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Cart retrieved successfully", cart)
}

// AddItem handles POST /v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req service.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), middleware.GetCartOwner(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Item added to cart", cart)
}

// UpdateItem handles PATCH /v1/cart/items/:itemId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var req service.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	cart, err := h.cartService.UpdateQuantity(c.Request.Context(), middleware.GetCartOwner(c), itemID, req.Quantity)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Cart item updated", cart)
}

// RemoveItem handles DELETE /v1/cart/items/:itemId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), middleware.GetCartOwner(c), itemID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Cart item removed", cart)
}

type mergeCartRequest struct {
	SessionID string `json:"sessionId"`
}

// Merge handles POST /v1/cart/merge. The guest session comes from the body
// or the session header.
func (h *CartHandler) Merge(c *gin.Context) {
	var req mergeCartRequest
	if hasBody(c) && !bindJSON(c, &req) {
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = c.GetHeader(middleware.SessionHeader)
	}

	cart, err := h.cartService.MergeGuestCart(c.Request.Context(), sessionID, c.GetInt(middleware.ContextUserID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Guest cart merged", cart)
}
