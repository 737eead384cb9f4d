package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/middleware"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CheckoutHandler prices carts.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

type previewRequest struct {
	CouponCode string `json:"couponCode" binding:"omitempty,couponcode"`
}

// Preview handles POST /v1/checkout/preview. The body is optional.
func (h *CheckoutHandler) Preview(c *gin.Context) {
	var req previewRequest
	if hasBody(c) && !bindJSON(c, &req) {
		return
	}

	preview, err := h.checkoutService.Preview(c.Request.Context(), middleware.GetCartOwner(c), req.CouponCode)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Checkout preview computed", preview)
}
