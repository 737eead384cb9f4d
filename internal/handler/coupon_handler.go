package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CouponHandler exposes coupon redemption and ranking.
type CouponHandler struct {
	couponService *service.CouponService
}

// NewCouponHandler constructs a CouponHandler.
func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

type applyCouponRequest struct {
	Code        string           `json:"code" binding:"required,couponcode"`
	OrderAmount *decimal.Decimal `json:"orderAmount" binding:"required"`
}

type applicableCouponsRequest struct {
	TotalPrice *decimal.Decimal `json:"totalPrice" binding:"required"`
}

// Apply handles POST /v1/coupons/apply and consumes one use of the coupon.
func (h *CouponHandler) Apply(c *gin.Context) {
	var req applyCouponRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.couponService.ValidateAndApply(c.Request.Context(), req.Code, *req.OrderAmount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Coupon applied", res)
}

// Applicable handles POST /v1/coupons/applicable
func (h *CouponHandler) Applicable(c *gin.Context) {
	var req applicableCouponsRequest
	if !bindJSON(c, &req) {
		return
	}

	ranked, err := h.couponService.RankApplicable(c.Request.Context(), *req.TotalPrice)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Applicable coupons retrieved", gin.H{"coupons": ranked})
}
