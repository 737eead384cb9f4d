package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// ProductHandler serves catalog reads.
type ProductHandler struct {
	catalogService *service.CatalogService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(catalogService *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalogService: catalogService}
}

// GetProduct returns a product with its variants and their cached stock.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved successfully", product)
}

// GetVariant returns one variant of a product.
func (h *ProductHandler) GetVariant(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	_, variant, err := h.catalogService.GetVariant(c.Request.Context(), productID, c.Param("sku"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Variant retrieved successfully", variant)
}
