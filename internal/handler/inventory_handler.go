package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/middleware"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// InventoryHandler exposes the store inventory ledger.
type InventoryHandler struct {
	inventoryService *service.InventoryService
}

// NewInventoryHandler constructs an InventoryHandler.
func NewInventoryHandler(inventoryService *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// Upsert handles POST /v1/stores/:storeId/inventory
func (h *InventoryHandler) Upsert(c *gin.Context) {
	var req service.UpsertInventoryRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.inventoryService.Upsert(c.Request.Context(), c.GetInt(middleware.ContextStoreID), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Inventory saved", res)
}

// Update handles PATCH /v1/stores/:storeId/inventory/:inventoryId
func (h *InventoryHandler) Update(c *gin.Context) {
	inventoryID, ok := pathID(c, "inventoryId")
	if !ok {
		return
	}
	var req service.UpdateInventoryRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.inventoryService.Update(c.Request.Context(), c.GetInt(middleware.ContextStoreID), inventoryID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Inventory updated", res)
}

// ListByStore handles GET /v1/stores/:storeId/inventory?stockStatus=&page=&limit=
func (h *InventoryHandler) ListByStore(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	res, err := h.inventoryService.ListByStore(c.Request.Context(), c.GetInt(middleware.ContextStoreID), c.Query("stockStatus"), page, limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, 200, "Inventory retrieved successfully", gin.H{
		"records": res.Records,
	}, res.Page, res.Limit, res.TotalItems)
}

// ListByProduct handles GET /v1/products/:productId/inventory
func (h *InventoryHandler) ListByProduct(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	records, err := h.inventoryService.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, 200, "Inventory retrieved successfully", gin.H{"records": records})
}
