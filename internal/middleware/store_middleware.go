package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/utils"
)

// StoreOperatorChecker reports whether a user may manage a store.
type StoreOperatorChecker interface {
	IsOperator(ctx context.Context, storeID, userID int) (bool, error)
}

// StoreOwner allows the request only when the authenticated user operates the
// store named by the :storeId path parameter. Must run after JWTMiddleware.Handle.
func StoreOwner(stores StoreOperatorChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := strconv.Atoi(c.Param("storeId"))
		if err != nil || storeID <= 0 {
			utils.Error(c, 400, utils.CodeInvalidRequest, "Invalid store id")
			c.Abort()
			return
		}

		userID := c.GetInt(ContextUserID)
		ok, err := stores.IsOperator(c.Request.Context(), storeID, userID)
		if err != nil {
			log.Error().Err(err).Int("store_id", storeID).Int("user_id", userID).Msg("store ownership check failed")
			utils.Error(c, 500, utils.CodeInternal, "Failed to verify store access")
			c.Abort()
			return
		}
		if !ok {
			utils.Error(c, 403, "FORBIDDEN", "You do not operate this store")
			c.Abort()
			return
		}

		c.Set(ContextStoreID, storeID)
		c.Next()
	}
}
