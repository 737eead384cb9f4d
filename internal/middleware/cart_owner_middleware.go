package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GTDGit/storefront_api/internal/models"
)

// SessionHeader carries the guest cart session id in both directions.
const SessionHeader = "X-Session-Id"

// CartOwner resolves whose cart a request addresses. An authenticated user
// owns their cart; otherwise the guest session header is used, and a new
// session id is issued in the response when the request carries none.
// Must run after JWTMiddleware.Optional.
func CartOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := models.CartOwner{UserID: c.GetInt(ContextUserID)}
		if owner.IsGuest() {
			owner.SessionID = strings.TrimSpace(c.GetHeader(SessionHeader))
			if owner.SessionID == "" {
				owner.SessionID = uuid.NewString()
			}
			c.Header(SessionHeader, owner.SessionID)
		}
		c.Set(ContextCartOwner, owner)
		c.Next()
	}
}

// GetCartOwner returns the owner resolved by CartOwner.
func GetCartOwner(c *gin.Context) models.CartOwner {
	if v, ok := c.Get(ContextCartOwner); ok {
		if owner, ok := v.(models.CartOwner); ok {
			return owner
		}
	}
	return models.CartOwner{UserID: c.GetInt(ContextUserID)}
}
