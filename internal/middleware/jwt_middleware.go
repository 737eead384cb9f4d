package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID    = "user_id"
	ContextEmail     = "email"
	ContextStoreID   = "store_id"
	ContextCartOwner = "cart_owner"
)

// JWTMiddleware verifies bearer tokens issued by the external auth service.
type JWTMiddleware struct {
	secret      string
	rateLimiter *InvalidAuthRateLimiter
}

func NewJWTMiddleware(secret string, rateLimiter *InvalidAuthRateLimiter) *JWTMiddleware {
	return &JWTMiddleware{secret: secret, rateLimiter: rateLimiter}
}

// Handle rejects requests without a valid bearer token.
func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			m.reject(c, "UNAUTHORIZED", "Missing or invalid authorization header")
			return
		}
		if !m.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// Optional authenticates the request when a token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func (m *JWTMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			m.reject(c, "UNAUTHORIZED", "Invalid authorization header")
			return
		}
		if !m.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

func (m *JWTMiddleware) authenticate(c *gin.Context, token string) bool {
	claims, err := utils.ValidateJWT(token, m.secret)
	if err != nil {
		m.reject(c, "INVALID_TOKEN", "Invalid or expired token")
		return false
	}
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	return true
}

// reject answers 401, or 429 once an IP keeps sending bad credentials.
func (m *JWTMiddleware) reject(c *gin.Context, code, message string) {
	if m.rateLimiter != nil && !m.rateLimiter.Allow(c.ClientIP()) {
		utils.Error(c, 429, "TOO_MANY_ATTEMPTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}
	utils.Error(c, 401, code, message)
	c.Abort()
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
