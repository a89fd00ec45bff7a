package middleware

import (
	"net/http"
	"strings"

	"songmail/internal/pkg/jwt"
	"songmail/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
)

// JWTAuth requires a valid bearer token and stores the caller's identity in
// the gin context. The user id is only ever taken from the verified claims.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Missing Authorization header")
			c.Abort()
			return
		}
		if authenticate(c, jwtService) {
			c.Next()
		}
	}
}

// OptionalJWTAuth lets anonymous requests through. A request that does send
// an Authorization header must still carry a valid token.
func OptionalJWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		if authenticate(c, jwtService) {
			c.Next()
		}
	}
}

// authenticate verifies the bearer token and stores the identity, or writes
// a 401 and aborts.
func authenticate(c *gin.Context, jwtService *jwt.Service) bool {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
		c.Abort()
		return false
	}

	tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if tokenStr == "" {
		response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Empty token")
		c.Abort()
		return false
	}

	claims, err := jwtService.ValidateToken(tokenStr)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		c.Abort()
		return false
	}

	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUsername, claims.Username)
	return true
}

// CurrentUserID returns the authenticated user id, or false for an anonymous
// request.
func CurrentUserID(c *gin.Context) (int64, bool) {
	id := c.GetInt64(ctxUserID)
	return id, id > 0
}

func CurrentUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}
