package middleware

import (
	"net/http"
	"strings"

	"flowboard/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserIDKey is the gin context key holding the authenticated uuid.UUID.
const UserIDKey = "userID"

// JWTAuthMiddleware rejects requests without a valid "Bearer" token and
// stores the token's user id under UserIDKey.
func JWTAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		userID, ok := authenticate(c, jwtSecret, parts[1])
		if !ok {
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// QueryTokenAuth authenticates through the "token" query parameter. Browsers
// cannot set headers on a websocket handshake.
func QueryTokenAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token query parameter is required"})
			return
		}
		userID, ok := authenticate(c, jwtSecret, token)
		if !ok {
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func authenticate(c *gin.Context, jwtSecret, token string) (uuid.UUID, bool) {
	raw, err := auth.ParseToken(jwtSecret, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
		return uuid.Nil, false
	}
	return userID, true
}

// UserID returns the id stored by the auth middleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
