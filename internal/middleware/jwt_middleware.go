package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rksaklani/pgimer-psy-sub000/internal/services"
)

// JWTAuthMiddleware validates the bearer access token. Expired tokens get a
// distinct response so clients know to hit /auth/refresh instead of forcing a
// full re-login.
func JWTAuthMiddleware(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "Authorization token is required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" || tokenString == authHeader {
			c.JSON(401, gin.H{"error": "Bearer token is required"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			if errors.Is(err, services.ErrTokenExpired) {
				c.JSON(401, gin.H{"error": "Access token expired", "code": "token_expired"})
			} else {
				c.JSON(401, gin.H{"error": "Invalid access token"})
			}
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid access token"})
			c.Abort()
			return
		}

		// Attach user information to the context
		c.Set("userID", userID)
		c.Set("userEmail", claims.Email)
		c.Set("userRole", string(claims.Role))

		c.Next()
	}
}
