package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const tokenContextKey = "github_token"

// TokenMiddleware extracts an optional GitHub token from the Authorization
// header ("Bearer <token>" or "token <token>") or the X-Github-Token header.
// The token lives only in the request context; it is never persisted.
func TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""

		auth := c.GetHeader("Authorization")
		if auth != "" {
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) == 2 {
				scheme := strings.ToLower(parts[0])
				if scheme == "bearer" || scheme == "token" {
					token = strings.TrimSpace(parts[1])
				}
			}
		}

		if token == "" {
			token = c.GetHeader("X-Github-Token")
		}

		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// GetToken retrieves the request's GitHub token, or "" when none was sent.
func GetToken(c *gin.Context) string {
	token, exists := c.Get(tokenContextKey)
	if !exists {
		return ""
	}
	if s, ok := token.(string); ok {
		return s
	}
	return ""
}
