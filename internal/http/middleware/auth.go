package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/consulting-platform/internal/domain"
	"github.com/Leganyst/consulting-platform/internal/identity"
)

// ContextPrincipalKey — ключ domain.Principal в gin.Context.
const ContextPrincipalKey = "principal"

// AuthMiddleware проверяет bearer-токен и кладёт Principal в контекст.
func AuthMiddleware(tokens *identity.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		p, err := tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextPrincipalKey, p)
		c.Next()
	}
}

// RequireRole пропускает только перечисленные роли. Ставится после AuthMiddleware.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := c.Get(ContextPrincipalKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		p, _ := raw.(domain.Principal)
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "role " + string(p.Role) + " is not allowed here",
			"kind":  domain.KindDenied,
		})
	}
}
