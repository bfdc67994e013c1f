package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// Middleware requires a valid bearer token. With no secret configured the
// routes are open and the middleware passes everything through.
func Middleware(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(tokens.Secret) == 0 {
			c.Next()
			return
		}

		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		raw := strings.TrimSpace(h[len("Bearer "):])
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims set by Middleware, or nil on open routes.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
