package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrEthical07/goAuthGate/jwt"
)

// GinClaimsKey is the gin.Context key holding *jwt.Claims.
const GinClaimsKey = "goauthgate.claims"

// GinRequireAccess is RequireAccess for gin. Claims are stored both under
// GinClaimsKey and on the request context.
func GinRequireAccess(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, status := authorize(c.Request.Context(), v, c.GetHeader("Authorization"))
		if status != http.StatusOK {
			c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
			return
		}
		c.Set(GinClaimsKey, claims)
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// GinRequireRoles must run after GinRequireAccess.
func GinRequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := GinClaims(c)
		if !hasAnyRole(claims, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": http.StatusText(http.StatusForbidden)})
			return
		}
		c.Next()
	}
}

// GinClaims returns the claims stored by GinRequireAccess.
func GinClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(GinClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
