package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const principalContextKey = "datecraft.principal"

// principal is the identity forwarded by the API gateway. Authentication
// itself happens upstream; this service only trusts the asserted user id.
type principal struct {
	ID string
}

type AuthMiddleware struct{}

func (m AuthMiddleware) Handle(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if id != "" {
		c.Set(principalContextKey, principal{ID: id})
	}
	c.Next()
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}
