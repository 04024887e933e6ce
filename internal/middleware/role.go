package middleware

import (
	"net/http"
	"slices"

	"kineticafs/internal/domain/token"
	"kineticafs/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole admits identities holding one of the given roles. Admin tokens
// pass every role check. It must run after TokenAuth.
func RequireRole(roles ...token.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if id.IsAdmin() || slices.Contains(roles, id.Role) {
			c.Next()
			return
		}
		response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
	}
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole(token.RoleAdmin)
}

// AnyRole accepts both user and admin tokens.
func AnyRole() gin.HandlerFunc {
	return RequireRole(token.RoleUser, token.RoleAdmin)
}
