package middleware

import (
	"context"
	"errors"
	"net/http"

	"kineticafs/internal/domain/token"
	"kineticafs/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenHeader carries the service token access key.
const TokenHeader = "x-api-token"

const (
	ctxTokenID  = "token_id"
	ctxRole     = "role"
	ctxIdentity = "identity"
)

// Resolver maps an access key to an identity.
type Resolver interface {
	Resolve(ctx context.Context, accessKey string) (*token.Identity, error)
}

// TokenAuth resolves the x-api-token header once per request and stores the
// identity in the gin context. Bad keys are 401; only storage failures are 500.
func TokenAuth(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(TokenHeader)
		if key == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "x-api-token header is required")
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, token.ErrUnauthenticated) {
				response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or unknown token")
				return
			}
			_ = c.Error(err)
			response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify token")
			return
		}

		c.Set(ctxIdentity, identity)
		c.Set(ctxTokenID, identity.TokenID)
		c.Set(ctxRole, string(identity.Role))
		c.Next()
	}
}

// IdentityFrom returns the identity TokenAuth attached, if any.
func IdentityFrom(c *gin.Context) (*token.Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*token.Identity)
	return id, ok
}
