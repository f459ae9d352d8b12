package server

import (
	"strings"

	"github.com/campusworks/acadia/internal/identity/token"
	"github.com/campusworks/acadia/pkg/tenantctx"
	"github.com/gin-gonic/gin"
)

// RequireAuth validates the bearer token and attaches the caller's claims
// to the request context.
func RequireAuth(verifier *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := verifier.Verify(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := tenantctx.WithClaims(c.Request.Context(), tenantctx.Claims{
			UserID:   claims.Subject,
			Role:     claims.Role,
			TenantID: claims.TenantID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allow list. Must run
// after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := tenantctx.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
