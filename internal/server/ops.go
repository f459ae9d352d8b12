package server

import (
	"net/http"
	"strconv"

	"github.com/campusworks/acadia/internal/eventbus"
	"github.com/campusworks/acadia/internal/identity/token"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	"github.com/gin-gonic/gin"
)

// RegisterOpsRoutes exposes the dead-letter queue for operators chasing
// consistency gaps.
func RegisterOpsRoutes(r *gin.Engine, store *eventbus.DeadLetterStore, verifier *token.Manager) {
	ops := r.Group("/internal/dead-letters",
		RequireAuth(verifier),
		RequireRole(tenantdomain.RoleSuperAdmin, tenantdomain.RoleAdmin))

	ops.GET("", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		letters, err := store.List(c.Request.Context(), c.Query("topic"), limit)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"dead_letters": letters})
	})
}
