package server

import (
	"net/http"

	"github.com/campusworks/acadia/internal/identity/token"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	"github.com/campusworks/acadia/pkg/tenantctx"
	"github.com/gin-gonic/gin"
)

type TenantHandlers struct {
	svc tenantdomain.Service
}

func NewTenantHandlers(svc tenantdomain.Service) *TenantHandlers {
	return &TenantHandlers{svc: svc}
}

// RegisterTenantRoutes mounts the tenant registry API. Creation and
// deletion are platform-level operations reserved for SUPER_ADMIN.
func RegisterTenantRoutes(r *gin.Engine, h *TenantHandlers, verifier *token.Manager) {
	api := r.Group("/api/tenants", RequireAuth(verifier))

	api.POST("", RequireRole(tenantdomain.RoleSuperAdmin), h.Create)
	api.GET("", RequireRole(tenantdomain.RoleSuperAdmin), h.List)
	api.GET("/:id", h.Get)
	api.PATCH("/:id/status", RequireRole(tenantdomain.RoleSuperAdmin), h.UpdateStatus)
	api.DELETE("/:id", RequireRole(tenantdomain.RoleSuperAdmin), h.Delete)
	api.POST("/:id/users", RequireRole(tenantdomain.RoleSuperAdmin, tenantdomain.RoleAdmin), h.AddUser)
	api.GET("/:id/departments", h.ListDepartments)
}

func (h *TenantHandlers) Create(c *gin.Context) {
	var req tenantdomain.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	claims, _ := tenantctx.FromContext(c.Request.Context())
	result, err := h.svc.CreateTenant(c.Request.Context(), claims.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *TenantHandlers) List(c *gin.Context) {
	tenants, err := h.svc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

func (h *TenantHandlers) Get(c *gin.Context) {
	tenant, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Non-platform callers only see their own tenant.
	claims, _ := tenantctx.FromContext(c.Request.Context())
	if claims.Role != tenantdomain.RoleSuperAdmin && claims.TenantID != tenant.ID.String() {
		AbortWithError(c, ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *TenantHandlers) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenant, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandlers) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TenantHandlers) AddUser(c *gin.Context) {
	var req tenantdomain.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenantID := c.Param("id")
	claims, _ := tenantctx.FromContext(c.Request.Context())
	if claims.Role != tenantdomain.RoleSuperAdmin && claims.TenantID != tenantID {
		AbortWithError(c, ErrForbidden)
		return
	}

	user, err := h.svc.AddUser(c.Request.Context(), tenantID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *TenantHandlers) ListDepartments(c *gin.Context) {
	tenantID := c.Param("id")
	claims, _ := tenantctx.FromContext(c.Request.Context())
	if claims.Role != tenantdomain.RoleSuperAdmin && claims.TenantID != tenantID {
		AbortWithError(c, ErrForbidden)
		return
	}

	departments, err := h.svc.ListDepartments(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": departments})
}
