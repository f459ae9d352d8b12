package server

import (
	"net/http"

	auditdomain "github.com/campusworks/acadia/internal/audit/domain"
	"github.com/campusworks/acadia/internal/identity/token"
	"github.com/gin-gonic/gin"
)

type AuditHandlers struct {
	svc auditdomain.Service
}

func NewAuditHandlers(svc auditdomain.Service) *AuditHandlers {
	return &AuditHandlers{svc: svc}
}

// RegisterAuditRoutes mounts the audit program API. Role checks live in the
// service so the state machine and its guards stay in one place.
func RegisterAuditRoutes(r *gin.Engine, h *AuditHandlers, verifier *token.Manager) {
	api := r.Group("/api/audit-programs", RequireAuth(verifier))

	api.POST("", h.CreateProgram)
	api.GET("", h.ListPrograms)
	api.GET("/:id", h.GetProgram)
	api.POST("/:id/submit", h.Submit)
	api.POST("/:id/approve", h.Approve)
	api.POST("/:id/reject", h.Reject)
	api.POST("/:id/complete", h.Complete)
	api.POST("/:id/audits", h.CreateAudit)
	api.GET("/:id/audits", h.ListAudits)

	r.PUT("/api/audits/:id/team", RequireAuth(verifier), h.AssignTeam)
}

func (h *AuditHandlers) CreateProgram(c *gin.Context) {
	var req auditdomain.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	program, err := h.svc.CreateProgram(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, program)
}

func (h *AuditHandlers) ListPrograms(c *gin.Context) {
	programs, err := h.svc.ListPrograms(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": programs})
}

func (h *AuditHandlers) GetProgram(c *gin.Context) {
	program, err := h.svc.GetProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *AuditHandlers) Submit(c *gin.Context) {
	program, err := h.svc.SubmitProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *AuditHandlers) Approve(c *gin.Context) {
	program, err := h.svc.ApproveProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *AuditHandlers) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	program, err := h.svc.RejectProgram(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *AuditHandlers) Complete(c *gin.Context) {
	program, err := h.svc.CompleteProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *AuditHandlers) CreateAudit(c *gin.Context) {
	var req auditdomain.CreateAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ProgramID = c.Param("id")

	audit, err := h.svc.CreateAudit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, audit)
}

func (h *AuditHandlers) ListAudits(c *gin.Context) {
	audits, err := h.svc.ListAudits(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": audits})
}

func (h *AuditHandlers) AssignTeam(c *gin.Context) {
	var req auditdomain.AssignTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	audit, err := h.svc.AssignTeam(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}
