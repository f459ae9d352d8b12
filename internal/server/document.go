package server

import (
	"net/http"

	documentdomain "github.com/campusworks/acadia/internal/document/domain"
	"github.com/campusworks/acadia/internal/identity/token"
	"github.com/campusworks/acadia/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type DocumentHandlers struct {
	svc documentdomain.Service
}

func NewDocumentHandlers(svc documentdomain.Service) *DocumentHandlers {
	return &DocumentHandlers{svc: svc}
}

func RegisterDocumentRoutes(r *gin.Engine, h *DocumentHandlers, verifier *token.Manager) {
	api := r.Group("/api/documents", RequireAuth(verifier))

	api.POST("", h.Create)
	api.GET("", h.List)
	api.GET("/:id", h.Get)
}

func (h *DocumentHandlers) Create(c *gin.Context) {
	var req documentdomain.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	doc, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandlers) List(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	docs, info, err := h.svc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "page_info": info})
}

func (h *DocumentHandlers) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
