package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/campusworks/acadia/internal/identity/domain"
	"github.com/campusworks/acadia/internal/identity/token"
	"github.com/campusworks/acadia/pkg/tenantctx"
	"github.com/gin-gonic/gin"
)

type AuthHandlers struct {
	svc identitydomain.Service
}

func NewAuthHandlers(svc identitydomain.Service) *AuthHandlers {
	return &AuthHandlers{svc: svc}
}

// RegisterAuthRoutes mounts the public auth API plus the internal registrar
// endpoint the tenant saga calls. The internal route is expected to be
// reachable only inside the cluster.
func RegisterAuthRoutes(r *gin.Engine, h *AuthHandlers, verifier *token.Manager) {
	api := r.Group("/api/auth")
	api.POST("/register", h.Register)
	api.POST("/verify-otp", h.VerifyOTP)
	api.POST("/resend-otp", h.ResendOTP)
	api.POST("/login", h.Login)
	api.POST("/refresh", h.Refresh)
	api.POST("/logout", h.Logout)
	api.POST("/forgot-password", h.ForgotPassword)
	api.POST("/reset-password", h.ResetPassword)
	api.DELETE("/account", RequireAuth(verifier), h.DeleteAccount)

	r.POST("/internal/users", h.Provision)
}

func (h *AuthHandlers) Register(c *gin.Context) {
	var req identitydomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cred, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":    cred.ID.String(),
		"email": cred.Email,
	})
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := h.svc.VerifyOTP(c.Request.Context(), req.Email, req.Code); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

func (h *AuthHandlers) ResendOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := h.svc.ResendOTP(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var req identitydomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ClientIP = c.ClientIP()

	pair, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}
	// Always 200: the endpoint must not reveal whether the email exists.
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (h *AuthHandlers) DeleteAccount(c *gin.Context) {
	claims, ok := tenantctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	userID, err := snowflake.ParseString(claims.UserID)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if err := h.svc.DeleteAccount(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandlers) Provision(c *gin.Context) {
	var req identitydomain.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	id, err := h.svc.Provision(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.String()})
}
