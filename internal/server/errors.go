package server

import (
	"errors"
	"net/http"

	auditdomain "github.com/campusworks/acadia/internal/audit/domain"
	documentdomain "github.com/campusworks/acadia/internal/document/domain"
	identitydomain "github.com/campusworks/acadia/internal/identity/domain"
	"github.com/campusworks/acadia/internal/identity/token"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware renders the last handler error after the chain
// finishes. Handlers push domain errors with AbortWithError and never write
// error statuses themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrExpiredToken),
		errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrNotVerified),
		errors.Is(err, identitydomain.ErrInvalidOTP),
		errors.Is(err, identitydomain.ErrInvalidRefresh),
		errors.Is(err, identitydomain.ErrInvalidReset),
		errors.Is(err, auditdomain.ErrUnauthenticated),
		errors.Is(err, documentdomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}

	case errors.Is(err, ErrForbidden),
		errors.Is(err, auditdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}

	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}

	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}

	case errors.Is(err, identitydomain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_attempts",
			Message: "too many attempts, retry later",
		}

	case errors.Is(err, tenantdomain.ErrPartialFailure):
		// Escalated on purpose: an operator has to reconcile the orphan.
		return http.StatusInternalServerError, errorPayload{
			Type:    "partial_failure",
			Message: "provisioning compensation failed, manual intervention required",
		}

	case errors.Is(err, tenantdomain.ErrProvisioningFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "provisioning_failed",
			Message: "tenant provisioning failed and was rolled back",
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, tenantdomain.ErrInvalidDomain),
		errors.Is(err, tenantdomain.ErrInvalidStatus),
		errors.Is(err, tenantdomain.ErrInvalidRole),
		errors.Is(err, tenantdomain.ErrInvalidEmail),
		errors.Is(err, tenantdomain.ErrMissingRoles),
		errors.Is(err, tenantdomain.ErrDuplicateEmail),
		errors.Is(err, tenantdomain.ErrDuplicateCode),
		errors.Is(err, tenantdomain.ErrUnknownHead),
		errors.Is(err, tenantdomain.ErrInvalidTenant),
		errors.Is(err, identitydomain.ErrWeakPassword),
		errors.Is(err, identitydomain.ErrInvalidEmail),
		errors.Is(err, identitydomain.ErrInvalidRole),
		errors.Is(err, identitydomain.ErrUnknownTenant),
		errors.Is(err, auditdomain.ErrInvalidTitle),
		errors.Is(err, auditdomain.ErrInvalidProgram),
		errors.Is(err, auditdomain.ErrUnknownMember),
		errors.Is(err, documentdomain.ErrInvalidTitle),
		errors.Is(err, documentdomain.ErrInvalidVersion),
		errors.Is(err, documentdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, tenantdomain.ErrTenantNotFound),
		errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, auditdomain.ErrProgramNotFound),
		errors.Is(err, auditdomain.ErrAuditNotFound),
		errors.Is(err, documentdomain.ErrDocumentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrDomainTaken),
		errors.Is(err, tenantdomain.ErrEmailTaken),
		errors.Is(err, identitydomain.ErrEmailTaken),
		errors.Is(err, auditdomain.ErrInvalidTransition),
		errors.Is(err, auditdomain.ErrProgramNotActive),
		errors.Is(err, documentdomain.ErrRevisionConflict),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger's error_type/error_code
// fields.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "server_error", payload.Type
	case status >= 400:
		return "client_error", payload.Type
	default:
		return "", ""
	}
}
