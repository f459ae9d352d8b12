package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SagaOutcome classifies how a tenant-creation attempt ended. A compensated
// failure left no rows behind; a partial failure left an orphaned tenant that
// needs operator attention.
type SagaOutcome string

const (
	OutcomeOK                 SagaOutcome = "ok"
	OutcomeCompensatedFailure SagaOutcome = "compensated_failure"
	OutcomePartialFailure     SagaOutcome = "partial_failure"
)

type Service interface {
	CreateTenant(ctx context.Context, createdBy string, req CreateTenantRequest) (*CreateTenantResult, error)
	GetByID(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	UpdateStatus(ctx context.Context, id string, status string) (*Tenant, error)
	Delete(ctx context.Context, id string) error
	AddUser(ctx context.Context, tenantID string, req NewUser) (*User, error)
	ListDepartments(ctx context.Context, tenantID string) ([]Department, error)
}

// IdentityRegistrar is the identity provider's provisioning contract: it
// issues the subject id and credentials for a new user. Calls are idempotent
// per email so a retried saga step is safe.
type IdentityRegistrar interface {
	RegisterUser(ctx context.Context, req RegisterIdentityRequest) (snowflake.ID, error)
}

type RegisterIdentityRequest struct {
	Email    string
	Role     string
	TenantID snowflake.ID
}

type NewUser struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type NewDepartment struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	HODEmail string `json:"hodEmail"`
}

type CreateTenantRequest struct {
	Name                string          `json:"name"`
	Domain              string          `json:"domain"`
	LogoURL             string          `json:"logoUrl"`
	Address             string          `json:"address"`
	City                string          `json:"city"`
	Country             string          `json:"country"`
	Phone               string          `json:"phone"`
	Email               string          `json:"email"`
	Type                string          `json:"type"`
	AccreditationNumber string          `json:"accreditationNumber"`
	EstablishedYear     int             `json:"establishedYear"`
	Timezone            string          `json:"timezone"`
	Currency            string          `json:"currency"`
	Status              string          `json:"status"`
	Users               []NewUser       `json:"users"`
	Departments         []NewDepartment `json:"departments"`
}

type CreateTenantResult struct {
	Outcome     SagaOutcome  `json:"outcome"`
	Tenant      Tenant       `json:"tenant"`
	Users       []User       `json:"users"`
	Departments []Department `json:"departments"`
	CreatedAt   time.Time    `json:"created_at"`
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidDomain  = errors.New("invalid_domain")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrMissingRoles   = errors.New("missing_required_roles")
	ErrDuplicateEmail = errors.New("duplicate_email")
	ErrDuplicateCode  = errors.New("duplicate_department_code")
	ErrUnknownHead    = errors.New("unknown_department_head")
	ErrInvalidTenant  = errors.New("invalid_tenant")
	ErrTenantNotFound = errors.New("tenant_not_found")
	ErrDomainTaken    = errors.New("domain_taken")
	ErrEmailTaken     = errors.New("email_taken")

	// ErrProvisioningFailed wraps a downstream identity-provider failure
	// after a successful compensation: no rows survive.
	ErrProvisioningFailed = errors.New("provisioning_failed")

	// ErrPartialFailure means compensation itself failed and an orphaned
	// tenant remains. It must escalate, never be absorbed.
	ErrPartialFailure = errors.New("partial_failure")
)
