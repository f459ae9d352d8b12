// Package domain contains persistence models for the tenant registry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant statuses. Transitions originate only at the registry; replicas
// apply them via upsert.
const (
	StatusPending   = "PENDING"
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
	StatusInactive  = "INACTIVE"
)

// Provisioning states recorded on the tenant row by the creation saga.
const (
	ProvisioningComplete       = "COMPLETE"
	ProvisioningPartialFailure = "PARTIAL_FAILURE"
)

// Roles carried in credentials and replicated projections.
const (
	RoleSuperAdmin     = "SUPER_ADMIN"
	RoleAdmin          = "ADMIN"
	RoleRegistrar      = "REGISTRAR"
	RoleStaff          = "STAFF"
	RoleHOD            = "HOD"
	RoleLecturer       = "LECTURER"
	RoleStudent        = "STUDENT"
	RoleAuditorGeneral = "AUDITOR_GENERAL"
	RoleAuditor        = "AUDITOR"
)

// Tenant represents an institution. The registry is the source of truth;
// every other service holds at most a projection.
type Tenant struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                string       `gorm:"type:text;not null" json:"name"`
	Domain              string       `gorm:"type:text;not null;uniqueIndex:ux_tenants_domain" json:"domain"`
	Slug                string       `gorm:"type:text;not null" json:"slug"`
	LogoURL             string       `gorm:"column:logo_url;type:text" json:"logo_url"`
	Address             string       `gorm:"type:text" json:"address"`
	City                string       `gorm:"type:text" json:"city"`
	Country             string       `gorm:"type:text" json:"country"`
	Phone               string       `gorm:"type:text" json:"phone"`
	Email               string       `gorm:"type:text" json:"email"`
	Type                string       `gorm:"type:text" json:"type"`
	AccreditationNumber string       `gorm:"column:accreditation_number;type:text" json:"accreditation_number"`
	EstablishedYear     int          `gorm:"column:established_year" json:"established_year"`
	Timezone            string       `gorm:"type:text" json:"timezone"`
	Currency            string       `gorm:"type:text" json:"currency"`
	Status              string       `gorm:"type:text;not null" json:"status"`
	ProvisioningState   string       `gorm:"column:provisioning_state;type:text;not null" json:"provisioning_state"`
	CreatedBy           string       `gorm:"column:created_by;type:text" json:"created_by"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// User is the canonical user record. Credentials live with the identity
// provider; the registry references the identity id it issued.
type User struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email     string        `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	Role      string        `gorm:"type:text;not null" json:"role"`
	TenantID  *snowflake.ID `gorm:"column:tenant_id;index" json:"tenant_id"`
	Verified  bool          `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Department belongs to one tenant and is headed by one of its users.
type Department struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:ux_departments_tenant_code,priority:2" json:"code"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;index;uniqueIndex:ux_departments_tenant_code,priority:1" json:"tenant_id"`
	HeadID    snowflake.ID `gorm:"column:head_id;not null" json:"head_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Department) TableName() string { return "departments" }
