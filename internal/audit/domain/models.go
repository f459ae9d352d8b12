// Package domain contains the audit service's models and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Audit program lifecycle. Submit moves Draft forward, approval either
// activates the program or sends it back to Draft, and only an Active
// program can complete.
const (
	ProgramDraft           = "DRAFT"
	ProgramPendingApproval = "PENDING_APPROVAL"
	ProgramActive          = "ACTIVE"
	ProgramCompleted       = "COMPLETED"
)

type AuditProgram struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID        snowflake.ID  `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	Title           string        `gorm:"type:text;not null" json:"title"`
	Description     string        `gorm:"type:text" json:"description"`
	Year            int           `gorm:"not null" json:"year"`
	Status          string        `gorm:"type:text;not null" json:"status"`
	CreatedBy       snowflake.ID  `gorm:"column:created_by;not null" json:"created_by"`
	ApprovedBy      *snowflake.ID `gorm:"column:approved_by" json:"approved_by"`
	RejectionReason string        `gorm:"column:rejection_reason;type:text" json:"rejection_reason"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AuditProgram) TableName() string { return "audit_programs" }

// Audit is a single engagement under a program. Team members are stored as
// a JSON list of user ids; the users themselves live in the replica.
type Audit struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	ProgramID  snowflake.ID   `gorm:"column:program_id;not null;index" json:"program_id"`
	TenantID   snowflake.ID   `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	Title      string         `gorm:"type:text;not null" json:"title"`
	Scope      string         `gorm:"type:text" json:"scope"`
	Objectives datatypes.JSON `gorm:"type:jsonb" json:"objectives"`
	Methods    datatypes.JSON `gorm:"type:jsonb" json:"methods"`
	Criteria   datatypes.JSON `gorm:"type:jsonb" json:"criteria"`
	LeaderID   *snowflake.ID  `gorm:"column:leader_id" json:"leader_id"`
	Members    datatypes.JSON `gorm:"type:jsonb" json:"members"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Audit) TableName() string { return "audits" }
