// Package domain contains the identity provider's persistence models and
// service contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Credential is the canonical identity record. Its id is the subject id that
// travels in tokens and on user.created events across every service.
type Credential struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email        string        `gorm:"type:text;not null;uniqueIndex:ux_credentials_email" json:"email"`
	PasswordHash string        `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         string        `gorm:"type:text;not null" json:"role"`
	TenantID     *snowflake.ID `gorm:"column:tenant_id;index" json:"tenant_id"`
	Verified     bool          `gorm:"not null;default:false" json:"verified"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Credential) TableName() string { return "credentials" }
