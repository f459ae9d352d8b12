// Package projection maintains local replicas of registry-owned rows.
// Replicas are written only by event consumers, never by request handlers,
// and carry no foreign keys so events may arrive in any order.
package projection

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is the replicated institution row. The registry owns the truth;
// this copy converges via full-snapshot upserts.
type Tenant struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Domain    string       `gorm:"type:text;not null" json:"domain"`
	Email     string       `gorm:"type:text" json:"email"`
	Type      string       `gorm:"type:text" json:"type"`
	Timezone  string       `gorm:"type:text" json:"timezone"`
	Currency  string       `gorm:"type:text" json:"currency"`
	Status    string       `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants_replica" }

// User is the replicated user row. tenant_id is a plain column, not a
// foreign key: a user.created may land before its tenant.created.
type User struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email     string        `gorm:"type:text;not null;index" json:"email"`
	Role      string        `gorm:"type:text;not null" json:"role"`
	TenantID  *snowflake.ID `gorm:"column:tenant_id;index" json:"tenant_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (User) TableName() string { return "users_replica" }
