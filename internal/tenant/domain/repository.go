package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTenant(ctx context.Context, tenant Tenant) error
	GetTenant(ctx context.Context, id snowflake.ID) (*Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)
	UpdateTenant(ctx context.Context, tenant Tenant) error
	DeleteTenant(ctx context.Context, id snowflake.ID) error
	MarkProvisioningState(ctx context.Context, id snowflake.ID, state string) error

	CreateUser(ctx context.Context, user User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsersByTenant(ctx context.Context, tenantID snowflake.ID) ([]User, error)
	DeleteUsersByTenant(ctx context.Context, tenantID snowflake.ID) error

	CreateDepartment(ctx context.Context, dept Department) error
	ListDepartmentsByTenant(ctx context.Context, tenantID snowflake.ID) ([]Department, error)
	DeleteDepartmentsByTenant(ctx context.Context, tenantID snowflake.ID) error
}
