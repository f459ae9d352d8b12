package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/tenant/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateTenant(ctx context.Context, tenant domain.Tenant) error {
	return r.db.WithContext(ctx).Create(&tenant).Error
}

func (r *repository) GetTenant(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *repository) UpdateTenant(ctx context.Context, tenant domain.Tenant) error {
	return r.db.WithContext(ctx).Save(&tenant).Error
}

func (r *repository) DeleteTenant(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.Tenant{}, "id = ?", id).Error
}

func (r *repository) MarkProvisioningState(ctx context.Context, id snowflake.ID, state string) error {
	return r.db.WithContext(ctx).Model(&domain.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{"provisioning_state": state, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) CreateUser(ctx context.Context, user domain.User) error {
	return r.db.WithContext(ctx).Create(&user).Error
}

func (r *repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) ListUsersByTenant(ctx context.Context, tenantID snowflake.ID) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) DeleteUsersByTenant(ctx context.Context, tenantID snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.User{}, "tenant_id = ?", tenantID).Error
}

func (r *repository) CreateDepartment(ctx context.Context, dept domain.Department) error {
	return r.db.WithContext(ctx).Create(&dept).Error
}

func (r *repository) DeleteDepartmentsByTenant(ctx context.Context, tenantID snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.Department{}, "tenant_id = ?", tenantID).Error
}

func (r *repository) ListDepartmentsByTenant(ctx context.Context, tenantID snowflake.ID) ([]domain.Department, error) {
	var depts []domain.Department
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at asc").Find(&depts).Error; err != nil {
		return nil, err
	}
	return depts, nil
}
