package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/audit/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) CreateProgram(ctx context.Context, program domain.AuditProgram) error {
	return r.db.WithContext(ctx).Create(&program).Error
}

func (r *repository) GetProgram(ctx context.Context, id snowflake.ID) (*domain.AuditProgram, error) {
	var program domain.AuditProgram
	if err := r.db.WithContext(ctx).First(&program, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *repository) ListPrograms(ctx context.Context, tenantID snowflake.ID) ([]domain.AuditProgram, error) {
	var programs []domain.AuditProgram
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Find(&programs).Error
	if err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *repository) UpdateProgram(ctx context.Context, program domain.AuditProgram) error {
	return r.db.WithContext(ctx).Save(&program).Error
}

func (r *repository) CreateAudit(ctx context.Context, audit domain.Audit) error {
	return r.db.WithContext(ctx).Create(&audit).Error
}

func (r *repository) GetAudit(ctx context.Context, id snowflake.ID) (*domain.Audit, error) {
	var audit domain.Audit
	if err := r.db.WithContext(ctx).First(&audit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &audit, nil
}

func (r *repository) ListAudits(ctx context.Context, programID snowflake.ID) ([]domain.Audit, error) {
	var audits []domain.Audit
	err := r.db.WithContext(ctx).
		Where("program_id = ?", programID).
		Order("created_at asc").
		Find(&audits).Error
	if err != nil {
		return nil, err
	}
	return audits, nil
}

func (r *repository) UpdateAudit(ctx context.Context, audit domain.Audit) error {
	return r.db.WithContext(ctx).Save(&audit).Error
}
