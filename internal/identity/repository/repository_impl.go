package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/identity/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, cred domain.Credential) error {
	return r.db.WithContext(ctx).Create(&cred).Error
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.WithContext(ctx).First(&cred, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.WithContext(ctx).First(&cred, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id snowflake.ID, hash string) error {
	return r.db.WithContext(ctx).Model(&domain.Credential{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) MarkVerified(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Model(&domain.Credential{}).
		Where("id = ?", id).
		Updates(map[string]any{"verified": true, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.Credential{}, "id = ?", id).Error
}
