package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/document/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, doc domain.Document) error {
	return r.db.WithContext(ctx).Create(&doc).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) List(ctx context.Context, before snowflake.ID, limit int) ([]domain.Document, error) {
	stmt := r.db.WithContext(ctx).Order("id desc")
	if before != 0 {
		stmt = stmt.Where("id < ?", before)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var docs []domain.Document
	if err := stmt.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repository) MaxRevision(ctx context.Context, version string) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("version = ?", version).
		Select("MAX(revision)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
