// Package domain contains the document service's models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/pkg/db/pagination"
)

// Document is a versioned artifact. Revisions within one version are
// strictly increasing; the (version, revision) pair is unique at the
// storage layer so concurrent writers cannot mint duplicates.
type Document struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Category    string       `gorm:"type:text" json:"category"`
	Version     string       `gorm:"type:text;not null;uniqueIndex:ux_documents_version_revision,priority:1" json:"version"`
	Revision    int          `gorm:"not null;uniqueIndex:ux_documents_version_revision,priority:2" json:"revision"`
	Description string       `gorm:"type:text" json:"description"`
	FileURL     string       `gorm:"column:file_url;type:text" json:"file_url"`
	CreatedBy   snowflake.ID `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

// DocumentSnapshot is the full-row payload on document.created.
type DocumentSnapshot struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category,omitempty"`
	Version     string    `json:"version"`
	Revision    int       `json:"revision"`
	Description string    `json:"description,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (d Document) Snapshot() DocumentSnapshot {
	return DocumentSnapshot{
		ID:          d.ID.String(),
		Title:       d.Title,
		Category:    d.Category,
		Version:     d.Version,
		Revision:    d.Revision,
		Description: d.Description,
		FileURL:     d.FileURL,
		CreatedBy:   d.CreatedBy.String(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type CreateDocumentRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Version     string `json:"version"`
	Revision    int    `json:"revision"` // honored only for the first row of a version
	Description string `json:"description"`
	FileURL     string `json:"fileUrl"`
}

type Service interface {
	Create(ctx context.Context, req CreateDocumentRequest) (*Document, error)
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, page pagination.Pagination) ([]Document, *pagination.PageInfo, error)
}

type Repository interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, id snowflake.ID) (*Document, error)
	// List returns up to limit documents with id below before (0 means from
	// the newest), ordered newest first.
	List(ctx context.Context, before snowflake.ID, limit int) ([]Document, error)
	// MaxRevision returns the highest revision for version, 0 when none.
	MaxRevision(ctx context.Context, version string) (int, error)
}

var (
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidVersion   = errors.New("invalid_version")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrDocumentNotFound = errors.New("document_not_found")
	ErrRevisionConflict = errors.New("revision_conflict")
	ErrUnauthenticated  = errors.New("unauthenticated")
)
