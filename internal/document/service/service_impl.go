package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/document/domain"
	"github.com/campusworks/acadia/internal/eventbus"
	dbpkg "github.com/campusworks/acadia/pkg/db"
	"github.com/campusworks/acadia/pkg/db/pagination"
	"github.com/campusworks/acadia/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	repo      domain.Repository
	genID     *snowflake.Node
	publisher eventbus.Publisher
	log       *zap.Logger
}

func NewService(
	repo domain.Repository,
	genID *snowflake.Node,
	publisher eventbus.Publisher,
	log *zap.Logger,
) domain.Service {
	return &service{
		repo:      repo,
		genID:     genID,
		publisher: publisher,
		log:       log.Named("document.service"),
	}
}

// Create assigns the next revision for the document's version and persists
// the row. Two writers can race to the same revision; the unique index on
// (version, revision) catches the loser, which recomputes and retries once.
func (s *service) Create(ctx context.Context, req domain.CreateDocumentRequest) (*domain.Document, error) {
	claims, ok := tenantctx.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.ErrInvalidTitle
	}
	version := strings.TrimSpace(req.Version)
	if version == "" {
		return nil, domain.ErrInvalidVersion
	}
	createdBy, err := snowflake.ParseString(claims.UserID)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	doc, err := s.tryCreate(ctx, req, version, createdBy)
	if err == nil {
		s.emit(ctx, doc)
		return doc, nil
	}
	if !dbpkg.IsDuplicateKeyErr(err) {
		return nil, err
	}

	// Lost the race: re-read the max and retry once.
	doc, err = s.tryCreate(ctx, req, version, createdBy)
	if err == nil {
		s.emit(ctx, doc)
		return doc, nil
	}
	if dbpkg.IsDuplicateKeyErr(err) {
		return nil, domain.ErrRevisionConflict
	}
	return nil, err
}

func (s *service) tryCreate(ctx context.Context, req domain.CreateDocumentRequest, version string, createdBy snowflake.ID) (*domain.Document, error) {
	max, err := s.repo.MaxRevision(ctx, version)
	if err != nil {
		return nil, err
	}

	revision := max + 1
	if max == 0 && req.Revision > 0 {
		// First row of a version may carry the caller's revision, for
		// imports of existing document sets.
		revision = req.Revision
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:          s.genID.Generate(),
		Title:       strings.TrimSpace(req.Title),
		Category:    req.Category,
		Version:     version,
		Revision:    revision,
		Description: req.Description,
		FileURL:     req.FileURL,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *service) Get(ctx context.Context, id string) (*domain.Document, error) {
	docID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrDocumentNotFound
	}
	doc, err := s.repo.Get(ctx, docID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List pages newest-first on the snowflake id, which is time-ordered.
func (s *service) List(ctx context.Context, page pagination.Pagination) ([]domain.Document, *pagination.PageInfo, error) {
	var before snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, domain.ErrInvalidPageToken
		}
		before, err = snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, nil, domain.ErrInvalidPageToken
		}
	}

	limit := page.Limit()
	docs, err := s.repo.List(ctx, before, limit+1)
	if err != nil {
		return nil, nil, err
	}
	return pagination.BuildPage(docs, limit, func(d domain.Document) string {
		return d.ID.String()
	})
}

func (s *service) emit(ctx context.Context, doc *domain.Document) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventbus.TopicDocumentCreated, doc.Snapshot()); err != nil {
		s.log.Warn("event publish failed",
			zap.String("topic", eventbus.TopicDocumentCreated),
			zap.Error(err))
	}
}
