package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/document/domain"
	"github.com/campusworks/acadia/internal/document/repository"
	"github.com/campusworks/acadia/internal/eventbus"
	dbpkg "github.com/campusworks/acadia/pkg/db"
	"github.com/campusworks/acadia/pkg/db/pagination"
	"github.com/campusworks/acadia/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

// conflictRepo injects duplicate-key failures on Create to exercise the
// retry path without real concurrent writers.
type conflictRepo struct {
	domain.Repository
	mu        sync.Mutex
	conflicts int
}

func (c *conflictRepo) Create(ctx context.Context, doc domain.Document) error {
	c.mu.Lock()
	inject := c.conflicts > 0
	if inject {
		c.conflicts--
	}
	c.mu.Unlock()
	if inject {
		return gorm.ErrDuplicatedKey
	}
	return c.Repository.Create(ctx, doc)
}

type testEnv struct {
	svc       domain.Service
	repo      *conflictRepo
	publisher *fakePublisher
	node      *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Document{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	repo := &conflictRepo{Repository: repository.NewRepository(db)}
	publisher := &fakePublisher{}
	svc := NewService(repo, node, publisher, zap.NewNop())
	return &testEnv{svc: svc, repo: repo, publisher: publisher, node: node}
}

func (env *testEnv) ctx() context.Context {
	return tenantctx.WithClaims(context.Background(), tenantctx.Claims{
		UserID: env.node.Generate().String(),
		Role:   "STAFF",
	})
}

func createReq(version string) domain.CreateDocumentRequest {
	return domain.CreateDocumentRequest{
		Title:   "Quality Manual",
		Version: version,
		FileURL: "https://files.example/qm.pdf",
	}
}

func TestRevisionsIncreasePerVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx()

	for want := 1; want <= 3; want++ {
		doc, err := env.svc.Create(ctx, createReq("v1"))
		require.NoError(t, err)
		assert.Equal(t, want, doc.Revision)
	}

	// A different version starts over.
	doc, err := env.svc.Create(ctx, createReq("v2"))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Revision)
}

func TestFirstRowHonorsCallerRevision(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx()

	req := createReq("v1")
	req.Revision = 5
	doc, err := env.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 5, doc.Revision)

	// Later rows ignore the caller's value.
	req.Revision = 2
	doc, err = env.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 6, doc.Revision)
}

func TestCreateRetriesOnceOnConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx()

	_, err := env.svc.Create(ctx, createReq("v1"))
	require.NoError(t, err)

	env.repo.conflicts = 1
	doc, err := env.svc.Create(ctx, createReq("v1"))
	require.NoError(t, err, "one lost race must be retried")
	assert.Equal(t, 2, doc.Revision)
}

func TestCreateSecondConflictSurfaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx()

	env.repo.conflicts = 2
	_, err := env.svc.Create(ctx, createReq("v1"))
	require.ErrorIs(t, err, domain.ErrRevisionConflict)
}

func TestCreatePublishesSnapshot(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx(), createReq("v1"))
	require.NoError(t, err)
	assert.Equal(t, []string{eventbus.TopicDocumentCreated}, env.publisher.topics)
}

func TestCreateRequiresClaims(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), createReq("v1"))
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestConcurrentCreatesStayMonotonic(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx()

	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Create(ctx, createReq("v1"))
		}(i)
	}
	wg.Wait()

	// Losers either retried into a fresh revision or surfaced a conflict;
	// what matters is that no revision was assigned twice.
	revisions := map[int]bool{}
	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		}
	}

	docs, _, err := env.svc.List(ctx, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, docs, created)
	for _, doc := range docs {
		require.False(t, revisions[doc.Revision], "revision %d assigned twice", doc.Revision)
		revisions[doc.Revision] = true
	}
}

func TestListPagesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx()

	for i := 0; i < 5; i++ {
		_, err := env.svc.Create(ctx, createReq("v1"))
		require.NoError(t, err)
	}

	first, info, err := env.svc.List(ctx, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.True(t, info.HasMore)
	assert.Equal(t, 5, first[0].Revision, "newest row comes first")

	second, info, err := env.svc.List(ctx, pagination.Pagination{PageSize: 2, PageToken: info.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.True(t, info.HasMore)
	assert.Equal(t, 3, second[0].Revision)

	last, info, err := env.svc.List(ctx, pagination.Pagination{PageSize: 2, PageToken: info.NextPageToken})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestListRejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.List(env.ctx(), pagination.Pagination{PageToken: "not-a-cursor"})
	require.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
