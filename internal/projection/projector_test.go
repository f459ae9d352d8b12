package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	dbpkg "github.com/campusworks/acadia/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProjector(t *testing.T, roles []string) *Projector {
	t.Helper()

	db, err := dbpkg.NewTest()
	require.NoError(t, err)

	p := NewProjector(db, zap.NewNop(), roles)
	require.NoError(t, p.Migrate())
	return p
}

func tenantPayload(t *testing.T, id, domain, status string) []byte {
	t.Helper()
	now := time.Now().UTC()
	raw, err := json.Marshal(tenantdomain.TenantSnapshot{
		ID:        id,
		Name:      "Example University",
		Domain:    domain,
		Email:     "info@" + domain,
		Type:      "UNIVERSITY",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return raw
}

func userPayload(t *testing.T, id, email, role, tenantID string) []byte {
	t.Helper()
	raw, err := json.Marshal(tenantdomain.UserSnapshot{
		ID:        id,
		Email:     email,
		Role:      role,
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return raw
}

func TestUpsertTenantReplayConverges(t *testing.T) {
	p := newTestProjector(t, nil)
	ctx := context.Background()

	payload := tenantPayload(t, "1001", "x.edu", "PENDING")
	require.NoError(t, p.UpsertTenant(ctx, nil, payload))
	require.NoError(t, p.UpsertTenant(ctx, nil, payload))

	var rows []Tenant
	require.NoError(t, p.db.Find(&rows).Error)
	require.Len(t, rows, 1, "replaying the same snapshot must not duplicate")
	assert.Equal(t, "x.edu", rows[0].Domain)
}

func TestUpsertTenantLaterSnapshotWins(t *testing.T) {
	p := newTestProjector(t, nil)
	ctx := context.Background()

	require.NoError(t, p.UpsertTenant(ctx, nil, tenantPayload(t, "1001", "x.edu", "PENDING")))
	require.NoError(t, p.UpsertTenant(ctx, nil, tenantPayload(t, "1001", "x.edu", "ACTIVE")))

	var row Tenant
	require.NoError(t, p.db.First(&row).Error)
	assert.Equal(t, "ACTIVE", row.Status)
}

func TestUpsertUserBeforeTenant(t *testing.T) {
	p := newTestProjector(t, nil)
	ctx := context.Background()

	// user.created lands first; no foreign key blocks it.
	require.NoError(t, p.UpsertUser(ctx, nil, userPayload(t, "2001", "a@x.edu", "ADMIN", "1001")))
	require.NoError(t, p.UpsertTenant(ctx, nil, tenantPayload(t, "1001", "x.edu", "PENDING")))

	var user User
	require.NoError(t, p.db.First(&user).Error)
	require.NotNil(t, user.TenantID)
	assert.Equal(t, "1001", user.TenantID.String())
}

func TestUpsertUserRolePredicate(t *testing.T) {
	p := newTestProjector(t, []string{"ADMIN", "AUDITOR_GENERAL", "AUDITOR"})
	ctx := context.Background()

	require.NoError(t, p.UpsertUser(ctx, nil, userPayload(t, "2001", "auditor@x.edu", "AUDITOR", "1001")))
	require.NoError(t, p.UpsertUser(ctx, nil, userPayload(t, "2002", "student@x.edu", "STUDENT", "1001")))

	var rows []User
	require.NoError(t, p.db.Find(&rows).Error)
	require.Len(t, rows, 1, "roles outside the predicate are skipped")
	assert.Equal(t, "auditor@x.edu", rows[0].Email)
}

func TestMalformedPayloadErrors(t *testing.T) {
	p := newTestProjector(t, nil)
	ctx := context.Background()

	require.Error(t, p.UpsertTenant(ctx, nil, []byte("{not json")))
	require.Error(t, p.UpsertUser(ctx, nil, []byte(`{"id":"not-a-number"}`)))
}

func TestDeleteTenantRemovesUsers(t *testing.T) {
	p := newTestProjector(t, nil)
	ctx := context.Background()

	payload := tenantPayload(t, "1001", "x.edu", "ACTIVE")
	require.NoError(t, p.UpsertTenant(ctx, nil, payload))
	require.NoError(t, p.UpsertUser(ctx, nil, userPayload(t, "2001", "a@x.edu", "ADMIN", "1001")))

	require.NoError(t, p.DeleteTenant(ctx, nil, payload))

	var tenants, users int64
	require.NoError(t, p.db.Model(&Tenant{}).Count(&tenants).Error)
	require.NoError(t, p.db.Model(&User{}).Count(&users).Error)
	assert.Zero(t, tenants)
	assert.Zero(t, users)
}

func TestTenantExists(t *testing.T) {
	p := newTestProjector(t, nil)
	ctx := context.Background()

	require.NoError(t, p.UpsertTenant(ctx, nil, tenantPayload(t, "1001", "x.edu", "ACTIVE")))

	ok, err := p.TenantExists(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.TenantExists(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)
}
