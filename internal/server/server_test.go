package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/identity/token"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenantService struct {
	createFn func(ctx context.Context, createdBy string, req tenantdomain.CreateTenantRequest) (*tenantdomain.CreateTenantResult, error)
	getFn    func(ctx context.Context, id string) (*tenantdomain.Tenant, error)
}

func (f *fakeTenantService) CreateTenant(ctx context.Context, createdBy string, req tenantdomain.CreateTenantRequest) (*tenantdomain.CreateTenantResult, error) {
	return f.createFn(ctx, createdBy, req)
}

func (f *fakeTenantService) GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error) {
	return f.getFn(ctx, id)
}

func (f *fakeTenantService) List(ctx context.Context) ([]tenantdomain.Tenant, error) {
	return nil, nil
}

func (f *fakeTenantService) UpdateStatus(ctx context.Context, id, status string) (*tenantdomain.Tenant, error) {
	return nil, tenantdomain.ErrTenantNotFound
}

func (f *fakeTenantService) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeTenantService) AddUser(ctx context.Context, tenantID string, req tenantdomain.NewUser) (*tenantdomain.User, error) {
	return nil, tenantdomain.ErrTenantNotFound
}

func (f *fakeTenantService) ListDepartments(ctx context.Context, tenantID string) ([]tenantdomain.Department, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, svc tenantdomain.Service) (*gin.Engine, *token.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	verifier := token.NewManager("test-secret", 15*time.Minute)
	RegisterTenantRoutes(r, NewTenantHandlers(svc), verifier)
	return r, verifier
}

func tokenFor(t *testing.T, mgr *token.Manager, role string, tenantID *snowflake.ID) string {
	t.Helper()
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	raw, err := mgr.Issue(node.Generate(), role, tenantID)
	require.NoError(t, err)
	return raw
}

func doJSON(r *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorType(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Type
}

func fullOnboardingRequest() tenantdomain.CreateTenantRequest {
	roles := []string{
		tenantdomain.RoleSuperAdmin, tenantdomain.RoleAdmin,
		tenantdomain.RoleRegistrar, tenantdomain.RoleStaff,
		tenantdomain.RoleHOD, tenantdomain.RoleLecturer,
		tenantdomain.RoleStudent, tenantdomain.RoleAuditorGeneral,
		tenantdomain.RoleAuditor,
	}
	users := make([]tenantdomain.NewUser, 0, 11)
	for i, role := range roles {
		users = append(users, tenantdomain.NewUser{
			Email: fmt.Sprintf("user%d@x.edu", i),
			Role:  role,
		})
	}
	users = append(users,
		tenantdomain.NewUser{Email: "extra1@x.edu", Role: tenantdomain.RoleLecturer},
		tenantdomain.NewUser{Email: "extra2@x.edu", Role: tenantdomain.RoleStudent},
	)
	return tenantdomain.CreateTenantRequest{
		Name:   "X",
		Domain: "x.edu",
		Status: tenantdomain.StatusPending,
		Users:  users,
		Departments: []tenantdomain.NewDepartment{
			{Name: "Computer Science", HODEmail: "user4@x.edu"},
		},
	}
}

func TestCreateTenantReturnsCreated(t *testing.T) {
	var gotCreatedBy string
	svc := &fakeTenantService{
		createFn: func(_ context.Context, createdBy string, req tenantdomain.CreateTenantRequest) (*tenantdomain.CreateTenantResult, error) {
			gotCreatedBy = createdBy
			node, _ := snowflake.NewNode(1)
			return &tenantdomain.CreateTenantResult{
				Outcome: tenantdomain.OutcomeOK,
				Tenant: tenantdomain.Tenant{
					ID:     node.Generate(),
					Name:   req.Name,
					Domain: req.Domain,
					Status: tenantdomain.StatusPending,
				},
				CreatedAt: time.Now().UTC(),
			}, nil
		},
	}
	r, mgr := newTestRouter(t, svc)

	bearer := tokenFor(t, mgr, tenantdomain.RoleSuperAdmin, nil)
	w := doJSON(r, http.MethodPost, "/api/tenants", bearer, fullOnboardingRequest())

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, gotCreatedBy)

	var result tenantdomain.CreateTenantResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, tenantdomain.OutcomeOK, result.Outcome)
	assert.Equal(t, "x.edu", result.Tenant.Domain)
}

func TestCreateTenantRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t, &fakeTenantService{})

	w := doJSON(r, http.MethodPost, "/api/tenants", "", fullOnboardingRequest())

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorType(t, w))
}

func TestCreateTenantRejectsGarbageToken(t *testing.T) {
	r, _ := newTestRouter(t, &fakeTenantService{})

	w := doJSON(r, http.MethodPost, "/api/tenants", "not-a-jwt", fullOnboardingRequest())

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorType(t, w))
}

func TestCreateTenantForbiddenForTenantAdmin(t *testing.T) {
	r, mgr := newTestRouter(t, &fakeTenantService{})

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	tenantID := node.Generate()
	bearer := tokenFor(t, mgr, tenantdomain.RoleAdmin, &tenantID)
	w := doJSON(r, http.MethodPost, "/api/tenants", bearer, fullOnboardingRequest())

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorType(t, w))
}

func TestCreateTenantMapsValidationErrors(t *testing.T) {
	svc := &fakeTenantService{
		createFn: func(context.Context, string, tenantdomain.CreateTenantRequest) (*tenantdomain.CreateTenantResult, error) {
			return nil, fmt.Errorf("%w: REGISTRAR", tenantdomain.ErrMissingRoles)
		},
	}
	r, mgr := newTestRouter(t, svc)

	bearer := tokenFor(t, mgr, tenantdomain.RoleSuperAdmin, nil)
	w := doJSON(r, http.MethodPost, "/api/tenants", bearer, fullOnboardingRequest())

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorType(t, w))
}

func TestCreateTenantMapsDomainTakenToConflict(t *testing.T) {
	svc := &fakeTenantService{
		createFn: func(context.Context, string, tenantdomain.CreateTenantRequest) (*tenantdomain.CreateTenantResult, error) {
			return nil, tenantdomain.ErrDomainTaken
		},
	}
	r, mgr := newTestRouter(t, svc)

	bearer := tokenFor(t, mgr, tenantdomain.RoleSuperAdmin, nil)
	w := doJSON(r, http.MethodPost, "/api/tenants", bearer, fullOnboardingRequest())

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", errorType(t, w))
}

func TestCreateTenantMapsPartialFailure(t *testing.T) {
	svc := &fakeTenantService{
		createFn: func(context.Context, string, tenantdomain.CreateTenantRequest) (*tenantdomain.CreateTenantResult, error) {
			return nil, fmt.Errorf("%w: identity provider down (compensation: delete failed)", tenantdomain.ErrPartialFailure)
		},
	}
	r, mgr := newTestRouter(t, svc)

	bearer := tokenFor(t, mgr, tenantdomain.RoleSuperAdmin, nil)
	w := doJSON(r, http.MethodPost, "/api/tenants", bearer, fullOnboardingRequest())

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "partial_failure", errorType(t, w))
}

func TestCreateTenantMapsCompensatedFailureToBadGateway(t *testing.T) {
	svc := &fakeTenantService{
		createFn: func(context.Context, string, tenantdomain.CreateTenantRequest) (*tenantdomain.CreateTenantResult, error) {
			return nil, fmt.Errorf("%w: identity provider down", tenantdomain.ErrProvisioningFailed)
		},
	}
	r, mgr := newTestRouter(t, svc)

	bearer := tokenFor(t, mgr, tenantdomain.RoleSuperAdmin, nil)
	w := doJSON(r, http.MethodPost, "/api/tenants", bearer, fullOnboardingRequest())

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "provisioning_failed", errorType(t, w))
}

func TestGetTenantHidesNothingCrossTenant(t *testing.T) {
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	owned := node.Generate()
	other := node.Generate()

	svc := &fakeTenantService{
		getFn: func(_ context.Context, id string) (*tenantdomain.Tenant, error) {
			return &tenantdomain.Tenant{ID: other, Name: "Other U", Domain: "other.edu"}, nil
		},
	}
	r, mgr := newTestRouter(t, svc)

	bearer := tokenFor(t, mgr, tenantdomain.RoleAdmin, &owned)
	w := doJSON(r, http.MethodGet, "/api/tenants/"+other.String(), bearer, nil)

	// Cross-tenant reads fail loudly with 403, not a masking 404.
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorType(t, w))
}

func TestGetTenantOwnTenantAllowed(t *testing.T) {
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	owned := node.Generate()

	svc := &fakeTenantService{
		getFn: func(_ context.Context, id string) (*tenantdomain.Tenant, error) {
			return &tenantdomain.Tenant{ID: owned, Name: "X", Domain: "x.edu"}, nil
		},
	}
	r, mgr := newTestRouter(t, svc)

	bearer := tokenFor(t, mgr, tenantdomain.RoleAdmin, &owned)
	w := doJSON(r, http.MethodGet, "/api/tenants/"+owned.String(), bearer, nil)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetTenantUnknownIsNotFound(t *testing.T) {
	svc := &fakeTenantService{
		getFn: func(context.Context, string) (*tenantdomain.Tenant, error) {
			return nil, tenantdomain.ErrTenantNotFound
		},
	}
	r, mgr := newTestRouter(t, svc)

	bearer := tokenFor(t, mgr, tenantdomain.RoleSuperAdmin, nil)
	w := doJSON(r, http.MethodGet, "/api/tenants/123", bearer, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorType(t, w))
}

func TestForeignSecretTokenRejected(t *testing.T) {
	r, _ := newTestRouter(t, &fakeTenantService{})

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	forged, err := token.NewManager("some-other-secret", time.Minute).
		Issue(node.Generate(), tenantdomain.RoleSuperAdmin, nil)
	require.NoError(t, err)

	w := doJSON(r, http.MethodPost, "/api/tenants", forged, fullOnboardingRequest())
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorType(t, w))
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	r, mgr := newTestRouter(t, &fakeTenantService{})

	bearer := tokenFor(t, mgr, tenantdomain.RoleSuperAdmin, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/tenants", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorType(t, w))
}
