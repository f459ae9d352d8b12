package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/config"
	"github.com/campusworks/acadia/internal/eventbus"
	"github.com/campusworks/acadia/internal/tenant/domain"
	dbpkg "github.com/campusworks/acadia/pkg/db"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var knownRoles = map[string]struct{}{
	domain.RoleSuperAdmin:     {},
	domain.RoleAdmin:          {},
	domain.RoleRegistrar:      {},
	domain.RoleStaff:          {},
	domain.RoleHOD:            {},
	domain.RoleLecturer:       {},
	domain.RoleStudent:        {},
	domain.RoleAuditorGeneral: {},
	domain.RoleAuditor:        {},
}

type service struct {
	db        *gorm.DB
	repo      domain.Repository
	genID     *snowflake.Node
	publisher eventbus.Publisher
	registrar domain.IdentityRegistrar
	policy    *config.TenancyPolicyHolder
	log       *zap.Logger
}

func NewService(
	db *gorm.DB,
	repo domain.Repository,
	genID *snowflake.Node,
	publisher eventbus.Publisher,
	registrar domain.IdentityRegistrar,
	policy *config.TenancyPolicyHolder,
	log *zap.Logger,
) domain.Service {
	return &service{
		db:        db,
		repo:      repo,
		genID:     genID,
		publisher: publisher,
		registrar: registrar,
		policy:    policy,
		log:       log.Named("tenant.service"),
	}
}

// CreateTenant runs the provisioning saga: validate, persist the tenant,
// register each user with the identity provider, create departments, then
// publish. A downstream failure triggers a compensating delete; if the
// compensation itself fails the orphaned tenant is marked and the error
// escalates as a partial failure.
func (s *service) CreateTenant(ctx context.Context, createdBy string, req domain.CreateTenantRequest) (*domain.CreateTenantResult, error) {
	policy := s.policy.Get()
	if err := validateCreateRequest(req, policy); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = policy.DefaultStatus
	}

	tenant := domain.Tenant{
		ID:                  s.genID.Generate(),
		Name:                strings.TrimSpace(req.Name),
		Domain:              strings.ToLower(strings.TrimSpace(req.Domain)),
		Slug:                slug.Make(req.Name),
		LogoURL:             req.LogoURL,
		Address:             req.Address,
		City:                req.City,
		Country:             req.Country,
		Phone:               req.Phone,
		Email:               strings.ToLower(strings.TrimSpace(req.Email)),
		Type:                req.Type,
		AccreditationNumber: req.AccreditationNumber,
		EstablishedYear:     req.EstablishedYear,
		Timezone:            orDefault(req.Timezone, policy.DefaultTimezone),
		Currency:            orDefault(req.Currency, policy.DefaultCurrency),
		Status:              status,
		ProvisioningState:   domain.ProvisioningComplete,
		CreatedBy:           createdBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.CreateTenant(ctx, tenant); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDomainTaken
		}
		return nil, err
	}

	users, err := s.provisionUsers(ctx, tenant, req.Users, now)
	if err != nil {
		return nil, s.compensate(ctx, tenant, err)
	}

	departments, err := s.createDepartments(ctx, tenant, req.Departments, users, now)
	if err != nil {
		return nil, s.compensate(ctx, tenant, err)
	}

	s.emit(ctx, eventbus.TopicTenantCreated, tenant.Snapshot())
	for _, u := range users {
		s.emit(ctx, eventbus.TopicUserCreated, u.Snapshot())
	}

	return &domain.CreateTenantResult{
		Outcome:     domain.OutcomeOK,
		Tenant:      tenant,
		Users:       users,
		Departments: departments,
		CreatedAt:   now,
	}, nil
}

// provisionUsers registers each user with the identity provider and mirrors
// the issued identity into the local users table. The identity provider owns
// the subject id; the same id travels on every replica via user.created.
func (s *service) provisionUsers(ctx context.Context, tenant domain.Tenant, reqs []domain.NewUser, now time.Time) ([]domain.User, error) {
	users := make([]domain.User, 0, len(reqs))
	for _, nu := range reqs {
		identityID, err := s.registrar.RegisterUser(ctx, domain.RegisterIdentityRequest{
			Email:    strings.ToLower(strings.TrimSpace(nu.Email)),
			Role:     nu.Role,
			TenantID: tenant.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", nu.Email, err)
		}

		tenantID := tenant.ID
		user := domain.User{
			ID:        identityID,
			Email:     strings.ToLower(strings.TrimSpace(nu.Email)),
			Role:      nu.Role,
			TenantID:  &tenantID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return nil, fmt.Errorf("%w: %s", domain.ErrEmailTaken, nu.Email)
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *service) createDepartments(ctx context.Context, tenant domain.Tenant, reqs []domain.NewDepartment, users []domain.User, now time.Time) ([]domain.Department, error) {
	byEmail := make(map[string]domain.User, len(users))
	for _, u := range users {
		byEmail[u.Email] = u
	}

	departments := make([]domain.Department, 0, len(reqs))
	for _, nd := range reqs {
		head, ok := byEmail[strings.ToLower(strings.TrimSpace(nd.HODEmail))]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownHead, nd.HODEmail)
		}

		dept := domain.Department{
			ID:        s.genID.Generate(),
			Name:      strings.TrimSpace(nd.Name),
			Code:      departmentCode(nd),
			TenantID:  tenant.ID,
			HeadID:    head.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateDepartment(ctx, dept); err != nil {
			return nil, err
		}
		departments = append(departments, dept)

		s.emit(ctx, eventbus.TopicDepartmentCreated, dept.Snapshot())
	}
	return departments, nil
}

// compensate deletes everything the saga created so far. Best effort: when
// the delete itself fails the tenant row is flagged instead of the error
// being swallowed.
func (s *service) compensate(ctx context.Context, tenant domain.Tenant, cause error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteDepartmentsByTenant(ctx, tenant.ID); err != nil {
			return err
		}
		if err := repo.DeleteUsersByTenant(ctx, tenant.ID); err != nil {
			return err
		}
		return repo.DeleteTenant(ctx, tenant.ID)
	})
	if err != nil {
		s.log.Error("compensation failed, orphaned tenant remains",
			zap.String("tenant_id", tenant.ID.String()),
			zap.NamedError("cause", cause),
			zap.Error(err))
		if markErr := s.repo.MarkProvisioningState(ctx, tenant.ID, domain.ProvisioningPartialFailure); markErr != nil {
			s.log.Error("failed to mark partial failure", zap.Error(markErr))
		}
		return fmt.Errorf("%w: %v (compensation: %v)", domain.ErrPartialFailure, cause, err)
	}

	s.log.Warn("tenant creation compensated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.NamedError("cause", cause))
	return fmt.Errorf("%w: %v", domain.ErrProvisioningFailed, cause)
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	tenantID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}
	return s.getTenant(ctx, tenantID)
}

func (s *service) getTenant(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	tenant, err := s.repo.GetTenant(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *service) List(ctx context.Context) ([]domain.Tenant, error) {
	return s.repo.ListTenants(ctx)
}

func (s *service) UpdateStatus(ctx context.Context, id string, status string) (*domain.Tenant, error) {
	tenantID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}

	policy := s.policy.Get()
	if !contains(policy.AllowedStatuses, status) {
		return nil, domain.ErrInvalidStatus
	}

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tenant.Status = status
	tenant.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateTenant(ctx, *tenant); err != nil {
		return nil, err
	}

	s.emit(ctx, eventbus.TopicTenantUpdated, tenant.Snapshot())
	return tenant, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	tenantID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidTenant
	}

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteDepartmentsByTenant(ctx, tenantID); err != nil {
			return err
		}
		if err := repo.DeleteUsersByTenant(ctx, tenantID); err != nil {
			return err
		}
		return repo.DeleteTenant(ctx, tenantID)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, eventbus.TopicTenantDeleted, tenant.Snapshot())
	return nil
}

// AddUser provisions a single user into an existing tenant.
func (s *service) AddUser(ctx context.Context, tenantID string, req domain.NewUser) (*domain.User, error) {
	id, err := parseID(tenantID)
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}
	if _, ok := knownRoles[req.Role]; !ok {
		return nil, domain.ErrInvalidRole
	}

	tenant, err := s.getTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	identityID, err := s.registrar.RegisterUser(ctx, domain.RegisterIdentityRequest{
		Email:    email,
		Role:     req.Role,
		TenantID: tenant.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvisioningFailed, err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:        identityID,
		Email:     email,
		Role:      req.Role,
		TenantID:  &tenant.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}

	s.emit(ctx, eventbus.TopicUserCreated, user.Snapshot())
	return &user, nil
}

func (s *service) ListDepartments(ctx context.Context, tenantID string) ([]domain.Department, error) {
	id, err := parseID(tenantID)
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.ListDepartmentsByTenant(ctx, id)
}

// emit publishes best-effort: the row is already committed and a delivery
// failure only widens the staleness window, surfaced via logs and metrics.
func (s *service) emit(ctx context.Context, topic string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.log.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

func validateCreateRequest(req domain.CreateTenantRequest, policy config.TenancyPolicy) error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.ErrInvalidName
	}
	if strings.TrimSpace(req.Domain) == "" {
		return domain.ErrInvalidDomain
	}
	if status := strings.TrimSpace(req.Status); status != "" && !contains(policy.AllowedStatuses, status) {
		return domain.ErrInvalidStatus
	}
	if len(req.Users) < policy.MinInitialUsers {
		return domain.ErrMissingRoles
	}

	seenEmails := make(map[string]struct{}, len(req.Users))
	rolesPresent := make(map[string]struct{}, len(req.Users))
	for _, u := range req.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			return domain.ErrInvalidEmail
		}
		if _, dup := seenEmails[email]; dup {
			return domain.ErrDuplicateEmail
		}
		seenEmails[email] = struct{}{}

		if _, ok := knownRoles[u.Role]; !ok {
			return domain.ErrInvalidRole
		}
		rolesPresent[u.Role] = struct{}{}
	}

	for _, required := range policy.RequiredRoles {
		if _, ok := rolesPresent[required]; !ok {
			return domain.ErrMissingRoles
		}
	}

	seenCodes := make(map[string]struct{}, len(req.Departments))
	for _, d := range req.Departments {
		if strings.TrimSpace(d.Name) == "" {
			return domain.ErrInvalidName
		}
		head := strings.ToLower(strings.TrimSpace(d.HODEmail))
		if _, ok := seenEmails[head]; !ok {
			return domain.ErrUnknownHead
		}
		code := departmentCode(d)
		if _, dup := seenCodes[code]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, code)
		}
		seenCodes[code] = struct{}{}
	}

	return nil
}

// departmentCode resolves the code a department will be stored under, so the
// clash check sees the same value the insert does.
func departmentCode(d domain.NewDepartment) string {
	code := strings.TrimSpace(d.Code)
	if code == "" {
		code = strings.ToUpper(slug.Make(d.Name))
	}
	return code
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
