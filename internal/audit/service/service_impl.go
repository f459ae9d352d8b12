package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/audit/domain"
	"github.com/campusworks/acadia/internal/eventbus"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	"github.com/campusworks/acadia/pkg/tenantctx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserDirectory checks team assignments against the replicated users. Only
// auditor roles are replicated here, so membership doubles as a role check.
type UserDirectory interface {
	UserExists(ctx context.Context, id snowflake.ID) (bool, error)
}

type service struct {
	repo      domain.Repository
	users     UserDirectory
	genID     *snowflake.Node
	publisher eventbus.Publisher
	log       *zap.Logger
}

func NewService(
	repo domain.Repository,
	users UserDirectory,
	genID *snowflake.Node,
	publisher eventbus.Publisher,
	log *zap.Logger,
) domain.Service {
	return &service{
		repo:      repo,
		users:     users,
		genID:     genID,
		publisher: publisher,
		log:       log.Named("audit.service"),
	}
}

func (s *service) CreateProgram(ctx context.Context, req domain.CreateProgramRequest) (*domain.AuditProgram, error) {
	claims, err := requireRole(ctx, tenantdomain.RoleAuditor, tenantdomain.RoleAuditorGeneral)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.ErrInvalidTitle
	}

	tenantID, err := snowflake.ParseString(claims.TenantID)
	if err != nil {
		return nil, domain.ErrForbidden
	}
	createdBy, err := snowflake.ParseString(claims.UserID)
	if err != nil {
		return nil, domain.ErrForbidden
	}

	year := req.Year
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	now := time.Now().UTC()
	program := domain.AuditProgram{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Year:        year,
		Status:      domain.ProgramDraft,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProgram(ctx, program); err != nil {
		return nil, err
	}
	return &program, nil
}

func (s *service) GetProgram(ctx context.Context, id string) (*domain.AuditProgram, error) {
	claims, err := requireClaims(ctx)
	if err != nil {
		return nil, err
	}
	return s.scopedProgram(ctx, claims, id)
}

func (s *service) ListPrograms(ctx context.Context) ([]domain.AuditProgram, error) {
	claims, err := requireClaims(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := snowflake.ParseString(claims.TenantID)
	if err != nil {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListPrograms(ctx, tenantID)
}

// SubmitProgram moves Draft to Pending Approval and notifies approvers.
func (s *service) SubmitProgram(ctx context.Context, id string) (*domain.AuditProgram, error) {
	claims, err := requireRole(ctx, tenantdomain.RoleAuditor, tenantdomain.RoleAuditorGeneral)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, claims, id, domain.ProgramDraft, domain.ProgramPendingApproval,
		eventbus.TopicAuditSubmitted, nil)
}

// ApproveProgram activates a pending program.
func (s *service) ApproveProgram(ctx context.Context, id string) (*domain.AuditProgram, error) {
	claims, err := requireRole(ctx, tenantdomain.RoleAuditorGeneral)
	if err != nil {
		return nil, err
	}
	approver, err := snowflake.ParseString(claims.UserID)
	if err != nil {
		return nil, domain.ErrForbidden
	}
	return s.transition(ctx, claims, id, domain.ProgramPendingApproval, domain.ProgramActive,
		eventbus.TopicAuditProgramApproved, func(p *domain.AuditProgram) {
			p.ApprovedBy = &approver
			p.RejectionReason = ""
		})
}

// RejectProgram sends a pending program back to Draft with the reviewer's
// reason attached.
func (s *service) RejectProgram(ctx context.Context, id, reason string) (*domain.AuditProgram, error) {
	claims, err := requireRole(ctx, tenantdomain.RoleAuditorGeneral)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, claims, id, domain.ProgramPendingApproval, domain.ProgramDraft,
		eventbus.TopicAuditProgramRejected, func(p *domain.AuditProgram) {
			p.ApprovedBy = nil
			p.RejectionReason = strings.TrimSpace(reason)
		})
}

func (s *service) CompleteProgram(ctx context.Context, id string) (*domain.AuditProgram, error) {
	claims, err := requireRole(ctx, tenantdomain.RoleAuditorGeneral)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, claims, id, domain.ProgramActive, domain.ProgramCompleted, "", nil)
}

func (s *service) CreateAudit(ctx context.Context, req domain.CreateAuditRequest) (*domain.Audit, error) {
	claims, err := requireRole(ctx, tenantdomain.RoleAuditor, tenantdomain.RoleAuditorGeneral)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.ErrInvalidTitle
	}

	program, err := s.scopedProgram(ctx, claims, req.ProgramID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	audit := domain.Audit{
		ID:         s.genID.Generate(),
		ProgramID:  program.ID,
		TenantID:   program.TenantID,
		Title:      strings.TrimSpace(req.Title),
		Scope:      req.Scope,
		Objectives: mustJSON(req.Objectives),
		Methods:    mustJSON(req.Methods),
		Criteria:   mustJSON(req.Criteria),
		Members:    mustJSON([]string{}),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateAudit(ctx, audit); err != nil {
		return nil, err
	}
	return &audit, nil
}

func (s *service) ListAudits(ctx context.Context, programID string) ([]domain.Audit, error) {
	claims, err := requireClaims(ctx)
	if err != nil {
		return nil, err
	}
	program, err := s.scopedProgram(ctx, claims, programID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAudits(ctx, program.ID)
}

// AssignTeam sets the audit's leader and members. Only allowed while the
// owning program is Active, and every assignee must exist in the replicated
// auditor pool.
func (s *service) AssignTeam(ctx context.Context, auditID string, req domain.AssignTeamRequest) (*domain.Audit, error) {
	claims, err := requireRole(ctx, tenantdomain.RoleAuditorGeneral)
	if err != nil {
		return nil, err
	}

	id, err := snowflake.ParseString(strings.TrimSpace(auditID))
	if err != nil {
		return nil, domain.ErrAuditNotFound
	}
	audit, err := s.repo.GetAudit(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAuditNotFound
	}
	if err != nil {
		return nil, err
	}
	if claims.TenantID != audit.TenantID.String() {
		return nil, domain.ErrForbidden
	}

	program, err := s.repo.GetProgram(ctx, audit.ProgramID)
	if err != nil {
		return nil, err
	}
	if program.Status != domain.ProgramActive {
		return nil, domain.ErrProgramNotActive
	}

	leaderID, err := s.resolveMember(ctx, req.LeaderID)
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(req.Members))
	for _, raw := range req.Members {
		memberID, err := s.resolveMember(ctx, raw)
		if err != nil {
			return nil, err
		}
		members = append(members, memberID.String())
	}

	audit.LeaderID = &leaderID
	audit.Members = mustJSON(members)
	audit.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateAudit(ctx, *audit); err != nil {
		return nil, err
	}
	return audit, nil
}

func (s *service) resolveMember(ctx context.Context, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.ErrUnknownMember
	}
	known, err := s.users.UserExists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !known {
		return 0, domain.ErrUnknownMember
	}
	return id, nil
}

// transition enforces the state machine: the program must currently be in
// from, and the caller's tenant must own it. topic, when set, gets the
// post-transition snapshot.
func (s *service) transition(
	ctx context.Context,
	claims tenantctx.Claims,
	id, from, to, topic string,
	mutate func(*domain.AuditProgram),
) (*domain.AuditProgram, error) {
	program, err := s.scopedProgram(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if program.Status != from {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	program.Status = to
	program.UpdatedAt = now
	if mutate != nil {
		mutate(program)
	}
	if err := s.repo.UpdateProgram(ctx, *program); err != nil {
		return nil, err
	}

	if topic != "" && s.publisher != nil {
		if err := s.publisher.Publish(ctx, topic, program.Snapshot(now)); err != nil {
			s.log.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}
	return program, nil
}

func (s *service) scopedProgram(ctx context.Context, claims tenantctx.Claims, id string) (*domain.AuditProgram, error) {
	programID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidProgram
	}

	program, err := s.repo.GetProgram(ctx, programID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProgramNotFound
	}
	if err != nil {
		return nil, err
	}

	// Cross-tenant access is forbidden, not hidden.
	if claims.Role != tenantdomain.RoleSuperAdmin && claims.TenantID != program.TenantID.String() {
		return nil, domain.ErrForbidden
	}
	return program, nil
}

func requireClaims(ctx context.Context) (tenantctx.Claims, error) {
	claims, ok := tenantctx.FromContext(ctx)
	if !ok {
		return tenantctx.Claims{}, domain.ErrUnauthenticated
	}
	return claims, nil
}

func requireRole(ctx context.Context, roles ...string) (tenantctx.Claims, error) {
	claims, err := requireClaims(ctx)
	if err != nil {
		return claims, err
	}
	for _, role := range roles {
		if claims.Role == role {
			return claims, nil
		}
	}
	return claims, domain.ErrForbidden
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return raw
}
