package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateProgramRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Year        int    `json:"year"`
}

type CreateAuditRequest struct {
	ProgramID  string   `json:"programId"`
	Title      string   `json:"title"`
	Scope      string   `json:"scope"`
	Objectives []string `json:"objectives"`
	Methods    []string `json:"methods"`
	Criteria   []string `json:"criteria"`
}

type AssignTeamRequest struct {
	LeaderID string   `json:"leaderId"`
	Members  []string `json:"members"`
}

// Service enforces the program state machine and the caller's role and
// tenant scope. The caller's claims travel on the context.
type Service interface {
	CreateProgram(ctx context.Context, req CreateProgramRequest) (*AuditProgram, error)
	GetProgram(ctx context.Context, id string) (*AuditProgram, error)
	ListPrograms(ctx context.Context) ([]AuditProgram, error)

	SubmitProgram(ctx context.Context, id string) (*AuditProgram, error)
	ApproveProgram(ctx context.Context, id string) (*AuditProgram, error)
	RejectProgram(ctx context.Context, id, reason string) (*AuditProgram, error)
	CompleteProgram(ctx context.Context, id string) (*AuditProgram, error)

	CreateAudit(ctx context.Context, req CreateAuditRequest) (*Audit, error)
	ListAudits(ctx context.Context, programID string) ([]Audit, error)
	AssignTeam(ctx context.Context, auditID string, req AssignTeamRequest) (*Audit, error)
}

type Repository interface {
	CreateProgram(ctx context.Context, program AuditProgram) error
	GetProgram(ctx context.Context, id snowflake.ID) (*AuditProgram, error)
	ListPrograms(ctx context.Context, tenantID snowflake.ID) ([]AuditProgram, error)
	UpdateProgram(ctx context.Context, program AuditProgram) error

	CreateAudit(ctx context.Context, audit Audit) error
	GetAudit(ctx context.Context, id snowflake.ID) (*Audit, error)
	ListAudits(ctx context.Context, programID snowflake.ID) ([]Audit, error)
	UpdateAudit(ctx context.Context, audit Audit) error
}

var (
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrInvalidProgram    = errors.New("invalid_program")
	ErrProgramNotFound   = errors.New("program_not_found")
	ErrAuditNotFound     = errors.New("audit_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrProgramNotActive  = errors.New("program_not_active")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUnknownMember     = errors.New("unknown_member")
)
