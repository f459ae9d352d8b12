package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/identity/domain"
	"github.com/campusworks/acadia/internal/identity/password"
	"github.com/campusworks/acadia/internal/identity/token"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
	dbpkg "github.com/campusworks/acadia/pkg/db"
	"go.uber.org/zap"
)

const (
	otpTTL     = 5 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
	resetTTL   = time.Hour
)

var validRoles = map[string]struct{}{
	tenantdomain.RoleSuperAdmin:     {},
	tenantdomain.RoleAdmin:          {},
	tenantdomain.RoleRegistrar:      {},
	tenantdomain.RoleStaff:          {},
	tenantdomain.RoleHOD:            {},
	tenantdomain.RoleLecturer:       {},
	tenantdomain.RoleStudent:        {},
	tenantdomain.RoleAuditorGeneral: {},
	tenantdomain.RoleAuditor:        {},
}

// TenantDirectory answers whether a tenant is known locally. Backed by the
// replicated projection, so a just-created tenant becomes registrable once
// its tenant.created lands.
type TenantDirectory interface {
	TenantExists(ctx context.Context, id snowflake.ID) (bool, error)
}

type service struct {
	repo     domain.Repository
	tenants  TenantDirectory
	sessions domain.SessionStore
	limiter  domain.LoginLimiter
	tokens   *token.Manager
	sender   domain.CodeSender
	genID    *snowflake.Node
	log      *zap.Logger
}

func NewService(
	repo domain.Repository,
	tenants TenantDirectory,
	sessions domain.SessionStore,
	limiter domain.LoginLimiter,
	tokens *token.Manager,
	sender domain.CodeSender,
	genID *snowflake.Node,
	log *zap.Logger,
) domain.Service {
	return &service{
		repo:     repo,
		tenants:  tenants,
		sessions: sessions,
		limiter:  limiter,
		tokens:   tokens,
		sender:   sender,
		genID:    genID,
		log:      log.Named("identity.service"),
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Credential, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < password.MinLength {
		return nil, domain.ErrWeakPassword
	}
	if _, ok := validRoles[req.Role]; !ok {
		return nil, domain.ErrInvalidRole
	}

	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil {
		return nil, domain.ErrUnknownTenant
	}
	known, err := s.tenants.TenantExists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, domain.ErrUnknownTenant
	}

	if existing, err := s.repo.FindByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cred := domain.Credential{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		TenantID:     &tenantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, cred); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}

	if err := s.issueOTP(ctx, email); err != nil {
		s.log.Warn("otp delivery failed", zap.String("email", email), zap.Error(err))
	}
	return &cred, nil
}

func (s *service) VerifyOTP(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	stored, err := s.sessions.GetOTP(ctx, email)
	if err != nil || stored == "" || stored != strings.TrimSpace(code) {
		return domain.ErrInvalidOTP
	}
	if err := s.sessions.DeleteOTP(ctx, email); err != nil {
		return err
	}

	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if cred == nil {
		return domain.ErrUserNotFound
	}
	return s.repo.MarkVerified(ctx, cred.ID)
}

func (s *service) ResendOTP(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if cred == nil {
		return domain.ErrUserNotFound
	}
	if cred.Verified {
		return nil
	}
	return s.issueOTP(ctx, email)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenPair, error) {
	allowed, err := s.limiter.Allow(ctx, req.ClientIP)
	if err != nil {
		// A broken limiter must not lock everyone out.
		s.log.Warn("login limiter unavailable", zap.Error(err))
	} else if !allowed {
		return nil, domain.ErrTooManyAttempts
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil || !password.Verify(req.Password, cred.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !cred.Verified {
		return nil, domain.ErrNotVerified
	}

	return s.issuePair(ctx, cred)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	userID, err := s.sessions.ConsumeRefresh(ctx, strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, domain.ErrInvalidRefresh
	}

	cred, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, domain.ErrInvalidRefresh
	}
	return s.issuePair(ctx, cred)
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.DeleteRefresh(ctx, strings.TrimSpace(refreshToken))
}

// ForgotPassword never reveals whether the email exists.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil
	}

	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if cred == nil {
		return nil
	}

	resetToken, err := password.GenerateSecret(32)
	if err != nil {
		return err
	}
	if err := s.sessions.SaveReset(ctx, resetToken, cred.ID, resetTTL); err != nil {
		return err
	}
	if err := s.sender.SendResetLink(ctx, email, resetToken); err != nil {
		s.log.Warn("reset link delivery failed", zap.String("email", email), zap.Error(err))
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if len(newPassword) < password.MinLength {
		return domain.ErrWeakPassword
	}

	userID, err := s.sessions.ConsumeReset(ctx, strings.TrimSpace(resetToken))
	if err != nil {
		return domain.ErrInvalidReset
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	// Completing a reset proves mailbox ownership, which is what OTP
	// verification proves for self-registration.
	return s.repo.MarkVerified(ctx, userID)
}

func (s *service) DeleteAccount(ctx context.Context, userID snowflake.ID) error {
	cred, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if cred == nil {
		return domain.ErrUserNotFound
	}
	return s.repo.Delete(ctx, userID)
}

// Provision issues an identity for a saga-created user. The placeholder
// password is unguessable; the user claims the account via password reset.
func (s *service) Provision(ctx context.Context, req domain.ProvisionRequest) (snowflake.ID, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return 0, err
	}
	if _, ok := validRoles[req.Role]; !ok {
		return 0, domain.ErrInvalidRole
	}

	if existing, err := s.repo.FindByEmail(ctx, email); err != nil {
		return 0, err
	} else if existing != nil {
		return existing.ID, nil
	}

	var tenantID *snowflake.ID
	if trimmed := strings.TrimSpace(req.TenantID); trimmed != "" {
		id, err := snowflake.ParseString(trimmed)
		if err != nil {
			return 0, domain.ErrUnknownTenant
		}
		tenantID = &id
	}

	placeholder, err := password.GenerateSecret(32)
	if err != nil {
		return 0, err
	}
	hash, err := password.Hash(placeholder)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	cred := domain.Credential{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		TenantID:     tenantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, cred); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			// Concurrent provision of the same email: converge on the row
			// that won.
			winner, findErr := s.repo.FindByEmail(ctx, email)
			if findErr == nil && winner != nil {
				return winner.ID, nil
			}
		}
		return 0, err
	}

	s.log.Info("identity provisioned",
		zap.String("email", email),
		zap.String("role", req.Role),
		zap.String("user_id", cred.ID.String()))
	return cred.ID, nil
}

func (s *service) issuePair(ctx context.Context, cred *domain.Credential) (*domain.TokenPair, error) {
	access, err := s.tokens.Issue(cred.ID, cred.Role, cred.TenantID)
	if err != nil {
		return nil, err
	}

	refresh, err := password.GenerateSecret(32)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SaveRefresh(ctx, refresh, cred.ID, refreshTTL); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *service) issueOTP(ctx context.Context, email string) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.sessions.SaveOTP(ctx, email, code, otpTTL); err != nil {
		return err
	}
	return s.sender.SendOTP(ctx, email, code)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
