package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// ClientIP keys the login rate limiter.
	ClientIP string `json:"-"`
}

// ProvisionRequest is the tenant-creation saga's registrar call. Credentials
// are placeholders until the user completes a password reset.
type ProvisionRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type Service interface {
	// Register creates an unverified credential and starts OTP verification.
	Register(ctx context.Context, req RegisterRequest) (*Credential, error)
	VerifyOTP(ctx context.Context, email, code string) error
	ResendOTP(ctx context.Context, email string) error

	Login(ctx context.Context, req LoginRequest) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error

	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	DeleteAccount(ctx context.Context, userID snowflake.ID) error

	// Provision is the internal registrar operation: it issues the identity
	// id for a user being created by the tenant saga. Idempotent per email.
	Provision(ctx context.Context, req ProvisionRequest) (snowflake.ID, error)
}

type Repository interface {
	Create(ctx context.Context, cred Credential) error
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	FindByID(ctx context.Context, id snowflake.ID) (*Credential, error)
	UpdatePassword(ctx context.Context, id snowflake.ID, hash string) error
	MarkVerified(ctx context.Context, id snowflake.ID) error
	Delete(ctx context.Context, id snowflake.ID) error
}

// SessionStore keeps the short-lived secrets: OTP codes, refresh tokens and
// password-reset tokens. Backed by Redis in production.
type SessionStore interface {
	SaveOTP(ctx context.Context, email, code string, ttl time.Duration) error
	GetOTP(ctx context.Context, email string) (string, error)
	DeleteOTP(ctx context.Context, email string) error

	SaveRefresh(ctx context.Context, token string, userID snowflake.ID, ttl time.Duration) error
	// ConsumeRefresh returns the owner and deletes the token, rotating it.
	ConsumeRefresh(ctx context.Context, token string) (snowflake.ID, error)
	DeleteRefresh(ctx context.Context, token string) error

	SaveReset(ctx context.Context, token string, userID snowflake.ID, ttl time.Duration) error
	ConsumeReset(ctx context.Context, token string) (snowflake.ID, error)
}

// ErrSessionMiss is returned by SessionStore lookups when the secret is
// absent or expired.
var ErrSessionMiss = errors.New("session entry not found")

// LoginLimiter gates login attempts per client key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// CodeSender delivers OTP codes and reset links out of band.
type CodeSender interface {
	SendOTP(ctx context.Context, email, code string) error
	SendResetLink(ctx context.Context, email, token string) error
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrEmailTaken         = errors.New("email_taken")
	ErrWeakPassword       = errors.New("weak_password")
	ErrUnknownTenant      = errors.New("unknown_tenant")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrNotVerified        = errors.New("account_not_verified")
	ErrInvalidOTP         = errors.New("invalid_otp")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrInvalidReset       = errors.New("invalid_reset_token")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrUserNotFound       = errors.New("user_not_found")
)
