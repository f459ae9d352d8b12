package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/identity/domain"
	"github.com/campusworks/acadia/internal/identity/repository"
	"github.com/campusworks/acadia/internal/identity/token"
	dbpkg "github.com/campusworks/acadia/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memorySessionStore struct {
	otps    map[string]string
	refresh map[string]snowflake.ID
	resets  map[string]snowflake.ID
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{
		otps:    map[string]string{},
		refresh: map[string]snowflake.ID{},
		resets:  map[string]snowflake.ID{},
	}
}

func (m *memorySessionStore) SaveOTP(_ context.Context, email, code string, _ time.Duration) error {
	m.otps[email] = code
	return nil
}

func (m *memorySessionStore) GetOTP(_ context.Context, email string) (string, error) {
	code, ok := m.otps[email]
	if !ok {
		return "", domain.ErrSessionMiss
	}
	return code, nil
}

func (m *memorySessionStore) DeleteOTP(_ context.Context, email string) error {
	delete(m.otps, email)
	return nil
}

func (m *memorySessionStore) SaveRefresh(_ context.Context, tok string, userID snowflake.ID, _ time.Duration) error {
	m.refresh[tok] = userID
	return nil
}

func (m *memorySessionStore) ConsumeRefresh(_ context.Context, tok string) (snowflake.ID, error) {
	id, ok := m.refresh[tok]
	if !ok {
		return 0, domain.ErrSessionMiss
	}
	delete(m.refresh, tok)
	return id, nil
}

func (m *memorySessionStore) DeleteRefresh(_ context.Context, tok string) error {
	delete(m.refresh, tok)
	return nil
}

func (m *memorySessionStore) SaveReset(_ context.Context, tok string, userID snowflake.ID, _ time.Duration) error {
	m.resets[tok] = userID
	return nil
}

func (m *memorySessionStore) ConsumeReset(_ context.Context, tok string) (snowflake.ID, error) {
	id, ok := m.resets[tok]
	if !ok {
		return 0, domain.ErrSessionMiss
	}
	delete(m.resets, tok)
	return id, nil
}

type fakeLimiter struct{ allow bool }

func (f *fakeLimiter) Allow(context.Context, string) (bool, error) { return f.allow, nil }

type fakeSender struct {
	otps   map[string]string
	resets map[string]string
}

func newFakeSender() *fakeSender {
	return &fakeSender{otps: map[string]string{}, resets: map[string]string{}}
}

func (f *fakeSender) SendOTP(_ context.Context, email, code string) error {
	f.otps[email] = code
	return nil
}

func (f *fakeSender) SendResetLink(_ context.Context, email, tok string) error {
	f.resets[email] = tok
	return nil
}

type fakeDirectory struct{ known map[snowflake.ID]bool }

func (f *fakeDirectory) TenantExists(_ context.Context, id snowflake.ID) (bool, error) {
	return f.known[id], nil
}

type testEnv struct {
	db       *gorm.DB
	svc      domain.Service
	sessions *memorySessionStore
	limiter  *fakeLimiter
	sender   *fakeSender
	tenantID snowflake.ID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Credential{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	sessions := newMemorySessionStore()
	limiter := &fakeLimiter{allow: true}
	sender := newFakeSender()
	tenantID := node.Generate()

	svc := NewService(
		repository.NewRepository(db),
		&fakeDirectory{known: map[snowflake.ID]bool{tenantID: true}},
		sessions,
		limiter,
		token.NewManager("test-secret", 15*time.Minute),
		sender,
		node,
		zap.NewNop(),
	)
	return &testEnv{db: db, svc: svc, sessions: sessions, limiter: limiter, sender: sender, tenantID: tenantID}
}

func registerReq(env *testEnv) domain.RegisterRequest {
	return domain.RegisterRequest{
		Email:    "student@x.edu",
		Password: "correct-horse-battery",
		Role:     "STUDENT",
		TenantID: env.tenantID.String(),
	}
}

func TestRegisterAndVerifyOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cred, err := env.svc.Register(ctx, registerReq(env))
	require.NoError(t, err)
	assert.False(t, cred.Verified)

	code := env.sender.otps["student@x.edu"]
	require.NotEmpty(t, code, "registration must deliver an OTP")

	require.NoError(t, env.svc.VerifyOTP(ctx, "student@x.edu", code))

	var stored domain.Credential
	require.NoError(t, env.db.First(&stored, "email = ?", "student@x.edu").Error)
	assert.True(t, stored.Verified)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	env := newTestEnv(t)

	req := registerReq(env)
	req.Password = "short"
	_, err := env.svc.Register(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrWeakPassword)
}

func TestRegisterRejectsUnknownTenant(t *testing.T) {
	env := newTestEnv(t)

	req := registerReq(env)
	req.TenantID = "424242"
	_, err := env.svc.Register(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrUnknownTenant)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, registerReq(env))
	require.NoError(t, err)

	err = env.svc.VerifyOTP(ctx, "student@x.edu", "000000")
	require.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func loginAfterVerify(t *testing.T, env *testEnv) *domain.TokenPair {
	t.Helper()
	ctx := context.Background()

	_, err := env.svc.Register(ctx, registerReq(env))
	require.NoError(t, err)
	require.NoError(t, env.svc.VerifyOTP(ctx, "student@x.edu", env.sender.otps["student@x.edu"]))

	pair, err := env.svc.Login(ctx, domain.LoginRequest{
		Email:    "student@x.edu",
		Password: "correct-horse-battery",
		ClientIP: "10.0.0.1",
	})
	require.NoError(t, err)
	return pair
}

func TestLoginIssuesTokenPair(t *testing.T) {
	env := newTestEnv(t)

	pair := loginAfterVerify(t, env)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := token.NewManager("test-secret", 15*time.Minute).Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "STUDENT", claims.Role)
	assert.Equal(t, env.tenantID.String(), claims.TenantID)
}

func TestLoginRejectsUnverified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, registerReq(env))
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, domain.LoginRequest{
		Email:    "student@x.edu",
		Password: "correct-horse-battery",
	})
	require.ErrorIs(t, err, domain.ErrNotVerified)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	loginAfterVerify(t, env)

	_, err := env.svc.Login(context.Background(), domain.LoginRequest{
		Email:    "student@x.edu",
		Password: "not-the-password",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.limiter.allow = false

	_, err := env.svc.Login(context.Background(), domain.LoginRequest{
		Email:    "student@x.edu",
		Password: "correct-horse-battery",
		ClientIP: "10.0.0.1",
	})
	require.ErrorIs(t, err, domain.ErrTooManyAttempts)
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	pair := loginAfterVerify(t, env)

	next, err := env.svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The consumed token is spent.
	_, err = env.svc.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidRefresh)
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	env := newTestEnv(t)
	pair := loginAfterVerify(t, env)

	require.NoError(t, env.svc.Logout(context.Background(), pair.RefreshToken))

	_, err := env.svc.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidRefresh)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	loginAfterVerify(t, env)
	ctx := context.Background()

	require.NoError(t, env.svc.ForgotPassword(ctx, "student@x.edu"))
	resetToken := env.sender.resets["student@x.edu"]
	require.NotEmpty(t, resetToken)

	require.NoError(t, env.svc.ResetPassword(ctx, resetToken, "a-brand-new-password"))

	_, err := env.svc.Login(ctx, domain.LoginRequest{
		Email:    "student@x.edu",
		Password: "a-brand-new-password",
	})
	require.NoError(t, err)

	// Token is single use.
	err = env.svc.ResetPassword(ctx, resetToken, "another-password-again")
	require.ErrorIs(t, err, domain.ErrInvalidReset)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.ForgotPassword(context.Background(), "ghost@x.edu"))
	assert.Empty(t, env.sender.resets)
}

func TestProvisionIsIdempotentPerEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := domain.ProvisionRequest{
		Email:    "hod.cs@x.edu",
		Role:     "HOD",
		TenantID: env.tenantID.String(),
	}

	first, err := env.svc.Provision(ctx, req)
	require.NoError(t, err)

	second, err := env.svc.Provision(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second, "retried provisioning must return the same id")

	var count int64
	require.NoError(t, env.db.Model(&domain.Credential{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestProvisionedAccountClaimedViaReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Provision(ctx, domain.ProvisionRequest{
		Email:    "hod.cs@x.edu",
		Role:     "HOD",
		TenantID: env.tenantID.String(),
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.ForgotPassword(ctx, "hod.cs@x.edu"))
	resetToken := env.sender.resets["hod.cs@x.edu"]
	require.NotEmpty(t, resetToken)
	require.NoError(t, env.svc.ResetPassword(ctx, resetToken, "chosen-by-the-hod"))

	pair, err := env.svc.Login(ctx, domain.LoginRequest{
		Email:    "hod.cs@x.edu",
		Password: "chosen-by-the-hod",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cred, err := env.svc.Register(ctx, registerReq(env))
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteAccount(ctx, cred.ID))
	require.ErrorIs(t, env.svc.DeleteAccount(ctx, cred.ID), domain.ErrUserNotFound)
}
