package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("test-secret", 15*time.Minute)
	tenantID := snowflake.ID(42)

	raw, err := m.Issue(snowflake.ID(7), "ADMIN", &tenantID)
	require.NoError(t, err)

	claims, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, "42", claims.TenantID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := NewManager("secret-a", time.Minute).Issue(snowflake.ID(7), "ADMIN", nil)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Minute).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	raw, err := m.Issue(snowflake.ID(7), "STUDENT", nil)
	require.NoError(t, err)

	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestSuperAdminHasNoTenant(t *testing.T) {
	m := NewManager("test-secret", time.Minute)

	raw, err := m.Issue(snowflake.ID(1), "SUPER_ADMIN", nil)
	require.NoError(t, err)

	claims, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Empty(t, claims.TenantID)
}
