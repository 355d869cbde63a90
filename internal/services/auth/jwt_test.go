package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, err := svc.GenerateToken("owner-42", RoleSuperadmin)
	require.NoError(t, err)

	owner, role, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-42", owner)
	assert.Equal(t, RoleSuperadmin, role)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewJWTService("a", time.Hour).GenerateToken("owner-1", RoleOwner)
	require.NoError(t, err)

	_, _, err = NewJWTService("b", time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	svc := NewJWTService("s", -time.Hour)
	svc.ttl = -time.Minute
	token, err := svc.GenerateToken("owner-1", RoleOwner)
	require.NoError(t, err)

	_, _, err = svc.ParseToken(token)
	assert.Error(t, err)
}
