package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	token, err := util.GenerateToken("admin@acme.com", 42, "acme-1234", false, "accounts")
	require.NoError(t, err)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@acme.com", claims.Email)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "acme-1234", claims.Scope)
	assert.False(t, claims.Superuser)
	assert.Equal(t, "accounts", claims.Role)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	other := NewJWTUtil(&JWTConfig{SigningKey: "other-key", ExpirationHours: 1})

	token, err := util.GenerateToken("admin@acme.com", 42, "acme-1234", false, "")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: -1})

	token, err := util.GenerateToken("admin@acme.com", 42, "acme-1234", false, "")
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresConfig(t *testing.T) {
	util := NewJWTUtil(nil)
	_, err := util.GenerateToken("admin@acme.com", 1, "", false, "")
	assert.Error(t, err)
}
