package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParseToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	tok, err := SignToken("u1", "somchai@example.com", "0811111111", "Somchai", RoleUser, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "somchai@example.com", claims.Email)
	assert.Equal(t, "0811111111", claims.Phone)
	assert.Equal(t, RoleUser, claims.Role)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	tok, err := SignToken("u1", "", "", "", RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok)
	require.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-a")
	tok, err := SignToken("u1", "", "", "", RoleAdmin, time.Hour)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "secret-b")
	_, err = ParseToken(tok)
	require.Error(t, err)
}
