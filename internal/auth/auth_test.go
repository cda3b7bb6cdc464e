package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
)

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, CheckPassword(hash, "s3cret"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidPassword)
	assert.ErrorIs(t, CheckPassword("", "s3cret"), ErrInvalidPassword)
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	signed, err := tokens.Issue("u1", domain.RoleConnector)
	require.NoError(t, err)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, domain.RoleConnector, claims.Role)
}

func TestTokens_Rejects(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokens("other", time.Hour)
	require.NoError(t, err)

	signed, err := other.Issue("u1", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken, "foreign signature")

	_, err = tokens.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewTokens("secret", time.Minute)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue("u1", domain.RoleViewer)
	require.NoError(t, err)
	_, err = tokens.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func TestNewTokens_EmptySecret(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
