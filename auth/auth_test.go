package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/1rvyn/movie-tier-predictor/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	ok, err := VerifyPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordRejects(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)

	_, err = HashPassword(strings.Repeat("x", maxPasswordLength+1))
	assert.Error(t, err)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	_, err := VerifyPassword("not-a-hash", "pw")
	assert.Error(t, err)

	ok, err := VerifyPassword("not-a-hash", strings.Repeat("x", maxPasswordLength+1))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordAcceptsPython2bPrefix(t *testing.T) {
	hash, err := HashPassword("abc")
	require.NoError(t, err)

	ok, err := VerifyPassword("$2b$"+strings.TrimPrefix(hash, "$2a$"), "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := HashPassword("abc")
	require.NoError(t, err)
	return NewAuthenticator(map[string]models.User{
		"jsmith": {Username: "jsmith", Name: "John Smith", Password: hash},
	})
}

func TestLogin(t *testing.T) {
	a := newTestAuthenticator(t)

	u, err := a.Login(" jsmith ", "abc")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", u.Name)

	_, err = a.Login("jsmith", "abd")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Login("nobody", "abc")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Login("", "abc")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = a.Login("jsmith", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLookup(t *testing.T) {
	a := newTestAuthenticator(t)

	_, ok := a.Lookup("jsmith")
	assert.True(t, ok)
	_, ok = a.Lookup("nobody")
	assert.False(t, ok)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("abc123", 7)
	assert.Equal(t, 7*24*time.Hour, issuer.Expiry())

	token, exp, err := issuer.Issue("jsmith", "John Smith")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, time.Minute)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "jsmith", claims.Username)
	assert.Equal(t, "John Smith", claims.Name)
}

func TestTokenRejects(t *testing.T) {
	issuer := NewTokenIssuer("abc123", 7)
	token, _, err := issuer.Issue("jsmith", "John Smith")
	require.NoError(t, err)

	_, err = NewTokenIssuer("other-key", 7).Verify(token)
	assert.Error(t, err, "wrong key")

	_, err = issuer.Verify(token + "x")
	assert.Error(t, err, "tampered")

	_, err = issuer.Verify("")
	assert.Error(t, err, "empty")

	expired := NewTokenIssuer("abc123", 7)
	expired.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = expired.Verify(token)
	assert.Error(t, err, "expired")
}
