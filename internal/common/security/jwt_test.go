package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"notekeeper/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager([]byte("super-secret"), 24*time.Hour)

	tok, err := tm.Issue("alice@example.com", 42, "admin")
	require.NoError(t, err)

	claims, err := tm.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, 24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestVerify_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager([]byte("secret"), time.Hour).WithClock(func() time.Time { return issued })

	tok, err := tm.Issue("bob@example.com", 7, "user")
	require.NoError(t, err)

	before := tm.WithClock(func() time.Time { return issued.Add(59 * time.Minute) })
	claims, err := before.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)

	after := tm.WithClock(func() time.Time { return issued.Add(time.Hour + time.Second) })
	_, err = after.Verify(tok)
	require.ErrorIs(t, err, common.ErrTokenExpired)
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenManager([]byte("right-secret"), time.Hour).Issue("c@example.com", 1, "user")
	require.NoError(t, err)

	_, err = NewTokenManager([]byte("wrong-secret"), time.Hour).Verify(tok)
	require.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager([]byte("secret"), time.Hour)

	_, err := tm.Verify("not-a-jwt")
	require.ErrorIs(t, err, common.ErrMalformedToken)
	assert.True(t, strings.Contains(err.Error(), "token is malformed"), err.Error())
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager([]byte("secret"), time.Hour)
	claims := Claims{
		Email: "d@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = tm.Verify(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidSignature))
}

func TestVerify_RequiresExpiry(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "e@example.com"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager([]byte("secret"), time.Hour).Verify(tok)
	require.ErrorIs(t, err, common.ErrMalformedToken)
}
