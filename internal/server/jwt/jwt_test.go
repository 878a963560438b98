package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AccessTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 24*time.Hour)

	token, expiresIn, err := svc.GenerateAccessToken(Subject{
		UserID:      "user-1",
		Username:    "alice",
		DisplayName: "Alice",
		Color:       "#00ff00",
		DeviceID:    "laptop",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Alice", claims.DisplayName)
	assert.Equal(t, "laptop", claims.DeviceID)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestService_ValidateAccessToken_Errors(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService("test-secret", time.Minute, time.Hour).WithClock(func() time.Time { return now })

	valid, _, err := svc.GenerateAccessToken(Subject{UserID: "user-1", Username: "alice"})
	require.NoError(t, err)

	other, _, err := NewService("other-secret", time.Minute, time.Hour).
		WithClock(func() time.Time { return now }).
		GenerateAccessToken(Subject{UserID: "user-1"})
	require.NoError(t, err)

	noneToken, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, Claims{UserID: "user-1"}).
		SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(other)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(noneToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewService("test-secret", time.Minute, time.Hour).
			WithClock(func() time.Time { return now.Add(2 * time.Minute) })
		_, err := later.ValidateAccessToken(valid)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.ErrorIs(t, err, gojwt.ErrTokenExpired)
	})
}

func TestService_GenerateRefreshToken(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService("s", time.Minute, 48*time.Hour).WithClock(func() time.Time { return now })

	a, exp, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	b, _, err := svc.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 44)
	assert.Equal(t, now.Add(48*time.Hour), exp)
}
