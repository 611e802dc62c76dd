package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func TestIssueAndVerify(t *testing.T) {
	s := NewJWTService(testSecret, 30*24*time.Hour, nil, zap.NewNop())
	userID, orgID := uuid.New(), uuid.New()

	token, err := s.Issue(userID, orgID, "a@acme.test")
	require.NoError(t, err)

	claims := s.Verify(context.Background(), token)
	require.NotNil(t, claims)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, orgID, claims.OrgID)
	assert.Equal(t, "a@acme.test", claims.Email)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	s := NewJWTService(testSecret, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	assert.Nil(t, s.Verify(ctx, ""))
	assert.Nil(t, s.Verify(ctx, "not.a.token"))

	other := NewJWTService("other-secret", time.Hour, nil, zap.NewNop())
	foreign, err := other.Issue(uuid.New(), uuid.New(), "x@y.z")
	require.NoError(t, err)
	assert.Nil(t, s.Verify(ctx, foreign))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: uuid.New(), OrgID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Nil(t, s.Verify(ctx, none))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s := NewJWTService(testSecret, time.Hour, nil, zap.NewNop())
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := s.Issue(uuid.New(), uuid.New(), "a@acme.test")
	require.NoError(t, err)

	s.now = time.Now
	assert.Nil(t, s.Verify(context.Background(), token))
}

func TestRevocationWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewJWTService(testSecret, time.Hour, NewRedisRevoker(client), zap.NewNop())
	ctx := context.Background()
	token, err := s.Issue(uuid.New(), uuid.New(), "a@acme.test")
	require.NoError(t, err)
	claims := s.Verify(ctx, token)
	require.NotNil(t, claims)

	require.NoError(t, s.Revoke(ctx, claims))
	assert.Nil(t, s.Verify(ctx, token))

	key := revokedPrefix + claims.ID
	assert.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	assert.Greater(t, ttl, 50*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestVerifyFailsOpenWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	s := NewJWTService(testSecret, time.Hour, NewRedisRevoker(client), zap.NewNop())
	token, err := s.Issue(uuid.New(), uuid.New(), "a@acme.test")
	require.NoError(t, err)
	mr.Close()

	assert.NotNil(t, s.Verify(context.Background(), token))
}

func TestSessionFromRequestReadsCookie(t *testing.T) {
	s := NewJWTService(testSecret, time.Hour, nil, zap.NewNop())
	userID, orgID := uuid.New(), uuid.New()
	token, err := s.Issue(userID, orgID, "a@acme.test")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	_, ok := s.SessionFromRequest(req)
	assert.False(t, ok)

	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	sess, ok := s.SessionFromRequest(req)
	require.True(t, ok)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, orgID, sess.OrgID)
	assert.Equal(t, "a@acme.test", sess.Email)
}
