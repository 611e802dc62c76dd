package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/middleware"
)

// CookieName is the session cookie.
const CookieName = "session"

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds the session claims: acting user, organization and email.
type Claims struct {
	UserID uuid.UUID `json:"userId"`
	OrgID  uuid.UUID `json:"orgId"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// Revoker tracks revoked token ids. Implemented by RedisRevoker.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTService issues and verifies session tokens.
type JWTService struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	logger  *zap.Logger
	now     func() time.Time
}

// NewJWTService creates a JWT service. revoker may be nil, in which case tokens
// stay valid until they expire.
func NewJWTService(secret string, ttl time.Duration, revoker Revoker, logger *zap.Logger) *JWTService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWTService{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		logger:  logger,
		now:     time.Now,
	}
}

// TTL returns the token lifetime.
func (s *JWTService) TTL() time.Duration { return s.ttl }

// Issue creates a signed session token.
func (s *JWTService) Issue(userID, orgID uuid.UUID, email string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		OrgID:  orgID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a token, returning claims or ErrInvalidToken.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil || claims.OrgID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify returns the claims of a valid, unrevoked token, or nil.
func (s *JWTService) Verify(ctx context.Context, tokenString string) *Claims {
	if tokenString == "" {
		return nil
	}
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil
	}
	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			// deny-list unavailable: fall back to signature and expiry only
			s.logger.Warn("revocation check failed", zap.Error(err))
		} else if revoked {
			return nil
		}
	}
	return claims
}

// FromRequest verifies the session cookie of r.
func (s *JWTService) FromRequest(r *http.Request) *Claims {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	return s.Verify(r.Context(), cookie.Value)
}

// SessionFromRequest implements middleware.SessionReader.
func (s *JWTService) SessionFromRequest(r *http.Request) (middleware.Session, bool) {
	claims := s.FromRequest(r)
	if claims == nil {
		return middleware.Session{}, false
	}
	return middleware.Session{UserID: claims.UserID, OrgID: claims.OrgID, Email: claims.Email}, true
}

// Revoke adds the token id of claims to the deny-list for its remaining lifetime.
// Without a revoker it is a no-op.
func (s *JWTService) Revoke(ctx context.Context, claims *Claims) error {
	if s.revoker == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, remaining)
}
