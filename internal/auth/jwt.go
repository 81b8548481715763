package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitchpath/hitchpath/internal/user"
)

// A session is an HS256 access JWT plus an opaque refresh token. The access
// token carries id, name, email and the admin bit so requests authorize
// without a lookup. Refresh tokens live server-side and rotate on every use.
// Logout revokes refresh tokens only; access tokens run until they expire.
const (
	DefaultAccessTokenExpiry = time.Hour
	RefreshTokenExpiry       = 30 * 24 * time.Hour
	refreshTokenBytes        = 32
)

var (
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrAccessTokenExpired  = errors.New("access token has expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token has expired")
)

// JWTClaims are the claims of an access token.
type JWTClaims struct {
	jwt.RegisteredClaims

	UserID  string `json:"uid"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// JWTConfig configures a JWTService.
type JWTConfig struct {
	SigningKey string
	Issuer     string // iss, e.g. "https://api.hitchpath.app"
	Audience   string // aud, e.g. "hitchpath-web"
	AccessTTL  time.Duration

	// Now overrides the clock used to stamp and check tokens.
	Now func() time.Time
}

// JWTService issues and verifies access tokens.
type JWTService struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewJWTService creates a JWTService. A zero AccessTTL means
// DefaultAccessTokenExpiry.
func NewJWTService(cfg JWTConfig) *JWTService {
	s := &JWTService{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.AccessTTL,
		now:      cfg.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultAccessTokenExpiry
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	return s
}

// IssueAccessToken signs an access token for u and returns it with its
// expiry.
func (s *JWTService) IssueAccessToken(u *user.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:  u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, exp, nil
}

// ValidateAccessToken verifies signature, issuer, audience and expiry and
// returns the claims. Failures wrap ErrAccessTokenExpired or
// ErrInvalidAccessToken.
func (s *JWTService) ValidateAccessToken(token string) (*JWTClaims, error) {
	var claims JWTClaims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	case claims.UserID == "":
		return nil, fmt.Errorf("%w: missing uid claim", ErrInvalidAccessToken)
	}
	return &claims, nil
}

// NewRefreshToken returns a random URL-safe refresh token.
func NewRefreshToken() string {
	b := make([]byte, refreshTokenBytes)
	_, _ = rand.Read(b) // never fails
	return base64.RawURLEncoding.EncodeToString(b)
}
