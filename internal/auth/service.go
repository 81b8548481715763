package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/user"
)

// Predefined service errors.
var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenRequired      = errors.New("token is required")
	ErrUnverifiedEmail    = errors.New("google account email is not verified")
	ErrGoogleDisabled     = errors.New("google sign-in is not configured")
)

// IdentityVerifier verifies a third-party ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*GoogleIdentity, error)
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService  *JWTService
	Users       user.Repository
	RefreshRepo RefreshTokenRepository
	Google      IdentityVerifier
	Logger      zerolog.Logger
}

// Service provides authentication operations.
type Service struct {
	jwt     *JWTService
	users   user.Repository
	refresh RefreshTokenRepository
	google  IdentityVerifier
	logger  zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwt:     cfg.JWTService,
		users:   cfg.Users,
		refresh: cfg.RefreshRepo,
		google:  cfg.Google,
		logger:  cfg.Logger,
	}
}

// Register creates a password account and signs it in.
func (s *Service) Register(ctx context.Context, reg Registration) (*Session, error) {
	email := user.NormalizeEmail(reg.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, user.ErrUserNotFound) {
		return nil, fmt.Errorf("looking up email: %w", err)
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	u := user.New(email, reg.Name)
	u.PasswordHash = &hash
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info().Str("user_id", u.ID).Msg("user registered")

	sess, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	sess.Created = true
	return sess, nil
}

// Login signs in with email and password. Unknown emails, Google-only
// accounts and wrong passwords all yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, creds.Email)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up email: %w", err)
	}
	if u.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := CheckPassword(*u.PasswordHash, creds.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, u)
}

// GoogleLogin signs in with a Google ID token, creating the account on
// first use or linking it to an existing account with the same verified email.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrTokenRequired
	}

	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verifying Google token: %w", err)
	}

	u, created, err := s.findOrCreateGoogleUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	sess, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	sess.Created = created
	return sess, nil
}

func (s *Service) findOrCreateGoogleUser(ctx context.Context, id *GoogleIdentity) (*user.User, bool, error) {
	u, err := s.users.FindByGoogleSub(ctx, id.Subject)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, false, fmt.Errorf("looking up Google account: %w", err)
	}

	if id.Email == "" {
		return nil, false, fmt.Errorf("%w: missing email", ErrInvalidToken)
	}

	u, err = s.users.FindByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if !id.EmailVerified {
			return nil, false, ErrUnverifiedEmail
		}
		if err := s.users.LinkGoogle(ctx, u.ID, id.Subject); err != nil {
			return nil, false, fmt.Errorf("linking Google account: %w", err)
		}
		sub := id.Subject
		u.GoogleSub = &sub
		s.logger.Info().Str("user_id", u.ID).Msg("linked Google account")
		return u, false, nil
	case !errors.Is(err, user.ErrUserNotFound):
		return nil, false, fmt.Errorf("looking up email: %w", err)
	}

	u = user.New(id.Email, id.Name)
	sub := id.Subject
	u.GoogleSub = &sub
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, false, ErrEmailInUse
		}
		return nil, false, fmt.Errorf("creating user: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID).Msg("user registered with Google")
	return u, true, nil
}

// Refresh rotates a refresh token and issues a new session. The presented
// token is spent even when it turns out to be expired.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	stored, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return nil, err
		}
		return nil, fmt.Errorf("consuming refresh token: %w", err)
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	u, err := s.users.Get(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return s.issue(ctx, u)
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *Service) ValidateAccessToken(token string) (*JWTClaims, error) {
	return s.jwt.ValidateAccessToken(token)
}

// Revoke revokes a single refresh token.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}

// RevokeAll revokes every refresh token of a user.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.refresh.RevokeAllForUser(ctx, userID)
}

func (s *Service) issue(ctx context.Context, u *user.User) (*Session, error) {
	access, expiresAt, err := s.jwt.IssueAccessToken(u)
	if err != nil {
		return nil, err
	}

	value := NewRefreshToken()
	now := time.Now()
	if err := s.refresh.Create(ctx, &RefreshToken{
		ID:        uuid.New().String(),
		Token:     value,
		UserID:    u.ID,
		ExpiresAt: now.Add(RefreshTokenExpiry),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &Session{
		AccessToken:  access,
		ExpiresAt:    expiresAt,
		RefreshToken: value,
		User:         u,
	}, nil
}
