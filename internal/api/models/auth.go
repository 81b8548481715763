package models

import "github.com/hitchpath/hitchpath/internal/auth"

// GoogleLoginRequest carries a Google ID token.
type GoogleLoginRequest struct {
	TokenID string `json:"tokenId"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SessionResponse is returned by every sign-in and refresh.
type SessionResponse struct {
	Message      string    `json:"message,omitempty"`
	Token        string    `json:"token"`
	ExpiresAt    Timestamp `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken"`
	User         User      `json:"user"`
}

// SessionFromDomain converts an auth session.
func SessionFromDomain(s *auth.Session) SessionResponse {
	return SessionResponse{
		Token:        s.AccessToken,
		ExpiresAt:    Timestamp(s.ExpiresAt),
		RefreshToken: s.RefreshToken,
		User:         UserFromDomain(s.User),
	}
}
