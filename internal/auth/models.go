// Package auth issues and validates HitchPath sessions for password and
// Google sign-in.
package auth

import (
	"time"

	"github.com/hitchpath/hitchpath/internal/user"
)

// RefreshToken is a stored, revocable refresh token.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Registration is a new password account.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Credentials is a password login attempt.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of any successful sign-in or refresh.
type Session struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string
	User         *user.User
	Created      bool
}

// GoogleIdentity is the verified content of a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
