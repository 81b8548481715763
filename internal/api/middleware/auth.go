package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/auth"
)

// Principal is the authenticated caller, taken from access token claims.
type Principal struct {
	UserID  string
	Name    string
	Email   string
	IsAdmin bool
}

type principalKey struct{}

// TokenValidator validates bearer access tokens. *auth.Service satisfies it.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.JWTClaims, error)
}

// Auth requires a valid "Authorization: Bearer <jwt>" header and stores the
// caller as a Principal on the request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, detail := bearerToken(r.Header.Get("Authorization"))
			if detail != "" {
				unauthorized(w, r, detail)
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			switch {
			case errors.Is(err, auth.ErrAccessTokenExpired):
				unauthorized(w, r, "access token has expired")
				return
			case errors.Is(err, auth.ErrInvalidAccessToken):
				unauthorized(w, r, "invalid access token")
				return
			case err != nil:
				unauthorized(w, r, "authentication failed")
				return
			}

			p := Principal{UserID: claims.UserID, Name: claims.Name, Email: claims.Email, IsAdmin: claims.IsAdmin}
			setLoggedUser(r.Context(), p.UserID)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// bearerToken extracts the token from an Authorization header value. A
// non-empty detail explains why the header was rejected.
func bearerToken(header string) (token, detail string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(rest); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

// RequireAdmin rejects callers without the isAdmin claim. It must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		switch {
		case !ok:
			unauthorized(w, r, "authentication required")
		case !p.IsAdmin:
			reject(w, r, models.NewForbidden("", "admin access required"))
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	reject(w, r, models.NewUnauthorized("", detail))
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns the authenticated caller, if any.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// GetUserID returns the authenticated user ID, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	p, _ := GetPrincipal(ctx)
	return p.UserID
}
