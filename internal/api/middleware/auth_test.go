package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/api/middleware"
	"github.com/hitchpath/hitchpath/internal/auth"
	"github.com/hitchpath/hitchpath/internal/user"
)

func newJWTService(ttl time.Duration) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.hitchpath.test",
		Audience:   "hitchpath-web",
		AccessTTL:  ttl,
	})
}

func issue(t *testing.T, jwtService *auth.JWTService, admin bool) string {
	t.Helper()
	u := user.New("ada@example.com", "Ada")
	u.ID = "usr_ada"
	u.IsAdmin = admin
	token, _, err := jwtService.IssueAccessToken(u)
	require.NoError(t, err)
	return token
}

func expiredToken(t *testing.T) string {
	t.Helper()
	past := time.Now().Add(-2 * time.Hour)
	claims := auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://api.hitchpath.test",
			Audience:  jwt.ClaimStrings{"hitchpath-web"},
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
		UserID: "usr_ada",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-for-testing-only"))
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_Rejects(t *testing.T) {
	handler := middleware.Auth(newJWTService(time.Hour))(okHandler())
	expired := expiredToken(t)

	tests := []struct {
		name   string
		header string
		detail string
	}{
		{"missing header", "", "missing authorization header"},
		{"no bearer prefix", "token123", "invalid authorization header format"},
		{"basic auth", "Basic dXNlcjpwYXNz", "invalid authorization header format"},
		{"empty bearer", "Bearer ", "missing bearer token"},
		{"garbage token", "Bearer invalid.jwt.token", "invalid access token"},
		{"expired token", "Bearer " + expired, "access token has expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/user/profile", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.detail, body["error"])
		})
	}
}

func TestAuth_ValidTokenSetsPrincipal(t *testing.T) {
	jwtService := newJWTService(time.Hour)
	token := issue(t, jwtService, true)

	var got middleware.Principal
	handler := middleware.Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = middleware.GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", prefix+token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "usr_ada", got.UserID)
			assert.Equal(t, "ada@example.com", got.Email)
			assert.True(t, got.IsAdmin)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	jwtService := newJWTService(time.Hour)
	handler := middleware.Auth(jwtService)(middleware.RequireAdmin(okHandler()))

	tests := []struct {
		name  string
		admin bool
		want  int
	}{
		{"admin", true, http.StatusOK},
		{"regular user", false, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ops/status", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+issue(t, jwtService, tt.admin))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	middleware.RequireAdmin(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserID_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetUserID(req.Context()))
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	handler := middleware.CORS([]string{"https://hitchpath.com"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/chatbot", http.NoBody)
	req.Header.Set("Origin", "https://hitchpath.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://hitchpath.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/chatbot", http.NoBody)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
