package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/auth"
)

const testClientID = "hitchpath-client.apps.googleusercontent.com"

type googleKeys struct {
	key     *rsa.PrivateKey
	kid     string
	fetches atomic.Int32
	server  *httptest.Server
}

func newGoogleKeys(t *testing.T) *googleKeys {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	g := &googleKeys{key: key, kid: "test-kid"}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.fetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": g.kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *googleKeys) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = g.kid
	s, err := token.SignedString(g.key)
	require.NoError(t, err)
	return s
}

func (g *googleKeys) verifier() *auth.GoogleVerifier {
	return auth.NewGoogleVerifier(auth.GoogleConfig{
		ClientID:   testClientID,
		KeysURL:    g.server.URL,
		HTTPClient: g.server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func validClaims(iss string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            iss,
		"aud":            testClientID,
		"sub":            "1098765",
		"email":          "grace@example.com",
		"email_verified": true,
		"name":           "Grace Hopper",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
}

func TestGoogleVerifier_Valid(t *testing.T) {
	g := newGoogleKeys(t)
	v := g.verifier()

	for _, iss := range []string{"accounts.google.com", "https://accounts.google.com"} {
		t.Run(iss, func(t *testing.T) {
			id, err := v.Verify(context.Background(), g.sign(t, validClaims(iss)))
			require.NoError(t, err)
			assert.Equal(t, "1098765", id.Subject)
			assert.Equal(t, "grace@example.com", id.Email)
			assert.True(t, id.EmailVerified)
			assert.Equal(t, "Grace Hopper", id.Name)
		})
	}

	// Keys are cached between verifications.
	assert.Equal(t, int32(1), g.fetches.Load())
}

func TestGoogleVerifier_Rejects(t *testing.T) {
	g := newGoogleKeys(t)
	v := g.verifier()

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		want   error
	}{
		{"wrong issuer", func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }, auth.ErrInvalidIssuer},
		{"wrong audience", func(c jwt.MapClaims) { c["aud"] = "someone-else" }, auth.ErrInvalidAudience},
		{"expired", func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }, auth.ErrTokenExpired},
		{"no expiry", func(c jwt.MapClaims) { delete(c, "exp") }, auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims("https://accounts.google.com")
			tt.mutate(claims)
			_, err := v.Verify(context.Background(), g.sign(t, claims))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGoogleVerifier_UnknownKey(t *testing.T) {
	g := newGoogleKeys(t)
	v := g.verifier()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("accounts.google.com"))
	token.Header["kid"] = "rotated-away"
	s, err := token.SignedString(g.key)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), s)
	assert.ErrorIs(t, err, auth.ErrKeyNotFound)
}

func TestGoogleVerifier_Garbage(t *testing.T) {
	g := newGoogleKeys(t)
	_, err := g.verifier().Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
