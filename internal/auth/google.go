package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/provider/resilience"
)

const (
	// GoogleKeysURL serves the keys that sign Google ID tokens.
	GoogleKeysURL = "https://www.googleapis.com/oauth2/v3/certs"

	// GoogleProviderName is the resilience registry entry for key fetches.
	GoogleProviderName = "google-jwks"

	keyCacheRefreshInterval = 6 * time.Hour
)

// Google signs ID tokens with either issuer form.
var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// Predefined errors for Google ID token verification.
var (
	ErrInvalidToken       = errors.New("invalid identity token")
	ErrTokenExpired       = errors.New("identity token has expired")
	ErrInvalidIssuer      = errors.New("invalid token issuer")
	ErrInvalidAudience    = errors.New("invalid token audience")
	ErrKeyNotFound        = errors.New("signing key not found")
	ErrFetchingGoogleKeys = errors.New("failed to fetch Google public keys")
	ErrInvalidKeyFormat   = errors.New("invalid key format")
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// HTTPDoer is satisfied by *http.Client and *resilience.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GoogleConfig holds configuration for the Google verifier.
type GoogleConfig struct {
	// ClientID is the OAuth client id the tokens must be issued to.
	ClientID string

	// KeysURL overrides GoogleKeysURL.
	KeysURL string

	// HTTPClient defaults to a resilient client registered in Registry.
	HTTPClient HTTPDoer
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// GoogleVerifier verifies Google ID tokens against Google's published keys.
type GoogleVerifier struct {
	httpClient HTTPDoer
	clientID   string
	keysURL    string
	logger     zerolog.Logger

	mu            sync.RWMutex
	keys          map[string]*rsa.PublicKey
	keysUpdatedAt time.Time
}

// NewGoogleVerifier creates a verifier for tokens issued to cfg.ClientID.
func NewGoogleVerifier(cfg GoogleConfig) *GoogleVerifier {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:     GoogleProviderName,
			Retry:    resilience.RetryLookups,
			Registry: cfg.Registry,
		})
	}
	keysURL := cfg.KeysURL
	if keysURL == "" {
		keysURL = GoogleKeysURL
	}

	return &GoogleVerifier{
		httpClient: httpClient,
		clientID:   cfg.ClientID,
		keysURL:    keysURL,
		logger:     cfg.Logger,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Verify checks the token's signature, issuer, audience and expiry and
// returns the identity it asserts.
func (v *GoogleVerifier) Verify(ctx context.Context, tokenString string) (*GoogleIdentity, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, &googleClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	kid, ok := unverified.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("%w: missing key ID", ErrInvalidToken)
	}

	// jwt.WithIssuer accepts a single value, so the issuer is checked below.
	iss, _ := unverified.Claims.GetIssuer()
	if !validGoogleIssuer(iss) {
		return nil, ErrInvalidIssuer
	}

	publicKey, err := v.getPublicKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	token, err := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(iss),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	).ParseWithClaims(tokenString, &googleClaims{}, func(*jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrInvalidAudience
		default:
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
		}
	}

	gc, ok := token.Claims.(*googleClaims)
	if !ok || !token.Valid || gc.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &GoogleIdentity{
		Subject:       gc.Subject,
		Email:         gc.Email,
		EmailVerified: gc.EmailVerified,
		Name:          gc.Name,
	}, nil
}

func validGoogleIssuer(iss string) bool {
	for _, want := range googleIssuers {
		if iss == want {
			return true
		}
	}
	return false
}

func (v *GoogleVerifier) getPublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	stale := time.Since(v.keysUpdatedAt) > keyCacheRefreshInterval
	v.mu.RUnlock()

	if ok && !stale {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		// A stale key beats no key while Google is unreachable.
		if ok {
			v.logger.Warn().Err(err).Msg("using stale Google signing key")
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	key, ok = v.keys[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (v *GoogleVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFetchingGoogleKeys, err.Error())
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFetchingGoogleKeys, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrFetchingGoogleKeys, resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: %s", ErrFetchingGoogleKeys, err.Error())
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaPublicKey(k)
		if err != nil {
			v.logger.Debug().Err(err).Str("kid", k.Kid).Msg("skipping Google key")
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.keysUpdatedAt = time.Now()
	v.mu.Unlock()

	v.logger.Debug().Int("keys", len(keys)).Msg("refreshed Google signing keys")
	return nil
}

func rsaPublicKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid modulus", ErrInvalidKeyFormat)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil || len(eBytes) == 0 {
		return nil, fmt.Errorf("%w: invalid exponent", ErrInvalidKeyFormat)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
