// Package authtest runs an in-process trust authority for tests: a TLS JWKS
// endpoint plus RS256 token minting.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultKeyID    = "kid-1"
	DefaultAudience = "portfolio-api"
)

var (
	keysOnce   sync.Once
	sharedKeys [2]*rsa.PrivateKey
)

// Keys returns two RSA keys shared by every test in the process.
func Keys(t testing.TB) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		for i := range sharedKeys {
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			sharedKeys[i] = key
		}
	})
	return sharedKeys[0], sharedKeys[1]
}

func PublicJWK(key *rsa.PrivateKey, kid string) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       &key.PublicKey,
		KeyID:     kid,
		Algorithm: "RS256",
		Use:       "sig",
	}
}

type Authority struct {
	Server   *httptest.Server
	Key      *rsa.PrivateKey
	KeyID    string
	Audience string

	requests atomic.Int32

	mu     sync.Mutex
	status int
	body   []byte
}

func NewAuthority(t testing.TB) *Authority {
	t.Helper()
	key, _ := Keys(t)
	a := &Authority{
		Key:      key,
		KeyID:    DefaultKeyID,
		Audience: DefaultAudience,
		status:   http.StatusOK,
	}
	a.SetKeys(t, PublicJWK(key, DefaultKeyID))
	a.Server = httptest.NewTLSServer(http.HandlerFunc(a.serveJWKS))
	t.Cleanup(a.Server.Close)
	return a
}

func (a *Authority) serveJWKS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/.well-known/jwks.json" {
		http.NotFound(w, r)
		return
	}
	a.requests.Add(1)
	a.mu.Lock()
	status, body := a.status, a.body
	a.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Domain is the host:port the authority is reachable at over https.
func (a *Authority) Domain() string {
	return strings.TrimPrefix(a.Server.URL, "https://")
}

func (a *Authority) Issuer() string {
	return "https://" + a.Domain() + "/"
}

// Client trusts the authority's test certificate.
func (a *Authority) Client() *http.Client {
	return a.Server.Client()
}

func (a *Authority) Requests() int {
	return int(a.requests.Load())
}

func (a *Authority) SetKeys(t testing.TB, keys ...jose.JSONWebKey) {
	t.Helper()
	body, err := json.Marshal(jose.JSONWebKeySet{Keys: keys})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	a.SetDocument(http.StatusOK, body)
}

// SetDocument replaces the raw response served at the JWKS endpoint.
func (a *Authority) SetDocument(code int, body []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = code
	a.body = body
}

func (a *Authority) FailWith(code int) {
	a.SetDocument(code, []byte(`{"error":"unavailable"}`))
}

// Claims returns a claim set the authority's validator accepts, holding the
// given permissions.
func (a *Authority) Claims(permissions ...string) jwt.MapClaims {
	now := time.Now()
	perms := make([]any, 0, len(permissions))
	for _, p := range permissions {
		perms = append(perms, p)
	}
	return jwt.MapClaims{
		"iss":         a.Issuer(),
		"sub":         "auth0|test-user",
		"aud":         []any{a.Audience, a.Issuer() + "userinfo"},
		"iat":         now.Add(-time.Minute).Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"permissions": perms,
	}
}

// Token signs claims with the authority's current key.
func (a *Authority) Token(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	return SignRS256(t, a.Key, a.KeyID, claims)
}

func SignRS256(t testing.TB, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
