// Package jwks resolves the public signing keys a trust authority publishes
// at its well-known JWKS endpoint.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	wellKnownPath = "/.well-known/jwks.json"

	defaultCacheTTL     = 5 * time.Minute
	defaultFetchTimeout = 5 * time.Second
	defaultMinRefresh   = 10 * time.Second

	maxDocumentBytes = 1 << 20
	refreshKey       = "jwks"
)

var (
	ErrKeyNotFound = errors.New("jwks key not found")
	ErrFetchFailed = errors.New("jwks fetch failed")
)

// Fetch outcomes reported to the observer.
const (
	FetchSuccess = "success"
	FetchFailure = "failure"
)

// SigningKey is one RSA signature key from the published set.
type SigningKey struct {
	KeyType string
	KeyID   string
	Use     string
	N       string
	E       string
	Public  *rsa.PublicKey
}

// KeySet maps key identifiers to keys. Identifiers are unique within a set.
type KeySet map[string]SigningKey

func (s KeySet) Lookup(kid string) (SigningKey, bool) {
	key, ok := s[kid]
	return key, ok
}

// keyDescriptor holds the only JWK members the resolver consumes.
type keyDescriptor struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type document struct {
	Keys []json.RawMessage `json:"keys"`
}

// Resolver fetches and caches the key set of one trust authority. A zero
// cache TTL fetches the set on every call.
type Resolver struct {
	url          string
	httpClient   *http.Client
	ttl          time.Duration
	fetchTimeout time.Duration
	minRefresh   time.Duration
	now          func() time.Time
	observe      func(result string)

	mu        sync.RWMutex
	keys      KeySet
	fetchedAt time.Time
	expiresAt time.Time

	group singleflight.Group
}

type Option func(*Resolver)

func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl >= 0 {
			r.ttl = ttl
		}
	}
}

func WithFetchTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.fetchTimeout = timeout
		}
	}
}

// WithMinRefreshInterval bounds how often a key identifier miss may force a
// refetch of a still-fresh set.
func WithMinRefreshInterval(interval time.Duration) Option {
	return func(r *Resolver) {
		if interval >= 0 {
			r.minRefresh = interval
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func WithFetchObserver(observe func(result string)) Option {
	return func(r *Resolver) {
		if observe != nil {
			r.observe = observe
		}
	}
}

// URLForDomain returns the JWKS endpoint of the trust authority at domain.
func URLForDomain(domain string) string {
	domain = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(domain), "https://"), "/")
	return "https://" + domain + wellKnownPath
}

func NewResolver(domain string, opts ...Option) *Resolver {
	r := &Resolver{
		url:          URLForDomain(domain),
		httpClient:   &http.Client{},
		ttl:          defaultCacheTTL,
		fetchTimeout: defaultFetchTimeout,
		minRefresh:   defaultMinRefresh,
		now:          time.Now,
		observe:      func(string) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) URL() string {
	return r.url
}

// KeySet returns the current key set, fetching it when the cached copy is
// missing or expired.
func (r *Resolver) KeySet(ctx context.Context) (KeySet, error) {
	if keys, ok := r.cached(); ok {
		return keys, nil
	}
	return r.refresh(ctx)
}

// Lookup returns the key with the given identifier. A miss against a cached
// set triggers at most one refetch per minimum refresh interval.
func (r *Resolver) Lookup(ctx context.Context, kid string) (SigningKey, error) {
	if kid == "" {
		return SigningKey{}, ErrKeyNotFound
	}
	keys, err := r.KeySet(ctx)
	if err != nil {
		return SigningKey{}, err
	}
	if key, ok := keys.Lookup(kid); ok {
		return key, nil
	}
	if !r.canForceRefresh() {
		return SigningKey{}, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	keys, err = r.refresh(ctx)
	if err != nil {
		return SigningKey{}, err
	}
	if key, ok := keys.Lookup(kid); ok {
		return key, nil
	}
	return SigningKey{}, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
}

func (r *Resolver) cached() (KeySet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.keys == nil || r.ttl == 0 {
		return nil, false
	}
	if !r.now().Before(r.expiresAt) {
		return nil, false
	}
	return r.keys, true
}

func (r *Resolver) canForceRefresh() bool {
	if r.ttl == 0 {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.now().Sub(r.fetchedAt) >= r.minRefresh
}

func (r *Resolver) refresh(ctx context.Context) (KeySet, error) {
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		keys, err := r.fetch(fetchCtx)
		if err != nil {
			r.observe(FetchFailure)
			zap.L().Warn("JWKS fetch failed", zap.String("url", r.url), zap.Error(err))
			return nil, err
		}
		r.observe(FetchSuccess)

		now := r.now()
		r.mu.Lock()
		r.keys = keys
		r.fetchedAt = now
		r.expiresAt = now.Add(r.ttl)
		r.mu.Unlock()
		zap.L().Debug("JWKS refreshed", zap.String("url", r.url), zap.Int("keys", len(keys)))
		return keys, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(KeySet), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
	}
}

func (r *Resolver) fetch(ctx context.Context) (KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}
	var doc document
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrFetchFailed, err)
	}
	keys := make(KeySet, len(doc.Keys))
	for _, raw := range doc.Keys {
		key, ok := parseKey(raw)
		if !ok {
			continue
		}
		if _, dup := keys[key.KeyID]; dup {
			continue
		}
		keys[key.KeyID] = key
	}
	if len(keys) == 0 {
		zap.L().Warn("JWKS document has no usable signing keys", zap.String("url", r.url), zap.Int("published", len(doc.Keys)))
	}
	return keys, nil
}

// parseKey keeps RSA signature keys only and rebuilds the public key from
// kty, kid, use, n and e. Every other member of the JWK is ignored.
func parseKey(raw json.RawMessage) (SigningKey, bool) {
	var desc keyDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return SigningKey{}, false
	}
	if desc.Kty != "RSA" || desc.Kid == "" || desc.N == "" || desc.E == "" {
		return SigningKey{}, false
	}
	if desc.Use != "" && desc.Use != "sig" {
		return SigningKey{}, false
	}
	trimmed, err := json.Marshal(desc)
	if err != nil {
		return SigningKey{}, false
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(trimmed); err != nil {
		return SigningKey{}, false
	}
	pub, ok := jwk.Key.(*rsa.PublicKey)
	if !ok {
		return SigningKey{}, false
	}
	return SigningKey{
		KeyType: desc.Kty,
		KeyID:   desc.Kid,
		Use:     desc.Use,
		N:       desc.N,
		E:       desc.E,
		Public:  pub,
	}, true
}
