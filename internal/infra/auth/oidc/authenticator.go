package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/config"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/auth/jwks"
)

const defaultAlgorithm = "RS256"

var (
	errMalformed = domain.NewAuthError(domain.CodeInvalidHeader, "Unable to parse authentication token.", http.StatusBadRequest)
	errNoKeyID   = domain.NewAuthError(domain.CodeInvalidHeader, "Authorization malformed.", http.StatusUnauthorized)
	errNoKey     = domain.NewAuthError(domain.CodeInvalidHeader, "Unable to find the appropriate key.", http.StatusBadRequest)
	errExpired   = domain.NewAuthError(domain.CodeTokenExpired, "Token expired.", http.StatusUnauthorized)
	errClaims    = domain.NewAuthError(domain.CodeInvalidClaims, "Incorrect claims. Please, check the audience and issuer.", http.StatusUnauthorized)
	errKeysDown  = domain.NewAuthError(domain.CodeValidationFailed, "Unable to fetch signing keys.", http.StatusServiceUnavailable)
)

// KeyResolver looks up a trust authority's public signing key by identifier.
type KeyResolver interface {
	Lookup(ctx context.Context, kid string) (jwks.SigningKey, error)
}

// Authenticator verifies bearer credentials issued by one trust authority.
type Authenticator struct {
	issuer    string
	audience  string
	algorithm string
	leeway    time.Duration
	keys      KeyResolver
	now       func() time.Time
}

type Option func(*Authenticator)

func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

func WithLeeway(leeway time.Duration) Option {
	return func(a *Authenticator) {
		if leeway >= 0 {
			a.leeway = leeway
		}
	}
}

func NewAuthenticator(cfg config.Config, keys KeyResolver, opts ...Option) (*Authenticator, error) {
	if strings.TrimSpace(cfg.Auth0Domain) == "" {
		return nil, errors.New("AUTH0_DOMAIN is required")
	}
	if strings.TrimSpace(cfg.APIAudience) == "" {
		return nil, errors.New("API_AUDIENCE is required")
	}
	if keys == nil {
		return nil, errors.New("key resolver is required")
	}
	alg := strings.ToUpper(strings.TrimSpace(cfg.AuthAlgorithm))
	if alg == "" {
		alg = defaultAlgorithm
	}
	if _, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.AuthAlgorithm)
	}
	a := &Authenticator{
		issuer:    cfg.Issuer(),
		audience:  cfg.APIAudience,
		algorithm: alg,
		leeway:    cfg.ClockSkew(),
		keys:      keys,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate returns the claims of a credential once its signature, expiry,
// audience and issuer all check out. The signature is verified before any
// claim is looked at.
func (a *Authenticator) Authenticate(ctx context.Context, bearerToken string) (domain.ClaimSet, error) {
	if a == nil {
		return nil, errMalformed
	}
	unverified, _, err := jwt.NewParser().ParseUnverified(bearerToken, jwt.MapClaims{})
	if err != nil {
		return nil, errMalformed.WithCause(err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, errNoKeyID
	}

	key, err := a.keys.Lookup(ctx, kid)
	if err != nil {
		if errors.Is(err, jwks.ErrKeyNotFound) {
			return nil, errNoKey.WithCause(err)
		}
		return nil, errKeysDown.WithCause(err)
	}

	claims := jwt.MapClaims{}
	token, err := a.parser().ParseWithClaims(bearerToken, claims, func(*jwt.Token) (any, error) {
		return key.Public, nil
	})
	if err != nil {
		zap.L().Debug("credential rejected", zap.String("kid", kid), zap.Error(err))
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, errMalformed
	}
	return domain.ClaimSet(claims), nil
}

func (a *Authenticator) parser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{a.algorithm}),
		jwt.WithAudience(a.audience),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
		jwt.WithTimeFunc(a.now),
	)
}

// classify maps a parse failure onto the error taxonomy. Expiry wins over
// the other claim checks.
func classify(err error) *domain.AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return errMalformed.WithCause(err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return errExpired.WithCause(err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return errClaims.WithCause(err)
	default:
		return errMalformed.WithCause(err)
	}
}
