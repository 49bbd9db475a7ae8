package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string

	Auth0Domain          string
	APIAudience          string
	AuthAlgorithm        string
	AuthClockSkewSecs    int
	AuthDetailedErrors   bool
	JWKSCacheTTLSecs     int
	JWKSFetchTimeoutSecs int
	JWKSMinRefreshSecs   int

	CORSAllowOrigins []string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

var defaults = map[string]any{
	"HTTP_ADDR":                  ":8080",
	"LOG_LEVEL":                  "info",
	"AUTH_ALGORITHM":             "RS256",
	"AUTH_CLOCK_SKEW_SECONDS":    0,
	"AUTH_DETAILED_ERRORS":       false,
	"JWKS_CACHE_TTL_SECONDS":     300,
	"JWKS_FETCH_TIMEOUT_SECONDS": 5,
	"JWKS_MIN_REFRESH_SECONDS":   10,
	"CORS_ALLOW_ORIGINS":         "*",
	"RATE_LIMIT_REQUESTS":        0,
	"RATE_LIMIT_WINDOW_SECONDS":  60,
	"RATE_LIMIT_FAIL_CLOSED":     false,
	"RATE_LIMIT_MAX_KEYS":        10000,
	"REDIS_DB":                   0,
}

// Load reads the configuration from the environment, layered over the
// optional config file at path.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		HTTPAddr:               v.GetString("HTTP_ADDR"),
		DatabaseURL:            normalizeDatabaseURL(v.GetString("DATABASE_URL")),
		LogLevel:               v.GetString("LOG_LEVEL"),
		Auth0Domain:            normalizeDomain(v.GetString("AUTH0_DOMAIN")),
		APIAudience:            strings.TrimSpace(v.GetString("API_AUDIENCE")),
		AuthAlgorithm:          v.GetString("AUTH_ALGORITHM"),
		AuthClockSkewSecs:      nonNegative(v.GetInt("AUTH_CLOCK_SKEW_SECONDS")),
		AuthDetailedErrors:     v.GetBool("AUTH_DETAILED_ERRORS"),
		JWKSCacheTTLSecs:       nonNegative(v.GetInt("JWKS_CACHE_TTL_SECONDS")),
		JWKSFetchTimeoutSecs:   positiveOr(v.GetInt("JWKS_FETCH_TIMEOUT_SECONDS"), 5),
		JWKSMinRefreshSecs:     nonNegative(v.GetInt("JWKS_MIN_REFRESH_SECONDS")),
		CORSAllowOrigins:       splitCSV(v.GetString("CORS_ALLOW_ORIGINS")),
		RateLimitRequests:      nonNegative(v.GetInt("RATE_LIMIT_REQUESTS")),
		RateLimitWindowSeconds: positiveOr(v.GetInt("RATE_LIMIT_WINDOW_SECONDS"), 60),
		RateLimitFailClosed:    v.GetBool("RATE_LIMIT_FAIL_CLOSED"),
		RateLimitMaxKeys:       positiveOr(v.GetInt("RATE_LIMIT_MAX_KEYS"), 10000),
		RedisAddr:              v.GetString("REDIS_ADDR"),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                nonNegative(v.GetInt("REDIS_DB")),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Auth0Domain == "" {
		errs = append(errs, errors.New("AUTH0_DOMAIN is required"))
	}
	if c.APIAudience == "" {
		errs = append(errs, errors.New("API_AUDIENCE is required"))
	}
	return errors.Join(errs...)
}

// Issuer is the iss value tokens from the trust authority carry.
func (c Config) Issuer() string {
	return "https://" + c.Auth0Domain + "/"
}

func (c Config) ClockSkew() time.Duration {
	return time.Duration(c.AuthClockSkewSecs) * time.Second
}

func (c Config) JWKSCacheTTL() time.Duration {
	return time.Duration(c.JWKSCacheTTLSecs) * time.Second
}

func (c Config) JWKSFetchTimeout() time.Duration {
	return time.Duration(c.JWKSFetchTimeoutSecs) * time.Second
}

func (c Config) JWKSMinRefresh() time.Duration {
	return time.Duration(c.JWKSMinRefreshSecs) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// normalizeDatabaseURL rewrites the legacy postgres:// scheme some hosting
// providers still hand out.
func normalizeDatabaseURL(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if strings.HasPrefix(dsn, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(dsn, "postgres://")
	}
	return dsn
}

func normalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimPrefix(domain, "https://")
	return strings.TrimSuffix(domain, "/")
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
