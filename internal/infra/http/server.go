package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/config"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/auth/jwks"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/auth/oidc"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/auth/rbac"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/db"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/metrics"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/ratelimit"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/usecase"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	healthPingTimeout = 2 * time.Second
)

type Server struct {
	cfg     config.Config
	r       *gin.Engine
	service *usecase.PortfolioService
	metrics *metrics.Metrics
	mode    string
	ping    func(context.Context) error

	authenticator domain.Authenticator
	authorizer    domain.Authorizer
	authInitErr   error
	corsInitErr   error

	rateLimiter         domain.RateLimiter
	rateLimitClose      func() error
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

// NewServer wires the API against the given store. A store without a
// database still serves, with every record operation reporting
// unavailability.
func NewServer(cfg config.Config, store *db.Store) *Server {
	var gdb *gorm.DB
	var ping func(context.Context) error
	if store != nil && store.DB != nil {
		gdb = store.DB
		ping = store.Ping
	}
	return NewServerWithDeps(cfg, ServerDeps{
		Service: usecase.NewPortfolioService(db.NewPortfolioRepository(gdb), db.NewPriceHistoryRepository(gdb)),
		Mode:    store.Mode(),
		Ping:    ping,
	})
}

type ServerDeps struct {
	Service       *usecase.PortfolioService
	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   domain.RateLimiter
	Metrics       *metrics.Metrics
	// KeyClient fetches the trust authority's key set when no
	// Authenticator is supplied.
	KeyClient *http.Client
	Mode      string
	// Ping reports whether the record store is reachable; /healthz answers
	// 503 while it fails.
	Ping func(context.Context) error
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	s := &Server{
		cfg:            cfg,
		service:        deps.Service,
		metrics:        deps.Metrics,
		mode:           deps.Mode,
		ping:           deps.Ping,
		authenticator:  deps.Authenticator,
		authorizer:     deps.Authorizer,
		rateLimitClose: func() error { return nil },
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.mode == "" {
		s.mode = "no-db"
	}

	s.r = gin.New()
	s.r.HandleMethodNotAllowed = true
	s.r.Use(requestLogger(s.metrics), gin.CustomRecovery(recoverPanic))
	if corsCfg, err := corsConfig(cfg.CORSAllowOrigins); err != nil {
		s.corsInitErr = err
	} else {
		s.r.Use(cors.New(corsCfg))
	}

	s.initAuth(deps.KeyClient)
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initAuth(keyClient *http.Client) {
	if s.authorizer == nil {
		s.authorizer = rbac.NewAuthorizer()
	}
	if s.authenticator != nil {
		return
	}
	if err := s.cfg.Validate(); err != nil {
		s.authInitErr = err
		return
	}
	resolver := jwks.NewResolver(s.cfg.Auth0Domain,
		jwks.WithHTTPClient(keyClient),
		jwks.WithCacheTTL(s.cfg.JWKSCacheTTL()),
		jwks.WithFetchTimeout(s.cfg.JWKSFetchTimeout()),
		jwks.WithMinRefreshInterval(s.cfg.JWKSMinRefresh()),
		jwks.WithFetchObserver(s.metrics.JWKSFetched),
	)
	authenticator, err := oidc.NewAuthenticator(s.cfg, resolver)
	if err != nil {
		s.authInitErr = err
		return
	}
	s.authenticator = authenticator
	zap.L().Info("trust authority configured",
		zap.String("jwks_url", resolver.URL()),
		zap.String("issuer", s.cfg.Issuer()),
		zap.String("audience", s.cfg.APIAudience),
	)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
	if override != nil {
		s.rateLimiter = override
		return
	}
	if s.rateLimitRequests <= 0 {
		return
	}
	limiter, closeFn, err := ratelimit.New(context.Background(), s.cfg)
	if err != nil {
		zap.L().Warn("redis rate limiter unavailable; falling back to in-process windows", zap.Error(err))
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryOptions{MaxKeys: s.cfg.RateLimitMaxKeys})
		closeFn = func() error { return nil }
	}
	s.rateLimiter = limiter
	s.rateLimitClose = closeFn
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealthz)
	s.r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.r.GET("/portfolios", s.protect(permGetPortfolios, s.handleListPortfolios))
	s.r.POST("/portfolios", s.protect(permPostPortfolios, s.handleCreatePortfolio))
	s.r.GET("/portfolios/:id", s.protect(permGetPortfolios, s.handleGetPortfolio))
	s.r.PATCH("/portfolios/:id", s.protect(permPatchPortfolios, s.handleUpdatePortfolio))
	s.r.DELETE("/portfolios/:id", s.protect(permDeletePortfolios, s.handleDeletePortfolio))
	s.r.GET("/portfolios/:id/asset_price_histories", s.protect(permGetHistories, s.handleListPortfolioHistories))

	s.r.GET("/asset_price_histories", s.protect(permGetHistories, s.handleListHistories))
	s.r.POST("/asset_price_histories", s.protect(permPostHistories, s.handleCreateHistory))
	s.r.PATCH("/asset_price_histories/:id/edit", s.protect(permPatchHistories, s.handleEditHistory))
	s.r.DELETE("/asset_price_histories/:id", s.protect(permDeleteHistories, s.handleDeleteHistory))

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "")
	})
	s.r.NoMethod(func(c *gin.Context) {
		writeErrorCode(c, http.StatusMethodNotAllowed, "")
	})
}

func (s *Server) handleHealthz(c *gin.Context) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			zap.L().Warn("database ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "mode": s.mode})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.mode})
}

func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) initErr() error {
	return errors.Join(s.authInitErr, s.corsInitErr)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	if err := s.initErr(); err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	zap.L().Info("portfolio api listening", zap.String("addr", s.cfg.HTTPAddr), zap.String("mode", s.mode))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) Close() error {
	return s.rateLimitClose()
}

func corsConfig(origins []string) (cors.Config, error) {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg, cfg.Validate()
}

func recoverPanic(c *gin.Context, recovered any) {
	zap.L().Error("panic serving request", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
	writeErrorCode(c, http.StatusInternalServerError, "")
}
