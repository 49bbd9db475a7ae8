package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/auth/bearer"
)

const claimsContextKey = "claims"

const (
	permGetPortfolios    = "get:portfolios"
	permPostPortfolios   = "post:portfolios"
	permPatchPortfolios  = "patch:portfolios"
	permDeletePortfolios = "delete:portfolios"
	permGetHistories     = "get:asset_price_histories"
	permPostHistories    = "post:asset_price_histories"
	permPatchHistories   = "patch:asset_price_histories"
	permDeleteHistories  = "delete:asset_price_histories"
)

// protectedHandler receives the verified claims of the caller.
type protectedHandler func(c *gin.Context, claims domain.ClaimSet)

// protect runs extraction, validation and permission enforcement in that
// order, stopping at the first failure. next only runs once all three pass.
func (s *Server) protect(permission string, next protectedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authInitErr != nil || s.authenticator == nil || s.authorizer == nil {
			zap.L().Error("authorization is not configured", zap.Error(s.authInitErr))
			writeErrorCode(c, http.StatusInternalServerError, "")
			return
		}

		token, err := bearer.Extract(c.GetHeader("Authorization"))
		if err != nil {
			s.rejectAuth(c, permission, err, false)
			return
		}
		claims, err := s.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.rejectAuth(c, permission, err, true)
			return
		}
		if err := s.authorizer.Require(claims, permission); err != nil {
			s.rejectAuth(c, permission, err, true)
			return
		}

		c.Set(claimsContextKey, claims)
		if !s.enforceRateLimit(c, permission, claims.Subject()) {
			return
		}
		next(c, claims)
	}
}

// rejectAuth writes the rejection envelope. Validation and permission
// failures collapse to a bare 401 unless detailed errors are enabled; an
// unreachable trust authority always reports 503.
func (s *Server) rejectAuth(c *gin.Context, permission string, err error, collapse bool) {
	authErr, ok := domain.AsAuthError(err)
	if !ok {
		authErr = domain.NewAuthError(domain.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized).WithCause(err)
	}
	s.metrics.AuthRejected(authErr.Code)
	zap.L().Warn("request rejected",
		zap.String("code", authErr.Code),
		zap.Int("status", authErr.Status),
		zap.String("permission", permission),
		zap.String("route", c.FullPath()),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.NamedError("cause", authErr.Err),
	)

	status, message := authErr.Status, authErr.Description
	if collapse && !s.cfg.AuthDetailedErrors && authErr.Code != domain.CodeValidationFailed {
		status, message = http.StatusUnauthorized, ""
	}
	writeErrorCode(c, status, message)
}

func claimsFromContext(c *gin.Context) (domain.ClaimSet, bool) {
	raw, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := raw.(domain.ClaimSet)
	return claims, ok
}
