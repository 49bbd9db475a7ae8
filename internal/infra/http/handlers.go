package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Bad Request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "resource not found",
	http.StatusMethodNotAllowed:    "Method Not Allowed",
	http.StatusUnprocessableEntity: "unprocessable",
	http.StatusTooManyRequests:     "Too Many Requests",
	http.StatusInternalServerError: "Internal Server Error",
	http.StatusServiceUnavailable:  "Service Unavailable",
}

type portfolioRequest struct {
	AssetClassDesc *string          `json:"asset_class_desc"`
	Weight         *decimal.Decimal `json:"weight"`
	BenchmarkDesc  *string          `json:"benchmark_desc"`
	SortID         *int64           `json:"sort_id"`
	BloombergQry   *string          `json:"bloomberg_qry"`
}

func (r portfolioRequest) complete() bool {
	return r.AssetClassDesc != nil && r.Weight != nil && r.BenchmarkDesc != nil && r.SortID != nil && r.BloombergQry != nil
}

func (r portfolioRequest) empty() bool {
	return r.AssetClassDesc == nil && r.Weight == nil && r.BenchmarkDesc == nil && r.SortID == nil && r.BloombergQry == nil
}

func (r portfolioRequest) patch() domain.PortfolioPatch {
	return domain.PortfolioPatch{
		AssetClassDesc: r.AssetClassDesc,
		Weight:         r.Weight,
		BenchmarkDesc:  r.BenchmarkDesc,
		SortID:         r.SortID,
		BloombergQuery: r.BloombergQry,
	}
}

type priceHistoryRequest struct {
	AssetType   *string          `json:"asset_type"`
	Price       *decimal.Decimal `json:"price"`
	Date        *string          `json:"date"`
	PortfolioID *int64           `json:"portfolio_id"`
}

func (r priceHistoryRequest) complete() bool {
	return r.AssetType != nil && r.Price != nil && r.Date != nil && r.PortfolioID != nil
}

var historyEditKeys = []string{"asset_type", "price", "date", "portfolio_id"}

// bindHistoryEdit decodes an edit body and reports whether every field is
// named. A key sent as null counts as named; patch then skips it like any
// other empty value.
func bindHistoryEdit(c *gin.Context) (priceHistoryRequest, bool, error) {
	var req priceHistoryRequest
	var keys map[string]any
	if err := c.ShouldBindBodyWith(&keys, binding.JSON); err != nil {
		return req, false, err
	}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		return req, false, err
	}
	for _, key := range historyEditKeys {
		if _, ok := keys[key]; !ok {
			return req, false, nil
		}
	}
	return req, true, nil
}

// patch keeps only the truthy fields; an edit cannot blank a value.
func (r priceHistoryRequest) patch() domain.PriceHistoryPatch {
	var p domain.PriceHistoryPatch
	if r.AssetType != nil {
		p.AssetType = *r.AssetType
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Date != nil {
		p.Date = *r.Date
	}
	if r.PortfolioID != nil {
		p.PortfolioID = *r.PortfolioID
	}
	return p
}

func (s *Server) handleListPortfolios(c *gin.Context, _ domain.ClaimSet) {
	portfolios, err := s.service.ListPortfolios(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if len(portfolios) == 0 {
		writeErrorCode(c, http.StatusNotFound, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "portfolios": portfolios})
}

func (s *Server) handleGetPortfolio(c *gin.Context, _ domain.ClaimSet) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	portfolio, err := s.service.GetPortfolio(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "portfolio": portfolio})
}

func (s *Server) handleCreatePortfolio(c *gin.Context, claims domain.ClaimSet) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "")
		return
	}
	if !req.complete() {
		writeErrorCode(c, http.StatusUnprocessableEntity, "")
		return
	}
	created, err := s.service.CreatePortfolio(c.Request.Context(), domain.Portfolio{
		AssetClassDesc: *req.AssetClassDesc,
		Weight:         *req.Weight,
		BenchmarkDesc:  *req.BenchmarkDesc,
		SortID:         *req.SortID,
		BloombergQuery: *req.BloombergQry,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	zap.L().Info("portfolio created", zap.Int64("id", created.ID), zap.String("subject", claims.Subject()))
	c.JSON(http.StatusOK, gin.H{"success": true, "created": created.ID})
}

func (s *Server) handleUpdatePortfolio(c *gin.Context, _ domain.ClaimSet) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "")
		return
	}
	if req.empty() {
		writeErrorCode(c, http.StatusUnprocessableEntity, "")
		return
	}
	updated, err := s.service.UpdatePortfolio(c.Request.Context(), id, req.patch())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated.ID})
}

// handleDeletePortfolio reports a missing portfolio as unprocessable, not
// as not found.
func (s *Server) handleDeletePortfolio(c *gin.Context, claims domain.ClaimSet) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.service.DeletePortfolio(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeErrorCode(c, http.StatusUnprocessableEntity, "")
			return
		}
		writeError(c, err)
		return
	}
	zap.L().Info("portfolio deleted", zap.Int64("id", id), zap.String("subject", claims.Subject()))
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": id})
}

func (s *Server) handleListHistories(c *gin.Context, _ domain.ClaimSet) {
	histories, err := s.service.ListPriceHistories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if len(histories) == 0 {
		writeErrorCode(c, http.StatusNotFound, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "asset_price_histories": histories})
}

func (s *Server) handleListPortfolioHistories(c *gin.Context, _ domain.ClaimSet) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	histories, err := s.service.ListPortfolioHistories(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(histories) == 0 {
		writeErrorCode(c, http.StatusNotFound, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "portfolio_id": id, "asset_price_histories": histories})
}

func (s *Server) handleCreateHistory(c *gin.Context, _ domain.ClaimSet) {
	var req priceHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "")
		return
	}
	if !req.complete() {
		writeErrorCode(c, http.StatusUnprocessableEntity, "")
		return
	}
	created, err := s.service.CreatePriceHistory(c.Request.Context(), domain.AssetPriceHistory{
		AssetType:   *req.AssetType,
		Price:       *req.Price,
		Date:        *req.Date,
		PortfolioID: *req.PortfolioID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "created": created.ID})
}

// handleEditHistory requires every field to be named, then applies only
// the non-empty ones. A missing record is checked before the body.
func (s *Server) handleEditHistory(c *gin.Context, _ domain.ClaimSet) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := s.service.GetPriceHistory(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	req, complete, err := bindHistoryEdit(c)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "")
		return
	}
	if !complete {
		writeErrorCode(c, http.StatusUnprocessableEntity, "")
		return
	}
	updated, err := s.service.EditPriceHistory(c.Request.Context(), id, req.patch())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated.ID})
}

func (s *Server) handleDeleteHistory(c *gin.Context, _ domain.ClaimSet) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.service.DeletePriceHistory(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": id})
}

// pathID parses the :id segment. Anything but a positive integer is a
// route miss.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorCode(c, http.StatusNotFound, "")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrConflict):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDBUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err), zap.String("route", c.FullPath()))
	}
	writeErrorCode(c, status, "")
}

// writeErrorCode aborts with the shared error envelope. An empty message
// selects the standard text for the status.
func writeErrorCode(c *gin.Context, status int, message string) {
	if message == "" {
		message = statusMessages[status]
		if message == "" {
			message = http.StatusText(status)
		}
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Success: false,
		Error:   status,
		Message: message,
	})
}
