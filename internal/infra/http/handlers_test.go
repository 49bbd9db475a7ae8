package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPortfoliosEmptyIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	assertEnvelope(t, env.as(t, http.MethodGet, "/portfolios", nil, permGetPortfolios), http.StatusNotFound, "resource not found")
}

func TestGetPortfolio(t *testing.T) {
	env := newTestEnv(t)
	env.seedPortfolio(t)

	w := env.as(t, http.MethodGet, "/portfolios/1", nil, permGetPortfolios)
	require.Equal(t, http.StatusOK, w.Code)
	portfolio := decodeBody(t, w)["portfolio"].(map[string]any)
	assert.Equal(t, "Equities", portfolio["asset_class_desc"])
	assert.Equal(t, 0.6, portfolio["weight"])
	assert.Equal(t, "MXWD Index", portfolio["bloomberg_qry"])

	assertEnvelope(t, env.as(t, http.MethodGet, "/portfolios/2", nil, permGetPortfolios), http.StatusNotFound, "resource not found")
	assertEnvelope(t, env.as(t, http.MethodGet, "/portfolios/abc", nil, permGetPortfolios), http.StatusNotFound, "resource not found")
}

func TestCreatePortfolio(t *testing.T) {
	env := newTestEnv(t)

	w := env.as(t, http.MethodPost, "/portfolios", map[string]any{
		"asset_class_desc": "Bonds",
		"weight":           0.25,
		"benchmark_desc":   "Bloomberg Global Aggregate",
		"sort_id":          2,
		"bloomberg_qry":    "LEGATRUU Index",
	}, permPostPortfolios)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"success": true, "created": float64(1)}, decodeBody(t, w))

	stored, err := env.store.Portfolios().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, stored.Weight.Equal(decimal.RequireFromString("0.25")))
}

func TestCreatePortfolioRejectsIncompleteOrInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.as(t, http.MethodPost, "/portfolios", map[string]any{"asset_class_desc": "Bonds"}, permPostPortfolios)
	assertEnvelope(t, w, http.StatusUnprocessableEntity, "unprocessable")

	w = env.as(t, http.MethodPost, "/portfolios", map[string]any{
		"asset_class_desc": "",
		"weight":           0.25,
		"benchmark_desc":   "x",
		"sort_id":          2,
		"bloomberg_qry":    "y",
	}, permPostPortfolios)
	assertEnvelope(t, w, http.StatusUnprocessableEntity, "unprocessable")

	w = env.as(t, http.MethodPost, "/portfolios", "{not json", permPostPortfolios)
	assertEnvelope(t, w, http.StatusBadRequest, "Bad Request")
}

func TestUpdatePortfolio(t *testing.T) {
	env := newTestEnv(t)
	env.seedPortfolio(t)

	w := env.as(t, http.MethodPatch, "/portfolios/1", map[string]any{"weight": "0.55"}, permPatchPortfolios)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decodeBody(t, w)["updated"])

	stored, err := env.store.Portfolios().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, stored.Weight.Equal(decimal.RequireFromString("0.55")))
	assert.Equal(t, "MSCI ACWI", stored.BenchmarkDesc)

	assertEnvelope(t, env.as(t, http.MethodPatch, "/portfolios/1", map[string]any{}, permPatchPortfolios),
		http.StatusUnprocessableEntity, "unprocessable")
	assertEnvelope(t, env.as(t, http.MethodPatch, "/portfolios/9", map[string]any{"sort_id": 3}, permPatchPortfolios),
		http.StatusNotFound, "resource not found")
}

func TestDeletePortfolio(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedPortfolio(t)
	h := env.seedHistory(t, p.ID)

	assertEnvelope(t, env.as(t, http.MethodDelete, "/portfolios/1", nil, permDeletePortfolios),
		http.StatusUnprocessableEntity, "unprocessable")

	require.NoError(t, env.store.Histories().Delete(context.Background(), h.ID))
	w := env.as(t, http.MethodDelete, "/portfolios/1", nil, permDeletePortfolios)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"success": true, "deleted": float64(1)}, decodeBody(t, w))

	assertEnvelope(t, env.as(t, http.MethodDelete, "/portfolios/1", nil, permDeletePortfolios),
		http.StatusUnprocessableEntity, "unprocessable")
}

func TestListPriceHistories(t *testing.T) {
	env := newTestEnv(t)
	assertEnvelope(t, env.as(t, http.MethodGet, "/asset_price_histories", nil, permGetHistories),
		http.StatusNotFound, "resource not found")

	p := env.seedPortfolio(t)
	env.seedHistory(t, p.ID)

	w := env.as(t, http.MethodGet, "/asset_price_histories", nil, permGetHistories)
	require.Equal(t, http.StatusOK, w.Code)
	histories := decodeBody(t, w)["asset_price_histories"].([]any)
	require.Len(t, histories, 1)
	entry := histories[0].(map[string]any)
	assert.Equal(t, 101.25, entry["price"])
	assert.Equal(t, "2024-01-31", entry["date"])
	assert.Equal(t, float64(p.ID), entry["portfolio_id"])

	w = env.as(t, http.MethodGet, "/portfolios/1/asset_price_histories", nil, permGetHistories)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["asset_price_histories"], 1)

	assertEnvelope(t, env.as(t, http.MethodGet, "/portfolios/5/asset_price_histories", nil, permGetHistories),
		http.StatusNotFound, "resource not found")
}

func TestCreatePriceHistory(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedPortfolio(t)

	body := map[string]any{"asset_type": "Equities", "price": 99.5, "date": "2024-02-29", "portfolio_id": p.ID}
	w := env.as(t, http.MethodPost, "/asset_price_histories", body, permPostHistories)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decodeBody(t, w)["created"])

	body["portfolio_id"] = 77
	assertEnvelope(t, env.as(t, http.MethodPost, "/asset_price_histories", body, permPostHistories),
		http.StatusUnprocessableEntity, "unprocessable")

	assertEnvelope(t, env.as(t, http.MethodPost, "/asset_price_histories", map[string]any{"asset_type": "x"}, permPostHistories),
		http.StatusUnprocessableEntity, "unprocessable")
}

func TestEditPriceHistory(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedPortfolio(t)
	h := env.seedHistory(t, p.ID)

	w := env.as(t, http.MethodPatch, "/asset_price_histories/1/edit", map[string]any{
		"asset_type":   "",
		"price":        102.75,
		"date":         "",
		"portfolio_id": 0,
	}, permPatchHistories)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(h.ID), decodeBody(t, w)["updated"])

	stored, err := env.store.Histories().Get(context.Background(), h.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("102.75")))
	assert.Equal(t, h.AssetType, stored.AssetType)
	assert.Equal(t, h.Date, stored.Date)
	assert.Equal(t, h.PortfolioID, stored.PortfolioID)

	assertEnvelope(t, env.as(t, http.MethodPatch, "/asset_price_histories/1/edit", map[string]any{"price": 1}, permPatchHistories),
		http.StatusUnprocessableEntity, "unprocessable")

	assertEnvelope(t, env.as(t, http.MethodPatch, "/asset_price_histories/8/edit", map[string]any{"price": 1}, permPatchHistories),
		http.StatusNotFound, "resource not found")
}

func TestEditPriceHistoryTreatsNullAsNamedButEmpty(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedPortfolio(t)
	h := env.seedHistory(t, p.ID)

	w := env.as(t, http.MethodPatch, "/asset_price_histories/1/edit",
		`{"asset_type":null,"price":5,"date":null,"portfolio_id":null}`, permPatchHistories)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := env.store.Histories().Get(context.Background(), h.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, h.AssetType, stored.AssetType)
	assert.Equal(t, h.Date, stored.Date)
	assert.Equal(t, h.PortfolioID, stored.PortfolioID)

	assertEnvelope(t, env.as(t, http.MethodPatch, "/asset_price_histories/1/edit",
		`{"asset_type":null,"price":5,"date":null}`, permPatchHistories),
		http.StatusUnprocessableEntity, "unprocessable")
	assertEnvelope(t, env.as(t, http.MethodPatch, "/asset_price_histories/1/edit",
		`[1,2]`, permPatchHistories),
		http.StatusBadRequest, "Bad Request")
}

func TestDeletePriceHistory(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedPortfolio(t)
	env.seedHistory(t, p.ID)

	w := env.as(t, http.MethodDelete, "/asset_price_histories/1", nil, permDeleteHistories)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["deleted"])

	assertEnvelope(t, env.as(t, http.MethodDelete, "/asset_price_histories/1", nil, permDeleteHistories),
		http.StatusNotFound, "resource not found")
}

func TestRecordOperationsWithoutDatabase(t *testing.T) {
	env := newTestEnv(t)
	server := NewServerWithDeps(env.server.cfg, ServerDeps{KeyClient: env.authority.Client()})
	t.Cleanup(func() { _ = server.Close() })

	w := httptestDo(server, http.MethodGet, "/portfolios", "Bearer "+env.token(t, permGetPortfolios))
	assertEnvelope(t, w, http.StatusServiceUnavailable, "Service Unavailable")
}
