package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioValidate(t *testing.T) {
	valid := Portfolio{
		AssetClassDesc: "Equities",
		Weight:         decimal.RequireFromString("0.4"),
		BenchmarkDesc:  "MSCI World",
		SortID:         1,
		BloombergQuery: "MXWO Index",
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.BenchmarkDesc = "  "
	assert.ErrorIs(t, missing.Validate(), ErrInvalidInput)

	negative := valid
	negative.Weight = decimal.RequireFromString("-0.1")
	assert.ErrorIs(t, negative.Validate(), ErrInvalidInput)
}

func TestPriceHistoryPatchSkipsZeroValues(t *testing.T) {
	history := AssetPriceHistory{
		ID:          7,
		AssetType:   "Bond",
		Price:       decimal.RequireFromString("234.3"),
		Date:        "02-02-2002",
		PortfolioID: 3,
	}
	PriceHistoryPatch{Price: decimal.NewFromInt(100)}.Apply(&history)

	assert.Equal(t, "Bond", history.AssetType)
	assert.True(t, history.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "02-02-2002", history.Date)
	assert.Equal(t, int64(3), history.PortfolioID)
}

func TestPortfolioJSONUsesNumbers(t *testing.T) {
	out, err := json.Marshal(Portfolio{ID: 1, Weight: decimal.RequireFromString("0.25")})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"weight":0.25`)
}

func TestClaimSetPermissions(t *testing.T) {
	perms, ok := ClaimSet{"permissions": []any{"get:portfolios", "post:portfolios"}}.Permissions()
	require.True(t, ok)
	assert.Equal(t, []string{"get:portfolios", "post:portfolios"}, perms)

	_, ok = ClaimSet{"sub": "user"}.Permissions()
	assert.False(t, ok)

	_, ok = ClaimSet{"permissions": "get:portfolios"}.Permissions()
	assert.False(t, ok)

	_, ok = ClaimSet{"permissions": []any{"get:portfolios", 3}}.Permissions()
	assert.False(t, ok)
}

func TestAuthErrorMatching(t *testing.T) {
	err := NewAuthError(CodeUnauthorized, "Permission not found.", 403).WithCause(errors.New("boom"))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	authErr, ok := AsAuthError(errors.Join(errors.New("outer"), err))
	require.True(t, ok)
	assert.Equal(t, CodeUnauthorized, authErr.Code)
}
