package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Weights and prices are rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Portfolio struct {
	ID             int64           `json:"id"`
	AssetClassDesc string          `json:"asset_class_desc"`
	Weight         decimal.Decimal `json:"weight"`
	BenchmarkDesc  string          `json:"benchmark_desc"`
	SortID         int64           `json:"sort_id"`
	BloombergQuery string          `json:"bloomberg_qry"`
}

func (p Portfolio) Validate() error {
	if strings.TrimSpace(p.AssetClassDesc) == "" {
		return fmt.Errorf("%w: asset_class_desc is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.BenchmarkDesc) == "" {
		return fmt.Errorf("%w: benchmark_desc is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.BloombergQuery) == "" {
		return fmt.Errorf("%w: bloomberg_qry is required", ErrInvalidInput)
	}
	if p.Weight.IsNegative() {
		return fmt.Errorf("%w: weight must not be negative", ErrInvalidInput)
	}
	return nil
}

// PortfolioPatch carries the fields of a partial portfolio update. Nil fields
// are left untouched.
type PortfolioPatch struct {
	AssetClassDesc *string
	Weight         *decimal.Decimal
	BenchmarkDesc  *string
	SortID         *int64
	BloombergQuery *string
}

func (p PortfolioPatch) Apply(target *Portfolio) {
	if p.AssetClassDesc != nil {
		target.AssetClassDesc = *p.AssetClassDesc
	}
	if p.Weight != nil {
		target.Weight = *p.Weight
	}
	if p.BenchmarkDesc != nil {
		target.BenchmarkDesc = *p.BenchmarkDesc
	}
	if p.SortID != nil {
		target.SortID = *p.SortID
	}
	if p.BloombergQuery != nil {
		target.BloombergQuery = *p.BloombergQuery
	}
}

type AssetPriceHistory struct {
	ID          int64           `json:"id"`
	AssetType   string          `json:"asset_type"`
	Price       decimal.Decimal `json:"price"`
	Date        string          `json:"date"`
	PortfolioID int64           `json:"portfolio_id"`
}

func (h AssetPriceHistory) Validate() error {
	if strings.TrimSpace(h.AssetType) == "" {
		return fmt.Errorf("%w: asset_type is required", ErrInvalidInput)
	}
	if strings.TrimSpace(h.Date) == "" {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if h.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if h.PortfolioID <= 0 {
		return fmt.Errorf("%w: portfolio_id is required", ErrInvalidInput)
	}
	return nil
}

// PriceHistoryPatch carries the fields of a price history edit. Zero values
// are ignored so that only the supplied, non-empty fields change.
type PriceHistoryPatch struct {
	AssetType   string
	Price       decimal.Decimal
	Date        string
	PortfolioID int64
}

func (p PriceHistoryPatch) Apply(target *AssetPriceHistory) {
	if p.AssetType != "" {
		target.AssetType = p.AssetType
	}
	if !p.Price.IsZero() {
		target.Price = p.Price
	}
	if p.Date != "" {
		target.Date = p.Date
	}
	if p.PortfolioID != 0 {
		target.PortfolioID = p.PortfolioID
	}
}
