package db

import "github.com/shopspring/decimal"

type PortfolioModel struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	AssetClassDesc string          `gorm:"not null"`
	Weight         decimal.Decimal `gorm:"type:numeric;not null"`
	BenchmarkDesc  string          `gorm:"not null"`
	SortID         int64           `gorm:"not null"`
	BloombergQry   string          `gorm:"column:bloomberg_qry;not null"`
}

func (PortfolioModel) TableName() string {
	return "portfolios"
}

type AssetPriceHistoryModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	AssetType   string          `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"`
	Date        string          `gorm:"not null"`
	PortfolioID int64           `gorm:"index;not null"`
	Portfolio   *PortfolioModel `gorm:"foreignKey:PortfolioID;constraint:OnDelete:RESTRICT"`
}

func (AssetPriceHistoryModel) TableName() string {
	return "asset_price_histories"
}
