package usecase

import (
	"context"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

type PortfolioRepository interface {
	List(ctx context.Context) ([]domain.Portfolio, error)
	Get(ctx context.Context, id int64) (domain.Portfolio, error)
	Create(ctx context.Context, portfolio domain.Portfolio) (domain.Portfolio, error)
	Update(ctx context.Context, portfolio domain.Portfolio) error
	Delete(ctx context.Context, id int64) error
}

type PriceHistoryRepository interface {
	List(ctx context.Context) ([]domain.AssetPriceHistory, error)
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.AssetPriceHistory, error)
	Get(ctx context.Context, id int64) (domain.AssetPriceHistory, error)
	Create(ctx context.Context, history domain.AssetPriceHistory) (domain.AssetPriceHistory, error)
	Update(ctx context.Context, history domain.AssetPriceHistory) error
	Delete(ctx context.Context, id int64) error
}
