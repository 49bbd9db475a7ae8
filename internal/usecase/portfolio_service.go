package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

// PortfolioService is the record layer behind the protected routes.
type PortfolioService struct {
	Portfolios PortfolioRepository
	Histories  PriceHistoryRepository
}

func NewPortfolioService(portfolios PortfolioRepository, histories PriceHistoryRepository) *PortfolioService {
	return &PortfolioService{Portfolios: portfolios, Histories: histories}
}

func (s *PortfolioService) ready() error {
	if s == nil || s.Portfolios == nil || s.Histories == nil {
		return domain.ErrDBUnavailable
	}
	return nil
}

func (s *PortfolioService) ListPortfolios(ctx context.Context) ([]domain.Portfolio, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Portfolios.List(ctx)
}

func (s *PortfolioService) GetPortfolio(ctx context.Context, id int64) (domain.Portfolio, error) {
	if err := s.ready(); err != nil {
		return domain.Portfolio{}, err
	}
	if id <= 0 {
		return domain.Portfolio{}, domain.ErrNotFound
	}
	return s.Portfolios.Get(ctx, id)
}

func (s *PortfolioService) CreatePortfolio(ctx context.Context, portfolio domain.Portfolio) (domain.Portfolio, error) {
	if err := s.ready(); err != nil {
		return domain.Portfolio{}, err
	}
	if err := portfolio.Validate(); err != nil {
		return domain.Portfolio{}, err
	}
	return s.Portfolios.Create(ctx, portfolio)
}

func (s *PortfolioService) UpdatePortfolio(ctx context.Context, id int64, patch domain.PortfolioPatch) (domain.Portfolio, error) {
	current, err := s.GetPortfolio(ctx, id)
	if err != nil {
		return domain.Portfolio{}, err
	}
	patch.Apply(&current)
	if err := current.Validate(); err != nil {
		return domain.Portfolio{}, err
	}
	if err := s.Portfolios.Update(ctx, current); err != nil {
		return domain.Portfolio{}, err
	}
	return current, nil
}

// DeletePortfolio refuses while price histories still reference the
// portfolio.
func (s *PortfolioService) DeletePortfolio(ctx context.Context, id int64) error {
	if _, err := s.GetPortfolio(ctx, id); err != nil {
		return err
	}
	histories, err := s.Histories.ListByPortfolio(ctx, id)
	if err != nil {
		return err
	}
	if len(histories) > 0 {
		return fmt.Errorf("%w: portfolio %d has %d price histories", domain.ErrConflict, id, len(histories))
	}
	return s.Portfolios.Delete(ctx, id)
}

func (s *PortfolioService) ListPriceHistories(ctx context.Context) ([]domain.AssetPriceHistory, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Histories.List(ctx)
}

func (s *PortfolioService) ListPortfolioHistories(ctx context.Context, portfolioID int64) ([]domain.AssetPriceHistory, error) {
	if _, err := s.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.Histories.ListByPortfolio(ctx, portfolioID)
}

func (s *PortfolioService) GetPriceHistory(ctx context.Context, id int64) (domain.AssetPriceHistory, error) {
	if err := s.ready(); err != nil {
		return domain.AssetPriceHistory{}, err
	}
	if id <= 0 {
		return domain.AssetPriceHistory{}, domain.ErrNotFound
	}
	return s.Histories.Get(ctx, id)
}

func (s *PortfolioService) CreatePriceHistory(ctx context.Context, history domain.AssetPriceHistory) (domain.AssetPriceHistory, error) {
	if err := s.ready(); err != nil {
		return domain.AssetPriceHistory{}, err
	}
	if err := history.Validate(); err != nil {
		return domain.AssetPriceHistory{}, err
	}
	if err := s.requirePortfolio(ctx, history.PortfolioID); err != nil {
		return domain.AssetPriceHistory{}, err
	}
	return s.Histories.Create(ctx, history)
}

// EditPriceHistory applies the non-empty fields of patch.
func (s *PortfolioService) EditPriceHistory(ctx context.Context, id int64, patch domain.PriceHistoryPatch) (domain.AssetPriceHistory, error) {
	current, err := s.GetPriceHistory(ctx, id)
	if err != nil {
		return domain.AssetPriceHistory{}, err
	}
	previousPortfolio := current.PortfolioID
	patch.Apply(&current)
	if err := current.Validate(); err != nil {
		return domain.AssetPriceHistory{}, err
	}
	if current.PortfolioID != previousPortfolio {
		if err := s.requirePortfolio(ctx, current.PortfolioID); err != nil {
			return domain.AssetPriceHistory{}, err
		}
	}
	if err := s.Histories.Update(ctx, current); err != nil {
		return domain.AssetPriceHistory{}, err
	}
	return current, nil
}

func (s *PortfolioService) DeletePriceHistory(ctx context.Context, id int64) error {
	if _, err := s.GetPriceHistory(ctx, id); err != nil {
		return err
	}
	return s.Histories.Delete(ctx, id)
}

func (s *PortfolioService) requirePortfolio(ctx context.Context, portfolioID int64) error {
	_, err := s.Portfolios.Get(ctx, portfolioID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: portfolio %d does not exist", domain.ErrInvalidInput, portfolioID)
	}
	return err
}
