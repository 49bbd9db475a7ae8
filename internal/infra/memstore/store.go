// Package memstore keeps portfolios and price histories in process memory.
// It enforces the same reference rules as the Postgres schema.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

type Store struct {
	mu            sync.RWMutex
	portfolios    map[int64]domain.Portfolio
	histories     map[int64]domain.AssetPriceHistory
	nextPortfolio int64
	nextHistory   int64
}

func New() *Store {
	return &Store{
		portfolios: make(map[int64]domain.Portfolio),
		histories:  make(map[int64]domain.AssetPriceHistory),
	}
}

func (s *Store) Portfolios() *PortfolioRepository {
	return &PortfolioRepository{s: s}
}

func (s *Store) Histories() *PriceHistoryRepository {
	return &PriceHistoryRepository{s: s}
}

type PortfolioRepository struct {
	s *Store
}

func (r *PortfolioRepository) List(_ context.Context) ([]domain.Portfolio, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Portfolio, 0, len(r.s.portfolios))
	for _, p := range r.s.portfolios {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortID != out[j].SortID {
			return out[i].SortID < out[j].SortID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PortfolioRepository) Get(_ context.Context, id int64) (domain.Portfolio, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.portfolios[id]
	if !ok {
		return domain.Portfolio{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *PortfolioRepository) Create(_ context.Context, portfolio domain.Portfolio) (domain.Portfolio, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextPortfolio++
	portfolio.ID = r.s.nextPortfolio
	r.s.portfolios[portfolio.ID] = portfolio
	return portfolio, nil
}

func (r *PortfolioRepository) Update(_ context.Context, portfolio domain.Portfolio) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.portfolios[portfolio.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.portfolios[portfolio.ID] = portfolio
	return nil
}

func (r *PortfolioRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.portfolios[id]; !ok {
		return domain.ErrNotFound
	}
	for _, h := range r.s.histories {
		if h.PortfolioID == id {
			return fmt.Errorf("%w: portfolio %d is referenced", domain.ErrConflict, id)
		}
	}
	delete(r.s.portfolios, id)
	return nil
}

type PriceHistoryRepository struct {
	s *Store
}

func (r *PriceHistoryRepository) List(_ context.Context) ([]domain.AssetPriceHistory, error) {
	return r.filter(func(domain.AssetPriceHistory) bool { return true }), nil
}

func (r *PriceHistoryRepository) ListByPortfolio(_ context.Context, portfolioID int64) ([]domain.AssetPriceHistory, error) {
	return r.filter(func(h domain.AssetPriceHistory) bool { return h.PortfolioID == portfolioID }), nil
}

func (r *PriceHistoryRepository) filter(keep func(domain.AssetPriceHistory) bool) []domain.AssetPriceHistory {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.AssetPriceHistory, 0)
	for _, h := range r.s.histories {
		if keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *PriceHistoryRepository) Get(_ context.Context, id int64) (domain.AssetPriceHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.histories[id]
	if !ok {
		return domain.AssetPriceHistory{}, domain.ErrNotFound
	}
	return h, nil
}

func (r *PriceHistoryRepository) Create(_ context.Context, history domain.AssetPriceHistory) (domain.AssetPriceHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.portfolios[history.PortfolioID]; !ok {
		return domain.AssetPriceHistory{}, fmt.Errorf("%w: portfolio %d does not exist", domain.ErrConflict, history.PortfolioID)
	}
	r.s.nextHistory++
	history.ID = r.s.nextHistory
	r.s.histories[history.ID] = history
	return history, nil
}

func (r *PriceHistoryRepository) Update(_ context.Context, history domain.AssetPriceHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.histories[history.ID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.s.portfolios[history.PortfolioID]; !ok {
		return fmt.Errorf("%w: portfolio %d does not exist", domain.ErrConflict, history.PortfolioID)
	}
	r.s.histories[history.ID] = history
	return nil
}

func (r *PriceHistoryRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.histories[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.histories, id)
	return nil
}
