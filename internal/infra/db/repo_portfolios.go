package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

type PortfolioRepository struct {
	db *gorm.DB
}

func NewPortfolioRepository(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

func (r *PortfolioRepository) List(ctx context.Context) ([]domain.Portfolio, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []PortfolioModel
	if err := r.db.WithContext(ctx).Order("sort_id ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Portfolio, 0, len(models))
	for _, model := range models {
		out = append(out, portfolioFromModel(model))
	}
	return out, nil
}

func (r *PortfolioRepository) Get(ctx context.Context, id int64) (domain.Portfolio, error) {
	if r.db == nil {
		return domain.Portfolio{}, errDBUnavailable
	}
	var model PortfolioModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Portfolio{}, mapError(err)
	}
	return portfolioFromModel(model), nil
}

func (r *PortfolioRepository) Create(ctx context.Context, portfolio domain.Portfolio) (domain.Portfolio, error) {
	if r.db == nil {
		return domain.Portfolio{}, errDBUnavailable
	}
	model := portfolioToModel(portfolio)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Portfolio{}, mapError(err)
	}
	return portfolioFromModel(model), nil
}

func (r *PortfolioRepository) Update(ctx context.Context, portfolio domain.Portfolio) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := portfolioToModel(portfolio)
	result := r.db.WithContext(ctx).Model(&PortfolioModel{}).Where("id = ?", portfolio.ID).Updates(map[string]any{
		"asset_class_desc": model.AssetClassDesc,
		"weight":           model.Weight,
		"benchmark_desc":   model.BenchmarkDesc,
		"sort_id":          model.SortID,
		"bloomberg_qry":    model.BloombergQry,
	})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PortfolioRepository) Delete(ctx context.Context, id int64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Delete(&PortfolioModel{}, "id = ?", id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func portfolioToModel(p domain.Portfolio) PortfolioModel {
	return PortfolioModel{
		ID:             p.ID,
		AssetClassDesc: p.AssetClassDesc,
		Weight:         p.Weight,
		BenchmarkDesc:  p.BenchmarkDesc,
		SortID:         p.SortID,
		BloombergQry:   p.BloombergQuery,
	}
}

func portfolioFromModel(m PortfolioModel) domain.Portfolio {
	return domain.Portfolio{
		ID:             m.ID,
		AssetClassDesc: m.AssetClassDesc,
		Weight:         m.Weight,
		BenchmarkDesc:  m.BenchmarkDesc,
		SortID:         m.SortID,
		BloombergQuery: m.BloombergQry,
	}
}
