package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/domain"
)

type PriceHistoryRepository struct {
	db *gorm.DB
}

func NewPriceHistoryRepository(db *gorm.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

func (r *PriceHistoryRepository) List(ctx context.Context) ([]domain.AssetPriceHistory, error) {
	return r.find(ctx, nil)
}

func (r *PriceHistoryRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.AssetPriceHistory, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("portfolio_id = ?", portfolioID)
	})
}

func (r *PriceHistoryRepository) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]domain.AssetPriceHistory, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&AssetPriceHistoryModel{})
	if scope != nil {
		q = q.Scopes(scope)
	}
	var models []AssetPriceHistoryModel
	if err := q.Order("date ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AssetPriceHistory, 0, len(models))
	for _, model := range models {
		out = append(out, priceHistoryFromModel(model))
	}
	return out, nil
}

func (r *PriceHistoryRepository) Get(ctx context.Context, id int64) (domain.AssetPriceHistory, error) {
	if r.db == nil {
		return domain.AssetPriceHistory{}, errDBUnavailable
	}
	var model AssetPriceHistoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.AssetPriceHistory{}, mapError(err)
	}
	return priceHistoryFromModel(model), nil
}

func (r *PriceHistoryRepository) Create(ctx context.Context, history domain.AssetPriceHistory) (domain.AssetPriceHistory, error) {
	if r.db == nil {
		return domain.AssetPriceHistory{}, errDBUnavailable
	}
	model := priceHistoryToModel(history)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AssetPriceHistory{}, mapError(err)
	}
	return priceHistoryFromModel(model), nil
}

func (r *PriceHistoryRepository) Update(ctx context.Context, history domain.AssetPriceHistory) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Model(&AssetPriceHistoryModel{}).Where("id = ?", history.ID).Updates(map[string]any{
		"asset_type":   history.AssetType,
		"price":        history.Price,
		"date":         history.Date,
		"portfolio_id": history.PortfolioID,
	})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PriceHistoryRepository) Delete(ctx context.Context, id int64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Delete(&AssetPriceHistoryModel{}, "id = ?", id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func priceHistoryToModel(h domain.AssetPriceHistory) AssetPriceHistoryModel {
	return AssetPriceHistoryModel{
		ID:          h.ID,
		AssetType:   h.AssetType,
		Price:       h.Price,
		Date:        h.Date,
		PortfolioID: h.PortfolioID,
	}
}

func priceHistoryFromModel(m AssetPriceHistoryModel) domain.AssetPriceHistory {
	return domain.AssetPriceHistory{
		ID:          m.ID,
		AssetType:   m.AssetType,
		Price:       m.Price,
		Date:        m.Date,
		PortfolioID: m.PortfolioID,
	}
}
