package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type foodCatalogStorage struct {
	db *gorm.DB
}

var metricColumns = map[string]string{
	storage.MetricProtein: "protein_100g",
	storage.MetricFiber:   "fiber_100g",
	storage.MetricHealthy: "healthy_index",
}

func (s *foodCatalogStorage) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]storage.Food, error) {
	var models []foodModel
	if err := scope(s.db.WithContext(ctx)).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}

	foods := make([]storage.Food, 0, len(models))
	for _, m := range models {
		foods = append(foods, foodFromModel(m))
	}
	return foods, nil
}

func (s *foodCatalogStorage) first(ctx context.Context, query string, arg any) (*storage.Food, error) {
	var m foodModel
	err := s.db.WithContext(ctx).First(&m, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get food: %w", err)
	}
	f := foodFromModel(m)
	return &f, nil
}

func (s *foodCatalogStorage) ListFoods(ctx context.Context) ([]storage.Food, error) {
	return s.find(ctx, func(db *gorm.DB) *gorm.DB { return db.Order("name") })
}

func (s *foodCatalogStorage) GetFood(ctx context.Context, id string) (*storage.Food, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *foodCatalogStorage) GetFoodByName(ctx context.Context, name string) (*storage.Food, error) {
	return s.first(ctx, "name = ?", name)
}

func (s *foodCatalogStorage) CreateFood(ctx context.Context, req storage.FoodUpsert) (storage.Food, error) {
	now := time.Now().UTC()
	m := foodToModel(uuid.New().String(), req)
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return storage.Food{}, fmt.Errorf("failed to create food: %w", err)
	}
	return foodFromModel(m), nil
}

func (s *foodCatalogStorage) UpdateFood(ctx context.Context, id string, req storage.FoodUpsert) (storage.Food, error) {
	existing, err := s.GetFood(ctx, id)
	if err != nil {
		return storage.Food{}, err
	}
	if existing == nil {
		return storage.Food{}, storage.ErrNotFound
	}

	m := foodToModel(id, req)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(&m).Error; err != nil {
		return storage.Food{}, fmt.Errorf("failed to update food: %w", err)
	}
	return foodFromModel(m), nil
}

func (s *foodCatalogStorage) DeleteFood(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&foodModel{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete food: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		if err := tx.Delete(&portionModel{}, "food_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete portions: %w", err)
		}
		return nil
	})
}

func (s *foodCatalogStorage) SearchByName(ctx context.Context, query string) ([]storage.Food, error) {
	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("lower(name) LIKE ?", "%"+strings.ToLower(query)+"%").Order("name")
	})
}

func (s *foodCatalogStorage) SearchAdvanced(ctx context.Context, filter storage.FoodSearchFilter) ([]storage.Food, error) {
	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		if filter.Query != "" {
			db = db.Where("lower(name) LIKE ?", "%"+strings.ToLower(filter.Query)+"%")
		}
		if filter.Category != "" {
			db = db.Where("category = ?", filter.Category)
		}
		if filter.MinProtein != nil {
			db = db.Where("protein_100g >= ?", *filter.MinProtein)
		}
		if filter.MaxKcal != nil {
			db = db.Where("kcal_100g <= ?", *filter.MaxKcal)
		}
		if filter.MinFiber != nil {
			db = db.Where("fiber_100g >= ?", *filter.MinFiber)
		}
		if filter.Diet != "" {
			db = db.Where("(diet_type = ? OR diet_type = '')", filter.Diet)
		}
		db = db.Order("healthy_index DESC NULLS LAST").Order("common_index DESC NULLS LAST").Order("name")
		if filter.Limit > 0 {
			db = db.Limit(filter.Limit)
		}
		return db
	})
}

func (s *foodCatalogStorage) ListByCategories(ctx context.Context, categories []string) ([]storage.Food, error) {
	if len(categories) == 0 {
		return []storage.Food{}, nil
	}
	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("category IN ?", categories).Order("category").Order("name")
	})
}

func (s *foodCatalogStorage) TopByMetric(ctx context.Context, metric string, limit int, excludeCategories []string) ([]storage.Food, error) {
	column, ok := metricColumns[metric]
	if !ok {
		return nil, storage.ErrInvalidMetric
	}
	if limit <= 0 {
		limit = 20
	}

	return s.find(ctx, func(db *gorm.DB) *gorm.DB {
		db = db.Where(column + " > 0")
		if len(excludeCategories) > 0 {
			db = db.Where("category NOT IN ?", excludeCategories)
		}
		return db.Order(column + " DESC").Order("name").Limit(limit)
	})
}

func (s *foodCatalogStorage) ListPortions(ctx context.Context, foodID string) ([]storage.Portion, error) {
	var models []portionModel
	err := s.db.WithContext(ctx).
		Where("food_id = ?", foodID).
		Order("grams_equivalent").Order("description").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list portions: %w", err)
	}

	portions := make([]storage.Portion, 0, len(models))
	for _, m := range models {
		portions = append(portions, storage.Portion(m))
	}
	return portions, nil
}

func (s *foodCatalogStorage) GetPortion(ctx context.Context, id string) (*storage.Portion, error) {
	var m portionModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portion: %w", err)
	}
	p := storage.Portion(m)
	return &p, nil
}

func (s *foodCatalogStorage) CreatePortion(ctx context.Context, foodID, description string, grams float64) (storage.Portion, error) {
	food, err := s.GetFood(ctx, foodID)
	if err != nil {
		return storage.Portion{}, err
	}
	if food == nil {
		return storage.Portion{}, storage.ErrNotFound
	}

	m := portionModel{
		ID:              uuid.New().String(),
		FoodID:          foodID,
		Description:     description,
		GramsEquivalent: grams,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return storage.Portion{}, fmt.Errorf("failed to create portion: %w", err)
	}
	return storage.Portion(m), nil
}

func (s *foodCatalogStorage) DeletePortion(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&portionModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete portion: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func foodToModel(id string, req storage.FoodUpsert) foodModel {
	return foodModel{
		ID:             id,
		Name:           req.Name,
		Category:       req.Category,
		DietType:       req.DietType,
		KcalPer100g:    req.KcalPer100g,
		ProteinPer100g: req.ProteinPer100g,
		CarbsPer100g:   req.CarbsPer100g,
		FatPer100g:     req.FatPer100g,
		FiberPer100g:   req.FiberPer100g,
		BaseUnit:       req.BaseUnit,
		HealthyIndex:   req.HealthyIndex,
		CommonIndex:    req.CommonIndex,
	}
}

func foodFromModel(m foodModel) storage.Food {
	return storage.Food{
		ID:             m.ID,
		Name:           m.Name,
		Category:       m.Category,
		DietType:       m.DietType,
		KcalPer100g:    m.KcalPer100g,
		ProteinPer100g: m.ProteinPer100g,
		CarbsPer100g:   m.CarbsPer100g,
		FatPer100g:     m.FatPer100g,
		FiberPer100g:   m.FiberPer100g,
		BaseUnit:       m.BaseUnit,
		HealthyIndex:   m.HealthyIndex,
		CommonIndex:    m.CommonIndex,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
