package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

type foodCatalogStorage struct {
	mu       sync.RWMutex
	foods    map[string]storage.Food
	portions map[string]storage.Portion
}

func newFoodCatalogStorage() *foodCatalogStorage {
	return &foodCatalogStorage{
		foods:    make(map[string]storage.Food),
		portions: make(map[string]storage.Portion),
	}
}

func (s *foodCatalogStorage) ListFoods(ctx context.Context) ([]storage.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterLocked(func(storage.Food) bool { return true }), nil
}

func (s *foodCatalogStorage) GetFood(ctx context.Context, id string) (*storage.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.foods[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *foodCatalogStorage) GetFoodByName(ctx context.Context, name string) (*storage.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.foods {
		if f.Name == name {
			return &f, nil
		}
	}
	return nil, nil
}

func (s *foodCatalogStorage) CreateFood(ctx context.Context, req storage.FoodUpsert) (storage.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	f := foodFromUpsert(uuid.New().String(), req)
	f.CreatedAt = now
	f.UpdatedAt = now
	s.foods[f.ID] = f

	return f, nil
}

func (s *foodCatalogStorage) UpdateFood(ctx context.Context, id string, req storage.FoodUpsert) (storage.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.foods[id]
	if !ok {
		return storage.Food{}, storage.ErrNotFound
	}

	f := foodFromUpsert(id, req)
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now().UTC()
	s.foods[id] = f

	return f, nil
}

func (s *foodCatalogStorage) DeleteFood(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.foods[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.foods, id)

	for pid, p := range s.portions {
		if p.FoodID == id {
			delete(s.portions, pid)
		}
	}
	return nil
}

func (s *foodCatalogStorage) SearchByName(ctx context.Context, query string) ([]storage.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	return s.filterLocked(func(f storage.Food) bool {
		return strings.Contains(strings.ToLower(f.Name), q)
	}), nil
}

func (s *foodCatalogStorage) SearchAdvanced(ctx context.Context, filter storage.FoodSearchFilter) ([]storage.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(filter.Query)
	out := s.filterLocked(func(f storage.Food) bool {
		if q != "" && !strings.Contains(strings.ToLower(f.Name), q) {
			return false
		}
		if filter.Category != "" && f.Category != filter.Category {
			return false
		}
		if filter.MinProtein != nil && f.ProteinPer100g < *filter.MinProtein {
			return false
		}
		if filter.MaxKcal != nil && f.KcalPer100g > *filter.MaxKcal {
			return false
		}
		if filter.MinFiber != nil && (f.FiberPer100g == nil || *f.FiberPer100g < *filter.MinFiber) {
			return false
		}
		if filter.Diet != "" && f.DietType != "" && f.DietType != filter.Diet {
			return false
		}
		return true
	})

	// healthy desc (NULL в конце), common desc, name
	sort.SliceStable(out, func(i, j int) bool {
		if c := compareIndexDesc(out[i].HealthyIndex, out[j].HealthyIndex); c != 0 {
			return c < 0
		}
		if c := compareIndexDesc(out[i].CommonIndex, out[j].CommonIndex); c != 0 {
			return c < 0
		}
		return out[i].Name < out[j].Name
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *foodCatalogStorage) ListByCategories(ctx context.Context, categories []string) ([]storage.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterLocked(func(f storage.Food) bool {
		return slices.Contains(categories, f.Category)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *foodCatalogStorage) TopByMetric(ctx context.Context, metric string, limit int, excludeCategories []string) ([]storage.Food, error) {
	if !storage.ValidMetric(metric) {
		return nil, storage.ErrInvalidMetric
	}
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterLocked(func(f storage.Food) bool {
		return metricValue(f, metric) > 0 && !slices.Contains(excludeCategories, f.Category)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return metricValue(out[i], metric) > metricValue(out[j], metric)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *foodCatalogStorage) ListPortions(ctx context.Context, foodID string) ([]storage.Portion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Portion, 0)
	for _, p := range s.portions {
		if p.FoodID == foodID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GramsEquivalent != out[j].GramsEquivalent {
			return out[i].GramsEquivalent < out[j].GramsEquivalent
		}
		return out[i].Description < out[j].Description
	})
	return out, nil
}

func (s *foodCatalogStorage) GetPortion(ctx context.Context, id string) (*storage.Portion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portions[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *foodCatalogStorage) CreatePortion(ctx context.Context, foodID, description string, grams float64) (storage.Portion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.foods[foodID]; !ok {
		return storage.Portion{}, storage.ErrNotFound
	}

	p := storage.Portion{
		ID:              uuid.New().String(),
		FoodID:          foodID,
		Description:     description,
		GramsEquivalent: grams,
	}
	s.portions[p.ID] = p
	return p, nil
}

func (s *foodCatalogStorage) DeletePortion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.portions, id)
	return nil
}

// filterLocked возвращает продукты, отсортированные по имени (вызывать под блокировкой)
func (s *foodCatalogStorage) filterLocked(keep func(storage.Food) bool) []storage.Food {
	out := make([]storage.Food, 0)
	for _, f := range s.foods {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func foodFromUpsert(id string, req storage.FoodUpsert) storage.Food {
	return storage.Food{
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

func metricValue(f storage.Food, metric string) float64 {
	switch metric {
	case storage.MetricProtein:
		return f.ProteinPer100g
	case storage.MetricFiber:
		if f.FiberPer100g != nil {
			return *f.FiberPer100g
		}
	case storage.MetricHealthy:
		if f.HealthyIndex != nil {
			return float64(*f.HealthyIndex)
		}
	}
	return 0
}

// compareIndexDesc: -1 если a раньше b при сортировке по убыванию с NULL в конце
func compareIndexDesc(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	}
	return 0
}
