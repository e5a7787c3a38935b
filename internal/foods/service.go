package foods

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/coach-hub/internal/storage"
)

var (
	ErrNotFound        = errors.New("food not found")
	ErrPortionNotFound = errors.New("portion not found")
	ErrDuplicateName   = errors.New("food with this name already exists")
)

const (
	defaultSearchLimit = 50
	defaultTopLimit    = 20
	maxLimit           = 500
)

// Service handles food catalog business logic.
type Service struct {
	storage storage.FoodCatalogStorage
}

// NewService creates a new food catalog service.
func NewService(storage storage.FoodCatalogStorage) *Service {
	return &Service{storage: storage}
}

// List returns every food, or the foods whose name contains query.
func (s *Service) List(ctx context.Context, query string) ([]storage.Food, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.storage.ListFoods(ctx)
	}
	return s.storage.SearchByName(ctx, query)
}

// Get returns a food by id.
func (s *Service) Get(ctx context.Context, id string) (storage.Food, error) {
	f, err := s.storage.GetFood(ctx, id)
	if err != nil {
		return storage.Food{}, fmt.Errorf("failed to get food: %w", err)
	}
	if f == nil {
		return storage.Food{}, ErrNotFound
	}
	return *f, nil
}

// Create adds a food to the catalog. Names are unique.
func (s *Service) Create(ctx context.Context, req FoodRequest) (storage.Food, error) {
	if err := req.Validate(); err != nil {
		return storage.Food{}, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := s.storage.GetFoodByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return storage.Food{}, fmt.Errorf("failed to check food name: %w", err)
	}
	if existing != nil {
		return storage.Food{}, ErrDuplicateName
	}

	return s.storage.CreateFood(ctx, req.toUpsert())
}

// Update replaces every field of a food.
func (s *Service) Update(ctx context.Context, id string, req FoodRequest) (storage.Food, error) {
	if err := req.Validate(); err != nil {
		return storage.Food{}, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := s.storage.GetFoodByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return storage.Food{}, fmt.Errorf("failed to check food name: %w", err)
	}
	if existing != nil && existing.ID != id {
		return storage.Food{}, ErrDuplicateName
	}

	f, err := s.storage.UpdateFood(ctx, id, req.toUpsert())
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Food{}, ErrNotFound
	}
	return f, err
}

// Delete removes a food and its portions.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.storage.DeleteFood(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Search runs the multi-criteria search.
func (s *Service) Search(ctx context.Context, filter storage.FoodSearchFilter) ([]storage.Food, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Limit = clampLimit(filter.Limit, defaultSearchLimit)
	return s.storage.SearchAdvanced(ctx, filter)
}

// Top returns the best foods for a metric.
func (s *Service) Top(ctx context.Context, metric string, limit int, excludeCategories []string) ([]storage.Food, error) {
	if !storage.ValidMetric(metric) {
		return nil, fmt.Errorf("%w: %q (expected %s, %s or %s)", storage.ErrInvalidMetric, metric,
			storage.MetricProtein, storage.MetricFiber, storage.MetricHealthy)
	}
	return s.storage.TopByMetric(ctx, metric, clampLimit(limit, defaultTopLimit), excludeCategories)
}

// ByCategories returns the foods of the given categories grouped by category.
func (s *Service) ByCategories(ctx context.Context, categories []string) (map[string][]storage.Food, error) {
	list, err := s.storage.ListByCategories(ctx, categories)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]storage.Food, len(categories))
	for _, c := range categories {
		grouped[c] = []storage.Food{}
	}
	for _, f := range list {
		grouped[f.Category] = append(grouped[f.Category], f)
	}
	return grouped, nil
}

// Portions returns the portions of a food.
func (s *Service) Portions(ctx context.Context, foodID string) ([]storage.Portion, error) {
	if _, err := s.Get(ctx, foodID); err != nil {
		return nil, err
	}
	return s.storage.ListPortions(ctx, foodID)
}

// AddPortion adds a portion to a food.
func (s *Service) AddPortion(ctx context.Context, foodID string, req PortionRequest) (storage.Portion, error) {
	if err := req.Validate(); err != nil {
		return storage.Portion{}, fmt.Errorf("validation failed: %w", err)
	}
	if _, err := s.Get(ctx, foodID); err != nil {
		return storage.Portion{}, err
	}
	return s.storage.CreatePortion(ctx, foodID, strings.TrimSpace(req.Description), req.GramsEquivalent)
}

// DeletePortion removes a portion.
func (s *Service) DeletePortion(ctx context.Context, id string) error {
	err := s.storage.DeletePortion(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrPortionNotFound
	}
	return err
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
