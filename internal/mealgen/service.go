package mealgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/fdg312/coach-hub/internal/foods"
	"github.com/fdg312/coach-hub/internal/mealplans"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrValidation = errors.New("validation failed")
	// ErrNoTargets is returned when neither targets nor a client nutrition sheet are available.
	ErrNoTargets = errors.New("no nutrition targets available")
)

const defaultSuggestionLimit = 10

// Logger is the minimal logger used by the generator service.
type Logger interface {
	Printf(format string, v ...any)
}

// Defaults: значения по умолчанию из конфигурации
type Defaults struct {
	Days        int
	MealsPerDay int
	Tolerance   float64
	MaxDays     int
}

// PlanStore сохраняет и читает планы питания; реализован mealplans.Service
type PlanStore interface {
	SaveGenerated(ctx context.Context, clientID *uuid.UUID, name string, meals []mealplans.GeneratedMeal) (mealplans.PlanDTO, error)
	Get(ctx context.Context, id string) (mealplans.PlanDTO, error)
}

// Service загружает каталог и цели клиента и запускает генератор
type Service struct {
	lookup   clients.Lookup
	catalog  storage.FoodCatalogStorage
	sheets   storage.NutritionSheetsStorage
	profiles storage.NutritionProfilesStorage
	plans    PlanStore
	defaults Defaults
	logger   Logger
	seed     func() int64
}

func NewService(
	lookup clients.Lookup,
	catalog storage.FoodCatalogStorage,
	sheets storage.NutritionSheetsStorage,
	profiles storage.NutritionProfilesStorage,
	plans PlanStore,
	defaults Defaults,
	logger Logger,
) *Service {
	return &Service{
		lookup:   lookup,
		catalog:  catalog,
		sheets:   sheets,
		profiles: profiles,
		plans:    plans,
		defaults: defaults,
		logger:   logger,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
}

// Generate загружает продукты, цели и профиль параллельно, затем строит план.
// Цели берутся из запроса или из последней карточки питания клиента.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	if err := req.Validate(s.defaults.MaxDays); err != nil {
		return GenerateResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	clientID, err := s.ownedClient(ctx, req.ClientID)
	if err != nil {
		return GenerateResponse{}, err
	}

	var (
		catalog []storage.Food
		sheet   *storage.NutritionSheet
		profile *storage.NutritionProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.catalog.ListFoods(gctx)
		if err != nil {
			return fmt.Errorf("failed to list foods: %w", err)
		}
		catalog = list
		return nil
	})
	if clientID != nil {
		g.Go(func() error {
			latest, err := s.sheets.GetLatestSheet(gctx, *clientID)
			if err != nil {
				return fmt.Errorf("failed to get latest nutrition sheet: %w", err)
			}
			sheet = latest
			return nil
		})
		g.Go(func() error {
			p, err := s.profiles.GetProfileByClient(gctx, *clientID)
			if err != nil {
				return fmt.Errorf("failed to get nutrition profile: %w", err)
			}
			profile = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GenerateResponse{}, err
	}

	targets, err := resolveTargets(req.Targets, sheet)
	if err != nil {
		return GenerateResponse{}, err
	}

	if req.MealsPerDay <= 0 && profile != nil && profile.MealsPerDay > 0 {
		req.MealsPerDay = profile.MealsPerDay
	}
	cfg := s.config(req)
	if profile != nil {
		for _, id := range profile.ExcludedFoodIDs {
			if !slices.Contains(cfg.ExcludedFoodIDs, id) {
				cfg.ExcludedFoodIDs = append(cfg.ExcludedFoodIDs, id)
			}
		}
	}

	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	plan, err := Generate(catalog, cfg, targets, rand.New(rand.NewSource(seed)))
	if err != nil {
		return GenerateResponse{}, err
	}
	s.logger.Printf("INFO mealgen: generated %d days x %d meals, diet=%s seed=%d", len(plan.Days), len(TemplateFor(cfg.MealsPerDay)), cfg.Diet, seed)

	resp := GenerateResponse{Seed: seed, Plan: plan}
	if req.Save {
		saved, err := s.plans.SaveGenerated(ctx, clientID, req.PlanName, ToGeneratedMeals(plan))
		if err != nil {
			return GenerateResponse{}, fmt.Errorf("failed to save generated plan: %w", err)
		}
		resp.SavedPlanID = &saved.ID
	}
	return resp, nil
}

// Analyze сравнивает средние дневные итоги сохранённого плана с целями
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	if err := req.Validate(); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	plan, err := s.plans.Get(ctx, req.PlanID)
	if err != nil {
		return Analysis{}, err
	}

	clientRef := req.ClientID
	if clientRef == nil {
		clientRef = plan.ClientID
	}
	clientID, err := s.ownedClient(ctx, clientRef)
	if err != nil {
		return Analysis{}, err
	}

	var sheet *storage.NutritionSheet
	if req.Targets == nil && clientID != nil {
		sheet, err = s.sheets.GetLatestSheet(ctx, *clientID)
		if err != nil {
			return Analysis{}, fmt.Errorf("failed to get latest nutrition sheet: %w", err)
		}
	}
	targets, err := resolveTargets(req.Targets, sheet)
	if err != nil {
		return Analysis{}, err
	}

	days := req.Days
	if days <= 0 {
		days = 1
	}
	daily := Macros{
		Kcal:     plan.Totals.Kcal,
		ProteinG: plan.Totals.ProteinG,
		CarbsG:   plan.Totals.CarbsG,
		FatG:     plan.Totals.FatG,
	}.scale(1 / float64(days))

	tolerance := s.defaults.Tolerance
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}
	return Analyze(daily, targets, len(plan.Meals)/days, tolerance), nil
}

// Suggestions подбирает продукты под цель: "perte" -> до 150 ккал,
// "muscle" -> от 15 г белка, иначе лучшие по индексу healthy.
func (s *Service) Suggestions(ctx context.Context, goal string, limit int) ([]storage.Food, error) {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}

	var (
		list []storage.Food
		err  error
	)
	g := strings.ToLower(goal)
	switch {
	case strings.Contains(g, "perte"):
		maxKcal := 150.0
		list, err = s.catalog.SearchAdvanced(ctx, storage.FoodSearchFilter{MaxKcal: &maxKcal, Limit: limit})
	case strings.Contains(g, "muscle"):
		minProtein := 15.0
		list, err = s.catalog.SearchAdvanced(ctx, storage.FoodSearchFilter{MinProtein: &minProtein, Limit: limit})
	default:
		list, err = s.catalog.TopByMetric(ctx, storage.MetricHealthy, limit, nil)
	}
	if err == nil {
		return list, nil
	}

	s.logger.Printf("WARN mealgen: suggestions for goal %q failed, falling back to catalog: %v", goal, err)
	all, err := s.catalog.ListFoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list foods: %w", err)
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Service) config(req GenerateRequest) Config {
	cfg := Config{
		Days:               req.Days,
		MealsPerDay:        req.MealsPerDay,
		Diet:               req.Diet,
		ExcludedCategories: req.ExcludedCategories,
		ExcludedFoodIDs:    slices.Clone(req.ExcludedFoodIDs),
	}
	if cfg.Days <= 0 {
		cfg.Days = s.defaults.Days
	}
	if cfg.MealsPerDay <= 0 {
		cfg.MealsPerDay = s.defaults.MealsPerDay
	}
	if req.Tolerance != nil {
		cfg.Tolerance = *req.Tolerance
	} else {
		cfg.Tolerance = s.defaults.Tolerance
	}
	return cfg.withDefaults()
}

func (s *Service) ownedClient(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid client_id", ErrValidation)
	}
	if _, err := clients.EnsureOwned(ctx, s.lookup, id); err != nil {
		return nil, err
	}
	return &id, nil
}

func resolveTargets(explicit *Macros, sheet *storage.NutritionSheet) (Macros, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if sheet == nil {
		return Macros{}, ErrNoTargets
	}
	return Macros{
		Kcal:     float64(sheet.ObjectiveKcal),
		ProteinG: float64(sheet.ProteinG),
		CarbsG:   float64(sheet.CarbsG),
		FatG:     float64(sheet.FatG),
	}, nil
}

// ToGeneratedMeals разворачивает план в приёмы пищи для сохранения
func ToGeneratedMeals(plan GeneratedPlan) []mealplans.GeneratedMeal {
	var out []mealplans.GeneratedMeal
	for _, day := range plan.Days {
		for _, slot := range day.Slots {
			meal := mealplans.GeneratedMeal{Day: day.Day, Slot: slot.Name}
			for _, f := range slot.Foods {
				meal.Items = append(meal.Items, mealplans.GeneratedItem{FoodID: f.FoodID, Grams: f.Grams})
			}
			out = append(out, meal)
		}
	}
	return out
}

// validDiet сообщает, известна ли диета
func validDiet(diet string) bool {
	return diet == "" || slices.Contains(foods.Diets, diet)
}
