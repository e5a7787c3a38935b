package mealplans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/userctx"
	"github.com/google/uuid"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrPlanNotFound = errors.New("meal plan not found")
	ErrMealNotFound = errors.New("meal not found")
	ErrItemNotFound = errors.New("meal item not found")
	ErrFoodNotFound = errors.New("food not found")
)

// FoodLookup: часть справочника продуктов, нужная планам
type FoodLookup interface {
	GetFood(ctx context.Context, id string) (*storage.Food, error)
	GetPortion(ctx context.Context, id string) (*storage.Portion, error)
}

// Service handles meal plans business logic.
type Service struct {
	lookup clients.Lookup
	plans  storage.MealPlansStorage
	foods  FoodLookup
}

// NewService creates a new meal plans service.
func NewService(lookup clients.Lookup, plans storage.MealPlansStorage, foods FoodLookup) *Service {
	return &Service{lookup: lookup, plans: plans, foods: foods}
}

// List возвращает планы пользователя, опционально только планы клиента
func (s *Service) List(ctx context.Context, clientID *string) ([]PlanSummaryDTO, error) {
	list, err := s.plans.ListPlans(ctx, userctx.OwnerUserID(ctx), clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}

	out := make([]PlanSummaryDTO, 0, len(list))
	for _, p := range list {
		out = append(out, summaryOf(p))
	}
	return out, nil
}

// Get возвращает дерево плана с итогами
func (s *Service) Get(ctx context.Context, id string) (PlanDTO, error) {
	plan, err := s.load(ctx, id)
	if err != nil {
		return PlanDTO{}, err
	}
	return s.aggregate(ctx, *plan)
}

// Totals возвращает итоги по приёмам пищи и плану
func (s *Service) Totals(ctx context.Context, id string) (TotalsResponse, error) {
	dto, err := s.Get(ctx, id)
	if err != nil {
		return TotalsResponse{}, err
	}
	return TotalsOf(dto), nil
}

// Create сохраняет план вместе с приёмами пищи и позициями
func (s *Service) Create(ctx context.Context, req PlanRequest) (PlanDTO, error) {
	plan, err := s.build(ctx, req)
	if err != nil {
		return PlanDTO{}, err
	}
	if err := s.plans.CreatePlan(ctx, plan); err != nil {
		return PlanDTO{}, fmt.Errorf("failed to create meal plan: %w", err)
	}
	return s.Get(ctx, plan.ID)
}

// Update заменяет план целиком, включая приёмы пищи и позиции
func (s *Service) Update(ctx context.Context, id string, req PlanRequest) (PlanDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return PlanDTO{}, err
	}
	plan, err := s.build(ctx, req)
	if err != nil {
		return PlanDTO{}, err
	}
	plan.ID = id

	if err := s.plans.UpdatePlan(ctx, plan); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return PlanDTO{}, ErrPlanNotFound
		}
		return PlanDTO{}, fmt.Errorf("failed to update meal plan: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete удаляет план с приёмами пищи и позициями
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.plans.DeletePlan(ctx, userctx.OwnerUserID(ctx), id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrPlanNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete meal plan: %w", err)
	}
	return nil
}

// AddMeal добавляет приём пищи в конец плана, если позиция не задана
func (s *Service) AddMeal(ctx context.Context, planID string, req MealRequest) (MealDTO, error) {
	if err := req.Validate(); err != nil {
		return MealDTO{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	plan, err := s.load(ctx, planID)
	if err != nil {
		return MealDTO{}, err
	}

	meal, err := s.buildMeal(ctx, req, len(plan.Meals))
	if err != nil {
		return MealDTO{}, err
	}
	if err := s.plans.AddMeal(ctx, userctx.OwnerUserID(ctx), planID, &meal); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return MealDTO{}, ErrPlanNotFound
		}
		return MealDTO{}, fmt.Errorf("failed to add meal: %w", err)
	}

	catalog, err := s.catalogFor(ctx, []storage.Meal{meal})
	if err != nil {
		return MealDTO{}, err
	}
	return aggregateMeal(meal, catalog), nil
}

// UpdateMeal переименовывает или перемещает приём пищи
func (s *Service) UpdateMeal(ctx context.Context, mealID string, req MealUpdateRequest) (MealDTO, error) {
	if err := req.Validate(); err != nil {
		return MealDTO{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	meal := storage.Meal{ID: mealID, Name: strings.TrimSpace(req.Name), Position: req.Position}
	err := s.plans.UpdateMeal(ctx, userctx.OwnerUserID(ctx), meal)
	if errors.Is(err, storage.ErrNotFound) {
		return MealDTO{}, ErrMealNotFound
	}
	if err != nil {
		return MealDTO{}, fmt.Errorf("failed to update meal: %w", err)
	}

	updated, err := s.plans.GetMeal(ctx, userctx.OwnerUserID(ctx), mealID)
	if err != nil {
		return MealDTO{}, fmt.Errorf("failed to get meal: %w", err)
	}
	if updated == nil {
		return MealDTO{}, ErrMealNotFound
	}
	catalog, err := s.catalogFor(ctx, []storage.Meal{*updated})
	if err != nil {
		return MealDTO{}, err
	}
	return aggregateMeal(*updated, catalog), nil
}

func (s *Service) DeleteMeal(ctx context.Context, mealID string) error {
	err := s.plans.DeleteMeal(ctx, userctx.OwnerUserID(ctx), mealID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrMealNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	return nil
}

// AddItem добавляет продукт в приём пищи
func (s *Service) AddItem(ctx context.Context, mealID string, req ItemRequest) (ItemDTO, error) {
	item, food, err := s.buildItem(ctx, req)
	if err != nil {
		return ItemDTO{}, err
	}

	err = s.plans.AddItem(ctx, userctx.OwnerUserID(ctx), mealID, &item)
	if errors.Is(err, storage.ErrNotFound) {
		return ItemDTO{}, ErrMealNotFound
	}
	if err != nil {
		return ItemDTO{}, fmt.Errorf("failed to add meal item: %w", err)
	}
	return itemDTO(item, map[string]storage.Food{food.ID: *food}), nil
}

// UpdateItem заменяет продукт, порцию и количество позиции
func (s *Service) UpdateItem(ctx context.Context, itemID string, req ItemRequest) (ItemDTO, error) {
	item, food, err := s.buildItem(ctx, req)
	if err != nil {
		return ItemDTO{}, err
	}
	item.ID = itemID

	err = s.plans.UpdateItem(ctx, userctx.OwnerUserID(ctx), item)
	if errors.Is(err, storage.ErrNotFound) {
		return ItemDTO{}, ErrItemNotFound
	}
	if err != nil {
		return ItemDTO{}, fmt.Errorf("failed to update meal item: %w", err)
	}
	return itemDTO(item, map[string]storage.Food{food.ID: *food}), nil
}

func (s *Service) DeleteItem(ctx context.Context, itemID string) error {
	err := s.plans.DeleteItem(ctx, userctx.OwnerUserID(ctx), itemID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete meal item: %w", err)
	}
	return nil
}

// GetOrCreateClientPlan возвращает план клиента или создаёт его с приёмами пищи по умолчанию
func (s *Service) GetOrCreateClientPlan(ctx context.Context, clientID uuid.UUID) (PlanDTO, bool, error) {
	client, err := clients.EnsureOwned(ctx, s.lookup, clientID)
	if err != nil {
		return PlanDTO{}, false, err
	}

	owner := userctx.OwnerUserID(ctx)
	cid := clientID.String()
	existing, err := s.plans.FindPlanByClient(ctx, owner, cid)
	if err != nil {
		return PlanDTO{}, false, fmt.Errorf("failed to find client plan: %w", err)
	}
	if existing != nil {
		dto, err := s.aggregate(ctx, *existing)
		return dto, false, err
	}

	plan := &storage.MealPlan{
		OwnerUserID: owner,
		ClientID:    &cid,
		Name:        strings.TrimSpace(fmt.Sprintf("Plan %s %s", client.FirstName, client.LastName)),
	}
	for i, name := range DefaultMealNames {
		plan.Meals = append(plan.Meals, storage.Meal{Name: name, Position: i})
	}
	if err := s.plans.CreatePlan(ctx, plan); err != nil {
		return PlanDTO{}, false, fmt.Errorf("failed to create client plan: %w", err)
	}

	dto, err := s.Get(ctx, plan.ID)
	return dto, true, err
}

// SaveGenerated сохраняет сгенерированный план: один приём пищи на день и слот, "J<day> - <slot>"
func (s *Service) SaveGenerated(ctx context.Context, clientID *uuid.UUID, name string, meals []GeneratedMeal) (PlanDTO, error) {
	plan := &storage.MealPlan{
		OwnerUserID: userctx.OwnerUserID(ctx),
		Name:        strings.TrimSpace(name),
	}
	if plan.Name == "" {
		plan.Name = "Plan généré"
	}
	if clientID != nil {
		if _, err := clients.EnsureOwned(ctx, s.lookup, *clientID); err != nil {
			return PlanDTO{}, err
		}
		cid := clientID.String()
		plan.ClientID = &cid
	}

	for i, gm := range meals {
		meal := storage.Meal{
			Name:     fmt.Sprintf("J%d - %s", gm.Day, gm.Slot),
			Position: i,
			Items:    make([]storage.MealItem, 0, len(gm.Items)),
		}
		for _, gi := range gm.Items {
			meal.Items = append(meal.Items, storage.MealItem{FoodID: gi.FoodID, Quantity: gi.Grams})
		}
		plan.Meals = append(plan.Meals, meal)
	}

	if err := s.plans.CreatePlan(ctx, plan); err != nil {
		return PlanDTO{}, fmt.Errorf("failed to save generated plan: %w", err)
	}
	return s.Get(ctx, plan.ID)
}

func (s *Service) load(ctx context.Context, id string) (*storage.MealPlan, error) {
	plan, err := s.plans.GetPlan(ctx, userctx.OwnerUserID(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) aggregate(ctx context.Context, plan storage.MealPlan) (PlanDTO, error) {
	catalog, err := s.catalogFor(ctx, plan.Meals)
	if err != nil {
		return PlanDTO{}, err
	}
	return Aggregate(plan, catalog), nil
}

// catalogFor загружает продукты, на которые ссылаются позиции; удалённые пропускаются
func (s *Service) catalogFor(ctx context.Context, meals []storage.Meal) (map[string]storage.Food, error) {
	catalog := make(map[string]storage.Food)
	for _, meal := range meals {
		for _, item := range meal.Items {
			if _, seen := catalog[item.FoodID]; seen {
				continue
			}
			food, err := s.foods.GetFood(ctx, item.FoodID)
			if err != nil {
				return nil, fmt.Errorf("failed to get food: %w", err)
			}
			if food != nil {
				catalog[item.FoodID] = *food
			}
		}
	}
	return catalog, nil
}

func (s *Service) build(ctx context.Context, req PlanRequest) (*storage.MealPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	plan := &storage.MealPlan{
		OwnerUserID: userctx.OwnerUserID(ctx),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Tags:        req.Tags,
	}
	if req.ClientID != nil && strings.TrimSpace(*req.ClientID) != "" {
		clientID, err := uuid.Parse(strings.TrimSpace(*req.ClientID))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid client_id", ErrValidation)
		}
		if _, err := clients.EnsureOwned(ctx, s.lookup, clientID); err != nil {
			return nil, err
		}
		cid := clientID.String()
		plan.ClientID = &cid
	}

	for i, mr := range req.Meals {
		meal, err := s.buildMeal(ctx, mr, i)
		if err != nil {
			return nil, err
		}
		plan.Meals = append(plan.Meals, meal)
	}
	return plan, nil
}

func (s *Service) buildMeal(ctx context.Context, req MealRequest, defaultPosition int) (storage.Meal, error) {
	meal := storage.Meal{Name: strings.TrimSpace(req.Name), Position: defaultPosition}
	if req.Position != nil {
		meal.Position = *req.Position
	}
	for _, ir := range req.Items {
		item, _, err := s.buildItem(ctx, ir)
		if err != nil {
			return storage.Meal{}, err
		}
		meal.Items = append(meal.Items, item)
	}
	return meal, nil
}

// buildItem проверяет продукт и порцию; порция должна принадлежать продукту
func (s *Service) buildItem(ctx context.Context, req ItemRequest) (storage.MealItem, *storage.Food, error) {
	if err := req.Validate(); err != nil {
		return storage.MealItem{}, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	food, err := s.foods.GetFood(ctx, req.FoodID)
	if err != nil {
		return storage.MealItem{}, nil, fmt.Errorf("failed to get food: %w", err)
	}
	if food == nil {
		return storage.MealItem{}, nil, ErrFoodNotFound
	}

	item := storage.MealItem{FoodID: food.ID, Quantity: req.Quantity}
	if req.PortionID != nil && *req.PortionID != "" {
		portion, err := s.foods.GetPortion(ctx, *req.PortionID)
		if err != nil {
			return storage.MealItem{}, nil, fmt.Errorf("failed to get portion: %w", err)
		}
		if portion == nil || portion.FoodID != food.ID {
			return storage.MealItem{}, nil, fmt.Errorf("%w: portion %q does not belong to food %q", ErrValidation, *req.PortionID, food.ID)
		}
		pid := portion.ID
		item.PortionID = &pid
	}
	return item, food, nil
}
