package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

type mealPlansStorage struct {
	mu    sync.RWMutex
	plans map[string]*storage.MealPlan // key: plan_id
	// индексы для поиска приёмов пищи и позиций
	mealToPlan map[string]string // meal_id -> plan_id
	itemToMeal map[string]string // item_id -> meal_id
}

func newMealPlansStorage() *mealPlansStorage {
	return &mealPlansStorage{
		plans:      make(map[string]*storage.MealPlan),
		mealToPlan: make(map[string]string),
		itemToMeal: make(map[string]string),
	}
}

func (s *mealPlansStorage) ListPlans(ctx context.Context, ownerUserID string, clientID *string) ([]storage.MealPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.MealPlan, 0)
	for _, p := range s.plans {
		if p.OwnerUserID != ownerUserID {
			continue
		}
		if clientID != nil && (p.ClientID == nil || *p.ClientID != *clientID) {
			continue
		}
		header := *p
		header.Meals = nil
		out = append(out, header)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *mealPlansStorage) GetPlan(ctx context.Context, ownerUserID, id string) (*storage.MealPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.ownedPlanLocked(ownerUserID, id)
	if !ok {
		return nil, nil
	}
	out := clonePlan(p)
	return &out, nil
}

func (s *mealPlansStorage) FindPlanByClient(ctx context.Context, ownerUserID, clientID string) (*storage.MealPlan, error) {
	list, err := s.ListPlans(ctx, ownerUserID, &clientID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return s.GetPlan(ctx, ownerUserID, list[0].ID)
}

func (s *mealPlansStorage) CreatePlan(ctx context.Context, plan *storage.MealPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	plan.ID = uuid.New().String()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	s.assignTreeLocked(plan)

	stored := clonePlan(plan)
	s.plans[plan.ID] = &stored
	return nil
}

func (s *mealPlansStorage) UpdatePlan(ctx context.Context, plan *storage.MealPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.ownedPlanLocked(plan.OwnerUserID, plan.ID)
	if !ok {
		return storage.ErrNotFound
	}

	s.dropTreeLocked(existing)
	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = time.Now().UTC()
	s.assignTreeLocked(plan)

	stored := clonePlan(plan)
	s.plans[plan.ID] = &stored
	return nil
}

func (s *mealPlansStorage) DeletePlan(ctx context.Context, ownerUserID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ownedPlanLocked(ownerUserID, id)
	if !ok {
		return storage.ErrNotFound
	}
	s.dropTreeLocked(p)
	delete(s.plans, id)
	return nil
}

func (s *mealPlansStorage) AddMeal(ctx context.Context, ownerUserID, planID string, meal *storage.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ownedPlanLocked(ownerUserID, planID)
	if !ok {
		return storage.ErrNotFound
	}

	meal.ID = uuid.New().String()
	meal.PlanID = planID
	s.mealToPlan[meal.ID] = planID
	for i := range meal.Items {
		meal.Items[i].ID = uuid.New().String()
		meal.Items[i].MealID = meal.ID
		s.itemToMeal[meal.Items[i].ID] = meal.ID
	}

	p.Meals = append(p.Meals, cloneMeal(*meal))
	sortMeals(p.Meals)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mealPlansStorage) GetMeal(ctx context.Context, ownerUserID, mealID string) (*storage.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, idx, ok := s.mealLocked(ownerUserID, mealID)
	if !ok {
		return nil, nil
	}
	m := cloneMeal(p.Meals[idx])
	return &m, nil
}

func (s *mealPlansStorage) UpdateMeal(ctx context.Context, ownerUserID string, meal storage.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, idx, ok := s.mealLocked(ownerUserID, meal.ID)
	if !ok {
		return storage.ErrNotFound
	}

	p.Meals[idx].Name = meal.Name
	p.Meals[idx].Position = meal.Position
	sortMeals(p.Meals)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mealPlansStorage) DeleteMeal(ctx context.Context, ownerUserID, mealID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, idx, ok := s.mealLocked(ownerUserID, mealID)
	if !ok {
		return storage.ErrNotFound
	}

	for _, it := range p.Meals[idx].Items {
		delete(s.itemToMeal, it.ID)
	}
	delete(s.mealToPlan, mealID)
	p.Meals = append(p.Meals[:idx], p.Meals[idx+1:]...)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mealPlansStorage) AddItem(ctx context.Context, ownerUserID, mealID string, item *storage.MealItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, idx, ok := s.mealLocked(ownerUserID, mealID)
	if !ok {
		return storage.ErrNotFound
	}

	item.ID = uuid.New().String()
	item.MealID = mealID
	s.itemToMeal[item.ID] = mealID
	p.Meals[idx].Items = append(p.Meals[idx].Items, *item)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mealPlansStorage) UpdateItem(ctx context.Context, ownerUserID string, item storage.MealItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, mi, ii, ok := s.itemLocked(ownerUserID, item.ID)
	if !ok {
		return storage.ErrNotFound
	}

	it := &p.Meals[mi].Items[ii]
	it.FoodID = item.FoodID
	it.PortionID = item.PortionID
	it.Quantity = item.Quantity
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mealPlansStorage) DeleteItem(ctx context.Context, ownerUserID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, mi, ii, ok := s.itemLocked(ownerUserID, itemID)
	if !ok {
		return storage.ErrNotFound
	}

	items := p.Meals[mi].Items
	p.Meals[mi].Items = append(items[:ii], items[ii+1:]...)
	delete(s.itemToMeal, itemID)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mealPlansStorage) detachClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.plans {
		if p.ClientID != nil && *p.ClientID == clientID {
			p.ClientID = nil
		}
	}
}

// Helper methods (must be called with lock held)

func (s *mealPlansStorage) ownedPlanLocked(ownerUserID, id string) (*storage.MealPlan, bool) {
	p, ok := s.plans[id]
	if !ok || p.OwnerUserID != ownerUserID {
		return nil, false
	}
	return p, true
}

func (s *mealPlansStorage) mealLocked(ownerUserID, mealID string) (*storage.MealPlan, int, bool) {
	p, ok := s.ownedPlanLocked(ownerUserID, s.mealToPlan[mealID])
	if !ok {
		return nil, 0, false
	}
	for i := range p.Meals {
		if p.Meals[i].ID == mealID {
			return p, i, true
		}
	}
	return nil, 0, false
}

func (s *mealPlansStorage) itemLocked(ownerUserID, itemID string) (*storage.MealPlan, int, int, bool) {
	p, mi, ok := s.mealLocked(ownerUserID, s.itemToMeal[itemID])
	if !ok {
		return nil, 0, 0, false
	}
	for i := range p.Meals[mi].Items {
		if p.Meals[mi].Items[i].ID == itemID {
			return p, mi, i, true
		}
	}
	return nil, 0, 0, false
}

func (s *mealPlansStorage) assignTreeLocked(plan *storage.MealPlan) {
	for i := range plan.Meals {
		m := &plan.Meals[i]
		m.ID = uuid.New().String()
		m.PlanID = plan.ID
		s.mealToPlan[m.ID] = plan.ID
		for j := range m.Items {
			m.Items[j].ID = uuid.New().String()
			m.Items[j].MealID = m.ID
			s.itemToMeal[m.Items[j].ID] = m.ID
		}
	}
	sortMeals(plan.Meals)
}

func (s *mealPlansStorage) dropTreeLocked(plan *storage.MealPlan) {
	for _, m := range plan.Meals {
		for _, it := range m.Items {
			delete(s.itemToMeal, it.ID)
		}
		delete(s.mealToPlan, m.ID)
	}
}

func sortMeals(meals []storage.Meal) {
	sort.SliceStable(meals, func(i, j int) bool { return meals[i].Position < meals[j].Position })
}

func clonePlan(p *storage.MealPlan) storage.MealPlan {
	out := *p
	out.Meals = make([]storage.Meal, len(p.Meals))
	for i, m := range p.Meals {
		out.Meals[i] = cloneMeal(m)
	}
	return out
}

func cloneMeal(m storage.Meal) storage.Meal {
	out := m
	out.Items = make([]storage.MealItem, len(m.Items))
	copy(out.Items, m.Items)
	return out
}
