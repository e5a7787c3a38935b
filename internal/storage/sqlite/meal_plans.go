package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type mealPlansStorage struct {
	db *gorm.DB
}

func (s *mealPlansStorage) ListPlans(ctx context.Context, ownerUserID string, clientID *string) ([]storage.MealPlan, error) {
	db := s.db.WithContext(ctx).Where("owner_user_id = ?", ownerUserID)
	if clientID != nil {
		db = db.Where("client_id = ?", *clientID)
	}

	var models []planModel
	if err := db.Order("name").Order("created_at").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}

	plans := make([]storage.MealPlan, 0, len(models))
	for _, m := range models {
		m.Meals = nil
		plans = append(plans, planFromModel(m))
	}
	return plans, nil
}

func (s *mealPlansStorage) GetPlan(ctx context.Context, ownerUserID, id string) (*storage.MealPlan, error) {
	var m planModel
	err := s.db.WithContext(ctx).
		Preload("Meals", func(db *gorm.DB) *gorm.DB { return db.Order("position").Order("rowid") }).
		Preload("Meals.Items", func(db *gorm.DB) *gorm.DB { return db.Order("rowid") }).
		First(&m, "id = ? AND owner_user_id = ?", id, ownerUserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}

	plan := planFromModel(m)
	return &plan, nil
}

func (s *mealPlansStorage) FindPlanByClient(ctx context.Context, ownerUserID, clientID string) (*storage.MealPlan, error) {
	plans, err := s.ListPlans(ctx, ownerUserID, &clientID)
	if err != nil || len(plans) == 0 {
		return nil, err
	}
	return s.GetPlan(ctx, ownerUserID, plans[0].ID)
}

func (s *mealPlansStorage) CreatePlan(ctx context.Context, plan *storage.MealPlan) error {
	now := time.Now().UTC()
	plan.ID = uuid.New().String()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	assignIDs(plan)

	m := planToModel(*plan)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to create meal plan: %w", err)
	}
	return nil
}

// UpdatePlan заменяет заголовок плана и всё дерево приёмов пищи
func (s *mealPlansStorage) UpdatePlan(ctx context.Context, plan *storage.MealPlan) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing planModel
		err := tx.First(&existing, "id = ? AND owner_user_id = ?", plan.ID, plan.OwnerUserID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get meal plan: %w", err)
		}

		if err := deleteMealsOf(tx, plan.ID); err != nil {
			return err
		}

		plan.CreatedAt = existing.CreatedAt
		plan.UpdatedAt = time.Now().UTC()
		assignIDs(plan)

		m := planToModel(*plan)
		if err := tx.Omit("Meals").Save(&m).Error; err != nil {
			return fmt.Errorf("failed to update meal plan: %w", err)
		}
		for i := range m.Meals {
			if err := tx.Create(&m.Meals[i]).Error; err != nil {
				return fmt.Errorf("failed to insert meal: %w", err)
			}
		}
		return nil
	})
}

func (s *mealPlansStorage) DeletePlan(ctx context.Context, ownerUserID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&planModel{}, "id = ? AND owner_user_id = ?", id, ownerUserID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete meal plan: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return deleteMealsOf(tx, id)
	})
}

func (s *mealPlansStorage) AddMeal(ctx context.Context, ownerUserID, planID string, meal *storage.Meal) error {
	if !s.ownsPlan(ctx, ownerUserID, planID) {
		return storage.ErrNotFound
	}

	meal.ID = uuid.New().String()
	meal.PlanID = planID
	for i := range meal.Items {
		meal.Items[i].ID = uuid.New().String()
		meal.Items[i].MealID = meal.ID
	}

	m := mealToModel(*meal)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to add meal: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) GetMeal(ctx context.Context, ownerUserID, mealID string) (*storage.Meal, error) {
	if _, ok := s.ownedMeal(ctx, ownerUserID, mealID); !ok {
		return nil, nil
	}

	var m mealModel
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("rowid") }).
		First(&m, "id = ?", mealID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}

	meal := mealFromModel(m)
	return &meal, nil
}

func (s *mealPlansStorage) UpdateMeal(ctx context.Context, ownerUserID string, meal storage.Meal) error {
	if _, ok := s.ownedMeal(ctx, ownerUserID, meal.ID); !ok {
		return storage.ErrNotFound
	}

	err := s.db.WithContext(ctx).Model(&mealModel{}).Where("id = ?", meal.ID).
		Updates(map[string]any{"name": meal.Name, "position": meal.Position}).Error
	if err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) DeleteMeal(ctx context.Context, ownerUserID, mealID string) error {
	if _, ok := s.ownedMeal(ctx, ownerUserID, mealID); !ok {
		return storage.ErrNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&itemModel{}, "meal_id = ?", mealID).Error; err != nil {
			return fmt.Errorf("failed to delete meal items: %w", err)
		}
		if err := tx.Delete(&mealModel{}, "id = ?", mealID).Error; err != nil {
			return fmt.Errorf("failed to delete meal: %w", err)
		}
		return nil
	})
}

func (s *mealPlansStorage) AddItem(ctx context.Context, ownerUserID, mealID string, item *storage.MealItem) error {
	if _, ok := s.ownedMeal(ctx, ownerUserID, mealID); !ok {
		return storage.ErrNotFound
	}

	item.ID = uuid.New().String()
	item.MealID = mealID
	m := itemModel(*item)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to add meal item: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) UpdateItem(ctx context.Context, ownerUserID string, item storage.MealItem) error {
	if !s.ownsItem(ctx, ownerUserID, item.ID) {
		return storage.ErrNotFound
	}

	err := s.db.WithContext(ctx).Model(&itemModel{}).Where("id = ?", item.ID).
		Updates(map[string]any{"food_id": item.FoodID, "portion_id": item.PortionID, "quantity": item.Quantity}).Error
	if err != nil {
		return fmt.Errorf("failed to update meal item: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) DeleteItem(ctx context.Context, ownerUserID, itemID string) error {
	if !s.ownsItem(ctx, ownerUserID, itemID) {
		return storage.ErrNotFound
	}

	if err := s.db.WithContext(ctx).Delete(&itemModel{}, "id = ?", itemID).Error; err != nil {
		return fmt.Errorf("failed to delete meal item: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) ownsPlan(ctx context.Context, ownerUserID, planID string) bool {
	var count int64
	s.db.WithContext(ctx).Model(&planModel{}).
		Where("id = ? AND owner_user_id = ?", planID, ownerUserID).
		Count(&count)
	return count > 0
}

func (s *mealPlansStorage) ownedMeal(ctx context.Context, ownerUserID, mealID string) (mealModel, bool) {
	var m mealModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", mealID).Error; err != nil {
		return mealModel{}, false
	}
	return m, s.ownsPlan(ctx, ownerUserID, m.PlanID)
}

func (s *mealPlansStorage) ownsItem(ctx context.Context, ownerUserID, itemID string) bool {
	var it itemModel
	if err := s.db.WithContext(ctx).First(&it, "id = ?", itemID).Error; err != nil {
		return false
	}
	_, ok := s.ownedMeal(ctx, ownerUserID, it.MealID)
	return ok
}

func deleteMealsOf(tx *gorm.DB, planID string) error {
	mealIDs := tx.Model(&mealModel{}).Select("id").Where("plan_id = ?", planID)
	if err := tx.Where("meal_id IN (?)", mealIDs).Delete(&itemModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete meal items: %w", err)
	}
	if err := tx.Where("plan_id = ?", planID).Delete(&mealModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete meals: %w", err)
	}
	return nil
}

func assignIDs(plan *storage.MealPlan) {
	for i := range plan.Meals {
		m := &plan.Meals[i]
		m.ID = uuid.New().String()
		m.PlanID = plan.ID
		for j := range m.Items {
			m.Items[j].ID = uuid.New().String()
			m.Items[j].MealID = m.ID
		}
	}
}

func planToModel(p storage.MealPlan) planModel {
	m := planModel{
		ID:          p.ID,
		OwnerUserID: p.OwnerUserID,
		ClientID:    p.ClientID,
		Name:        p.Name,
		Description: p.Description,
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, meal := range p.Meals {
		m.Meals = append(m.Meals, mealToModel(meal))
	}
	return m
}

func mealToModel(meal storage.Meal) mealModel {
	m := mealModel{
		ID:       meal.ID,
		PlanID:   meal.PlanID,
		Name:     meal.Name,
		Position: meal.Position,
	}
	for _, it := range meal.Items {
		m.Items = append(m.Items, itemModel(it))
	}
	return m
}

func planFromModel(m planModel) storage.MealPlan {
	p := storage.MealPlan{
		ID:          m.ID,
		OwnerUserID: m.OwnerUserID,
		ClientID:    m.ClientID,
		Name:        m.Name,
		Description: m.Description,
		Tags:        m.Tags,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Meals != nil {
		p.Meals = make([]storage.Meal, 0, len(m.Meals))
	}
	for _, mm := range m.Meals {
		p.Meals = append(p.Meals, mealFromModel(mm))
	}
	return p
}

func mealFromModel(m mealModel) storage.Meal {
	meal := storage.Meal{
		ID:       m.ID,
		PlanID:   m.PlanID,
		Name:     m.Name,
		Position: m.Position,
		Items:    make([]storage.MealItem, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		meal.Items = append(meal.Items, storage.MealItem(it))
	}
	return meal
}
