package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type mealPlansStorage struct {
	pool *pgxpool.Pool
}

func newMealPlansStorage(pool *pgxpool.Pool) *mealPlansStorage {
	return &mealPlansStorage{pool: pool}
}

const planColumns = `id::text, owner_user_id, client_id::text, name, description, tags, created_at, updated_at`

func scanPlan(row pgx.Row) (storage.MealPlan, error) {
	var p storage.MealPlan
	err := row.Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.ClientID,
		&p.Name,
		&p.Description,
		&p.Tags,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (s *mealPlansStorage) ListPlans(ctx context.Context, ownerUserID string, clientID *string) ([]storage.MealPlan, error) {
	query := `SELECT ` + planColumns + ` FROM meal_plans WHERE owner_user_id = $1`
	args := []any{ownerUserID}
	if clientID != nil {
		cid, ok := parseID(*clientID)
		if !ok {
			return []storage.MealPlan{}, nil
		}
		query += ` AND client_id = $2`
		args = append(args, cid)
	}
	query += ` ORDER BY name, created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	plans := []storage.MealPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *mealPlansStorage) GetPlan(ctx context.Context, ownerUserID, id string) (*storage.MealPlan, error) {
	pid, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	plan, err := scanPlan(s.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM meal_plans WHERE id = $1 AND owner_user_id = $2`, pid, ownerUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}

	meals, err := s.loadMeals(ctx, pid)
	if err != nil {
		return nil, err
	}
	plan.Meals = meals

	return &plan, nil
}

func (s *mealPlansStorage) FindPlanByClient(ctx context.Context, ownerUserID, clientID string) (*storage.MealPlan, error) {
	plans, err := s.ListPlans(ctx, ownerUserID, &clientID)
	if err != nil || len(plans) == 0 {
		return nil, err
	}
	return s.GetPlan(ctx, ownerUserID, plans[0].ID)
}

// loadMeals возвращает приёмы пищи плана с позициями
func (s *mealPlansStorage) loadMeals(ctx context.Context, planID uuid.UUID) ([]storage.Meal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, plan_id::text, name, position
		FROM meals
		WHERE plan_id = $1
		ORDER BY position, id
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}

	meals := []storage.Meal{}
	index := map[string]int{}
	for rows.Next() {
		var m storage.Meal
		if err := rows.Scan(&m.ID, &m.PlanID, &m.Name, &m.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		m.Items = []storage.MealItem{}
		index[m.ID] = len(meals)
		meals = append(meals, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := s.pool.Query(ctx, `
		SELECT i.id::text, i.meal_id::text, i.food_id::text, i.portion_id::text, i.quantity
		FROM meal_items i
		JOIN meals m ON m.id = i.meal_id
		WHERE m.plan_id = $1
		ORDER BY i.seq
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it storage.MealItem
		if err := itemRows.Scan(&it.ID, &it.MealID, &it.FoodID, &it.PortionID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan meal item: %w", err)
		}
		if i, ok := index[it.MealID]; ok {
			meals[i].Items = append(meals[i].Items, it)
		}
	}

	return meals, itemRows.Err()
}

func (s *mealPlansStorage) CreatePlan(ctx context.Context, plan *storage.MealPlan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO meal_plans (owner_user_id, client_id, name, description, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at, updated_at
	`,
		plan.OwnerUserID,
		optionalUUID(plan.ClientID),
		plan.Name,
		plan.Description,
		plan.Tags,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create meal plan: %w", err)
	}

	if err := insertMeals(ctx, tx, plan); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdatePlan заменяет заголовок плана и всё дерево приёмов пищи
func (s *mealPlansStorage) UpdatePlan(ctx context.Context, plan *storage.MealPlan) error {
	pid, ok := parseID(plan.ID)
	if !ok {
		return storage.ErrNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE meal_plans
		SET client_id = $3, name = $4, description = $5, tags = $6, updated_at = NOW()
		WHERE id = $1 AND owner_user_id = $2
		RETURNING created_at, updated_at
	`,
		pid,
		plan.OwnerUserID,
		optionalUUID(plan.ClientID),
		plan.Name,
		plan.Description,
		plan.Tags,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update meal plan: %w", err)
	}

	// Позиции удаляются каскадом
	if _, err := tx.Exec(ctx, `DELETE FROM meals WHERE plan_id = $1`, pid); err != nil {
		return fmt.Errorf("failed to delete meals: %w", err)
	}

	if err := insertMeals(ctx, tx, plan); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertMeals(ctx context.Context, tx pgx.Tx, plan *storage.MealPlan) error {
	for i := range plan.Meals {
		m := &plan.Meals[i]
		m.PlanID = plan.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO meals (plan_id, name, position)
			VALUES ($1, $2, $3)
			RETURNING id::text
		`, plan.ID, m.Name, m.Position).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("failed to insert meal: %w", err)
		}

		for j := range m.Items {
			if err := insertItem(ctx, tx, m.ID, &m.Items[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertItem(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, mealID string, item *storage.MealItem) error {
	fid, ok := parseID(item.FoodID)
	if !ok {
		return fmt.Errorf("failed to insert meal item: invalid food id %q", item.FoodID)
	}

	item.MealID = mealID
	err := q.QueryRow(ctx, `
		INSERT INTO meal_items (meal_id, food_id, portion_id, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text
	`, mealID, fid, optionalUUID(item.PortionID), item.Quantity).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to insert meal item: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) DeletePlan(ctx context.Context, ownerUserID, id string) error {
	pid, ok := parseID(id)
	if !ok {
		return storage.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM meal_plans WHERE id = $1 AND owner_user_id = $2`, pid, ownerUserID)
	if err != nil {
		return fmt.Errorf("failed to delete meal plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *mealPlansStorage) AddMeal(ctx context.Context, ownerUserID, planID string, meal *storage.Meal) error {
	pid, ok := parseID(planID)
	if !ok {
		return storage.ErrNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO meals (plan_id, name, position)
		SELECT id, $3, $4 FROM meal_plans WHERE id = $1 AND owner_user_id = $2
		RETURNING id::text
	`, pid, ownerUserID, meal.Name, meal.Position).Scan(&meal.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to add meal: %w", err)
	}
	meal.PlanID = planID

	for i := range meal.Items {
		if err := insertItem(ctx, tx, meal.ID, &meal.Items[i]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *mealPlansStorage) GetMeal(ctx context.Context, ownerUserID, mealID string) (*storage.Meal, error) {
	mid, ok := parseID(mealID)
	if !ok {
		return nil, nil
	}

	var m storage.Meal
	err := s.pool.QueryRow(ctx, `
		SELECT m.id::text, m.plan_id::text, m.name, m.position
		FROM meals m
		JOIN meal_plans p ON p.id = m.plan_id
		WHERE m.id = $1 AND p.owner_user_id = $2
	`, mid, ownerUserID).Scan(&m.ID, &m.PlanID, &m.Name, &m.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, meal_id::text, food_id::text, portion_id::text, quantity
		FROM meal_items
		WHERE meal_id = $1
		ORDER BY seq
	`, mid)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal items: %w", err)
	}
	defer rows.Close()

	m.Items = []storage.MealItem{}
	for rows.Next() {
		var it storage.MealItem
		if err := rows.Scan(&it.ID, &it.MealID, &it.FoodID, &it.PortionID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan meal item: %w", err)
		}
		m.Items = append(m.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *mealPlansStorage) UpdateMeal(ctx context.Context, ownerUserID string, meal storage.Meal) error {
	mid, ok := parseID(meal.ID)
	if !ok {
		return storage.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE meals m
		SET name = $3, position = $4
		FROM meal_plans p
		WHERE m.id = $1 AND m.plan_id = p.id AND p.owner_user_id = $2
	`, mid, ownerUserID, meal.Name, meal.Position)
	if err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *mealPlansStorage) DeleteMeal(ctx context.Context, ownerUserID, mealID string) error {
	mid, ok := parseID(mealID)
	if !ok {
		return storage.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `
		DELETE FROM meals m
		USING meal_plans p
		WHERE m.id = $1 AND m.plan_id = p.id AND p.owner_user_id = $2
	`, mid, ownerUserID)
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *mealPlansStorage) AddItem(ctx context.Context, ownerUserID, mealID string, item *storage.MealItem) error {
	mid, ok := parseID(mealID)
	if !ok {
		return storage.ErrNotFound
	}

	var owned bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM meals m JOIN meal_plans p ON p.id = m.plan_id
			WHERE m.id = $1 AND p.owner_user_id = $2
		)
	`, mid, ownerUserID).Scan(&owned)
	if err != nil {
		return fmt.Errorf("failed to check meal: %w", err)
	}
	if !owned {
		return storage.ErrNotFound
	}

	return insertItem(ctx, s.pool, mealID, item)
}

func (s *mealPlansStorage) UpdateItem(ctx context.Context, ownerUserID string, item storage.MealItem) error {
	iid, ok := parseID(item.ID)
	if !ok {
		return storage.ErrNotFound
	}
	fid, ok := parseID(item.FoodID)
	if !ok {
		return fmt.Errorf("failed to update meal item: invalid food id %q", item.FoodID)
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE meal_items i
		SET food_id = $3, portion_id = $4, quantity = $5
		FROM meals m, meal_plans p
		WHERE i.id = $1 AND i.meal_id = m.id AND m.plan_id = p.id AND p.owner_user_id = $2
	`, iid, ownerUserID, fid, optionalUUID(item.PortionID), item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to update meal item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *mealPlansStorage) DeleteItem(ctx context.Context, ownerUserID, itemID string) error {
	iid, ok := parseID(itemID)
	if !ok {
		return storage.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `
		DELETE FROM meal_items i
		USING meals m, meal_plans p
		WHERE i.id = $1 AND i.meal_id = m.id AND m.plan_id = p.id AND p.owner_user_id = $2
	`, iid, ownerUserID)
	if err != nil {
		return fmt.Errorf("failed to delete meal item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func optionalUUID(id *string) *uuid.UUID {
	if id == nil {
		return nil
	}
	parsed, ok := parseID(*id)
	if !ok {
		return nil
	}
	return &parsed
}
