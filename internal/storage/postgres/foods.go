package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type foodCatalogStorage struct {
	pool *pgxpool.Pool
}

func newFoodCatalogStorage(pool *pgxpool.Pool) *foodCatalogStorage {
	return &foodCatalogStorage{pool: pool}
}

const foodColumns = `id::text, name, category, diet_type, kcal_100g, protein_100g, carbs_100g, fat_100g,
	fiber_100g, base_unit, healthy_index, common_index, created_at, updated_at`

// metricColumns: белый список колонок для TopByMetric
var metricColumns = map[string]string{
	storage.MetricProtein: "protein_100g",
	storage.MetricFiber:   "fiber_100g",
	storage.MetricHealthy: "healthy_index",
}

func scanFood(row pgx.Row) (storage.Food, error) {
	var f storage.Food
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Category,
		&f.DietType,
		&f.KcalPer100g,
		&f.ProteinPer100g,
		&f.CarbsPer100g,
		&f.FatPer100g,
		&f.FiberPer100g,
		&f.BaseUnit,
		&f.HealthyIndex,
		&f.CommonIndex,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

func (s *foodCatalogStorage) queryFoods(ctx context.Context, query string, args ...any) ([]storage.Food, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	foods := []storage.Food{}
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		foods = append(foods, f)
	}
	return foods, rows.Err()
}

func (s *foodCatalogStorage) ListFoods(ctx context.Context) ([]storage.Food, error) {
	return s.queryFoods(ctx, `SELECT `+foodColumns+` FROM foods ORDER BY name`)
}

func (s *foodCatalogStorage) GetFood(ctx context.Context, id string) (*storage.Food, error) {
	fid, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	f, err := scanFood(s.pool.QueryRow(ctx, `SELECT `+foodColumns+` FROM foods WHERE id = $1`, fid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get food: %w", err)
	}
	return &f, nil
}

func (s *foodCatalogStorage) GetFoodByName(ctx context.Context, name string) (*storage.Food, error) {
	f, err := scanFood(s.pool.QueryRow(ctx, `SELECT `+foodColumns+` FROM foods WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get food by name: %w", err)
	}
	return &f, nil
}

func (s *foodCatalogStorage) CreateFood(ctx context.Context, req storage.FoodUpsert) (storage.Food, error) {
	query := `
		INSERT INTO foods (name, category, diet_type, kcal_100g, protein_100g, carbs_100g, fat_100g,
		                   fiber_100g, base_unit, healthy_index, common_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + foodColumns

	f, err := scanFood(s.pool.QueryRow(ctx, query, upsertArgs(req)...))
	if err != nil {
		return storage.Food{}, fmt.Errorf("failed to create food: %w", err)
	}
	return f, nil
}

func (s *foodCatalogStorage) UpdateFood(ctx context.Context, id string, req storage.FoodUpsert) (storage.Food, error) {
	fid, ok := parseID(id)
	if !ok {
		return storage.Food{}, storage.ErrNotFound
	}

	query := `
		UPDATE foods
		SET name = $1, category = $2, diet_type = $3, kcal_100g = $4, protein_100g = $5, carbs_100g = $6,
		    fat_100g = $7, fiber_100g = $8, base_unit = $9, healthy_index = $10, common_index = $11,
		    updated_at = NOW()
		WHERE id = $12
		RETURNING ` + foodColumns

	f, err := scanFood(s.pool.QueryRow(ctx, query, append(upsertArgs(req), fid)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Food{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Food{}, fmt.Errorf("failed to update food: %w", err)
	}
	return f, nil
}

// DeleteFood удаляет продукт; порции удаляются каскадом
func (s *foodCatalogStorage) DeleteFood(ctx context.Context, id string) error {
	fid, ok := parseID(id)
	if !ok {
		return storage.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM foods WHERE id = $1`, fid)
	if err != nil {
		return fmt.Errorf("failed to delete food: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *foodCatalogStorage) SearchByName(ctx context.Context, query string) ([]storage.Food, error) {
	return s.queryFoods(ctx,
		`SELECT `+foodColumns+` FROM foods WHERE name ILIKE '%' || $1 || '%' ORDER BY name`,
		query,
	)
}

func (s *foodCatalogStorage) SearchAdvanced(ctx context.Context, filter storage.FoodSearchFilter) ([]storage.Food, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Query != "" {
		add("name ILIKE '%%' || $%d || '%%'", filter.Query)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.MinProtein != nil {
		add("protein_100g >= $%d", *filter.MinProtein)
	}
	if filter.MaxKcal != nil {
		add("kcal_100g <= $%d", *filter.MaxKcal)
	}
	if filter.MinFiber != nil {
		add("fiber_100g >= $%d", *filter.MinFiber)
	}
	if filter.Diet != "" {
		add("(diet_type = $%d OR diet_type = '')", filter.Diet)
	}

	query := `SELECT ` + foodColumns + ` FROM foods`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY healthy_index DESC NULLS LAST, common_index DESC NULLS LAST, name`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	return s.queryFoods(ctx, query, args...)
}

func (s *foodCatalogStorage) ListByCategories(ctx context.Context, categories []string) ([]storage.Food, error) {
	return s.queryFoods(ctx,
		`SELECT `+foodColumns+` FROM foods WHERE category = ANY($1) ORDER BY category, name`,
		categories,
	)
}

func (s *foodCatalogStorage) TopByMetric(ctx context.Context, metric string, limit int, excludeCategories []string) ([]storage.Food, error) {
	column, ok := metricColumns[metric]
	if !ok {
		return nil, storage.ErrInvalidMetric
	}
	if limit <= 0 {
		limit = 20
	}
	if excludeCategories == nil {
		excludeCategories = []string{}
	}

	query := fmt.Sprintf(`
		SELECT %s FROM foods
		WHERE %s > 0 AND NOT (category = ANY($1))
		ORDER BY %s DESC, name
		LIMIT $2
	`, foodColumns, column, column)

	return s.queryFoods(ctx, query, excludeCategories, limit)
}

func (s *foodCatalogStorage) ListPortions(ctx context.Context, foodID string) ([]storage.Portion, error) {
	fid, ok := parseID(foodID)
	if !ok {
		return []storage.Portion{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, food_id::text, description, grams_equivalent
		FROM portions
		WHERE food_id = $1
		ORDER BY grams_equivalent, description
	`, fid)
	if err != nil {
		return nil, fmt.Errorf("failed to list portions: %w", err)
	}
	defer rows.Close()

	portions := []storage.Portion{}
	for rows.Next() {
		var p storage.Portion
		if err := rows.Scan(&p.ID, &p.FoodID, &p.Description, &p.GramsEquivalent); err != nil {
			return nil, fmt.Errorf("failed to scan portion: %w", err)
		}
		portions = append(portions, p)
	}
	return portions, rows.Err()
}

func (s *foodCatalogStorage) GetPortion(ctx context.Context, id string) (*storage.Portion, error) {
	pid, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	var p storage.Portion
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, food_id::text, description, grams_equivalent
		FROM portions WHERE id = $1
	`, pid).Scan(&p.ID, &p.FoodID, &p.Description, &p.GramsEquivalent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portion: %w", err)
	}
	return &p, nil
}

func (s *foodCatalogStorage) CreatePortion(ctx context.Context, foodID, description string, grams float64) (storage.Portion, error) {
	fid, ok := parseID(foodID)
	if !ok {
		return storage.Portion{}, storage.ErrNotFound
	}

	p := storage.Portion{FoodID: foodID, Description: description, GramsEquivalent: grams}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO portions (food_id, description, grams_equivalent)
		VALUES ($1, $2, $3)
		RETURNING id::text
	`, fid, description, grams).Scan(&p.ID)
	if err != nil {
		return storage.Portion{}, fmt.Errorf("failed to create portion: %w", err)
	}
	return p, nil
}

func (s *foodCatalogStorage) DeletePortion(ctx context.Context, id string) error {
	pid, ok := parseID(id)
	if !ok {
		return storage.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `DELETE FROM portions WHERE id = $1`, pid)
	if err != nil {
		return fmt.Errorf("failed to delete portion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func upsertArgs(req storage.FoodUpsert) []any {
	return []any{
		req.Name,
		req.Category,
		req.DietType,
		req.KcalPer100g,
		req.ProteinPer100g,
		req.CarbsPer100g,
		req.FatPer100g,
		req.FiberPer100g,
		req.BaseUnit,
		req.HealthyIndex,
		req.CommonIndex,
	}
}

// parseID разбирает строковый UUID; невалидный id считается несуществующим
func parseID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}
