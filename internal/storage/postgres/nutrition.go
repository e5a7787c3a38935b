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

type nutritionSheetsStorage struct {
	pool *pgxpool.Pool
}

func newNutritionSheetsStorage(pool *pgxpool.Pool) *nutritionSheetsStorage {
	return &nutritionSheetsStorage{pool: pool}
}

const sheetColumns = `id, client_id, created_at, weight_kg, goal, protein_per_kg, carb_ratio,
	maintenance_kcal, objective_kcal, protein_g, carbs_g, fat_g`

func scanSheet(row pgx.Row) (storage.NutritionSheet, error) {
	var s storage.NutritionSheet
	err := row.Scan(
		&s.ID,
		&s.ClientID,
		&s.CreatedAt,
		&s.WeightKg,
		&s.Goal,
		&s.ProteinPerKg,
		&s.CarbRatio,
		&s.MaintenanceKcal,
		&s.ObjectiveKcal,
		&s.ProteinG,
		&s.CarbsG,
		&s.FatG,
	)
	return s, err
}

func (s *nutritionSheetsStorage) InsertSheet(ctx context.Context, sheet *storage.NutritionSheet) error {
	query := `
		INSERT INTO nutrition_sheets (client_id, weight_kg, goal, protein_per_kg, carb_ratio,
		                              maintenance_kcal, objective_kcal, protein_g, carbs_g, fat_g)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		sheet.ClientID,
		sheet.WeightKg,
		sheet.Goal,
		sheet.ProteinPerKg,
		sheet.CarbRatio,
		sheet.MaintenanceKcal,
		sheet.ObjectiveKcal,
		sheet.ProteinG,
		sheet.CarbsG,
		sheet.FatG,
	).Scan(&sheet.ID, &sheet.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert nutrition sheet: %w", err)
	}

	return nil
}

func (s *nutritionSheetsStorage) GetSheet(ctx context.Context, id uuid.UUID) (*storage.NutritionSheet, error) {
	sheet, err := scanSheet(s.pool.QueryRow(ctx, `SELECT `+sheetColumns+` FROM nutrition_sheets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition sheet: %w", err)
	}
	return &sheet, nil
}

func (s *nutritionSheetsStorage) GetLatestSheet(ctx context.Context, clientID uuid.UUID) (*storage.NutritionSheet, error) {
	query := `
		SELECT ` + sheetColumns + `
		FROM nutrition_sheets
		WHERE client_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`

	sheet, err := scanSheet(s.pool.QueryRow(ctx, query, clientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest nutrition sheet: %w", err)
	}
	return &sheet, nil
}

func (s *nutritionSheetsStorage) ListSheets(ctx context.Context, clientID uuid.UUID, limit int) ([]storage.NutritionSheet, error) {
	query := `
		SELECT ` + sheetColumns + `
		FROM nutrition_sheets
		WHERE client_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list nutrition sheets: %w", err)
	}
	defer rows.Close()

	sheets := []storage.NutritionSheet{}
	for rows.Next() {
		sheet, err := scanSheet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nutrition sheet: %w", err)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, rows.Err()
}

type nutritionProfilesStorage struct {
	pool *pgxpool.Pool
}

func newNutritionProfilesStorage(pool *pgxpool.Pool) *nutritionProfilesStorage {
	return &nutritionProfilesStorage{pool: pool}
}

const profileColumns = `id, client_id, age, sex, weight_kg, height_cm, goal, activity_level,
	restrictions, compatible_diets, preferred_food_ids, excluded_food_ids, meals_per_day,
	bmr, calorie_needs, protein_g, carbs_g, fat_g, protein_pct, carbs_pct, fat_pct,
	created_at, updated_at`

func (s *nutritionProfilesStorage) GetProfileByClient(ctx context.Context, clientID uuid.UUID) (*storage.NutritionProfile, error) {
	var p storage.NutritionProfile
	err := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM nutrition_profiles WHERE client_id = $1`, clientID).Scan(
		&p.ID,
		&p.ClientID,
		&p.Age,
		&p.Sex,
		&p.WeightKg,
		&p.HeightCm,
		&p.Goal,
		&p.ActivityLevel,
		&p.Restrictions,
		&p.CompatibleDiets,
		&p.PreferredFoodIDs,
		&p.ExcludedFoodIDs,
		&p.MealsPerDay,
		&p.BMR,
		&p.CalorieNeeds,
		&p.Macros.ProteinG,
		&p.Macros.CarbsG,
		&p.Macros.FatG,
		&p.Macros.ProteinPct,
		&p.Macros.CarbsPct,
		&p.Macros.FatPct,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile вставляет или заменяет профиль клиента; id и created_at существующей строки сохраняются
func (s *nutritionProfilesStorage) UpsertProfile(ctx context.Context, p *storage.NutritionProfile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO nutrition_profiles (id, client_id, age, sex, weight_kg, height_cm, goal, activity_level,
		    restrictions, compatible_diets, preferred_food_ids, excluded_food_ids, meals_per_day,
		    bmr, calorie_needs, protein_g, carbs_g, fat_g, protein_pct, carbs_pct, fat_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (client_id) DO UPDATE SET
		    age = EXCLUDED.age,
		    sex = EXCLUDED.sex,
		    weight_kg = EXCLUDED.weight_kg,
		    height_cm = EXCLUDED.height_cm,
		    goal = EXCLUDED.goal,
		    activity_level = EXCLUDED.activity_level,
		    restrictions = EXCLUDED.restrictions,
		    compatible_diets = EXCLUDED.compatible_diets,
		    preferred_food_ids = EXCLUDED.preferred_food_ids,
		    excluded_food_ids = EXCLUDED.excluded_food_ids,
		    meals_per_day = EXCLUDED.meals_per_day,
		    bmr = EXCLUDED.bmr,
		    calorie_needs = EXCLUDED.calorie_needs,
		    protein_g = EXCLUDED.protein_g,
		    carbs_g = EXCLUDED.carbs_g,
		    fat_g = EXCLUDED.fat_g,
		    protein_pct = EXCLUDED.protein_pct,
		    carbs_pct = EXCLUDED.carbs_pct,
		    fat_pct = EXCLUDED.fat_pct,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := s.pool.QueryRow(ctx, query,
		p.ID,
		p.ClientID,
		p.Age,
		p.Sex,
		p.WeightKg,
		p.HeightCm,
		p.Goal,
		p.ActivityLevel,
		nonNil(p.Restrictions),
		nonNil(p.CompatibleDiets),
		nonNil(p.PreferredFoodIDs),
		nonNil(p.ExcludedFoodIDs),
		p.MealsPerDay,
		p.BMR,
		p.CalorieNeeds,
		p.Macros.ProteinG,
		p.Macros.CarbsG,
		p.Macros.FatG,
		p.Macros.ProteinPct,
		p.Macros.CarbsPct,
		p.Macros.FatPct,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert nutrition profile: %w", err)
	}

	return nil
}

func (s *nutritionProfilesStorage) DeleteProfile(ctx context.Context, clientID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM nutrition_profiles WHERE client_id = $1`, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete nutrition profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
