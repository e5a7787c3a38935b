package profiles

import (
	"fmt"
	"slices"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

// ProfileDTO: профиль питания клиента с производными значениями
type ProfileDTO struct {
	ID               uuid.UUID `json:"id"`
	ClientID         uuid.UUID `json:"client_id"`
	Age              int       `json:"age"`
	Sex              string    `json:"sex"`
	WeightKg         float64   `json:"weight_kg"`
	HeightCm         float64   `json:"height_cm"`
	Goal             string    `json:"goal"`
	ActivityLevel    string    `json:"activity_level"`
	Restrictions     []string  `json:"restrictions"`
	CompatibleDiets  []string  `json:"compatible_diets"`
	PreferredFoodIDs []string  `json:"preferred_food_ids"`
	ExcludedFoodIDs  []string  `json:"excluded_food_ids"`
	MealsPerDay      int       `json:"meals_per_day"`
	DerivedValues
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertProfileRequest: запрос для PUT /v1/profiles/{client_id}.
// Пустые поля берутся из существующего профиля или из значений по умолчанию.
type UpsertProfileRequest struct {
	Age              *int     `json:"age,omitempty"`
	Sex              *string  `json:"sex,omitempty"`
	WeightKg         *float64 `json:"weight_kg,omitempty"`
	HeightCm         *float64 `json:"height_cm,omitempty"`
	Goal             *string  `json:"goal,omitempty"`
	ActivityLevel    *string  `json:"activity_level,omitempty"`
	Restrictions     []string `json:"restrictions,omitempty"`
	CompatibleDiets  []string `json:"compatible_diets,omitempty"`
	PreferredFoodIDs []string `json:"preferred_food_ids,omitempty"`
	ExcludedFoodIDs  []string `json:"excluded_food_ids,omitempty"`
	MealsPerDay      *int     `json:"meals_per_day,omitempty"`
}

// Validate проверяет диапазоны и закрытые списки значений
func (r *UpsertProfileRequest) Validate() error {
	if r.Age != nil && (*r.Age <= 0 || *r.Age > 120) {
		return fmt.Errorf("%w: age must be between 1 and 120", ErrValidation)
	}
	if r.Sex != nil && *r.Sex != "M" && *r.Sex != "F" {
		return fmt.Errorf("%w: sex must be M or F", ErrValidation)
	}
	if r.WeightKg != nil && (*r.WeightKg <= 0 || *r.WeightKg > 400) {
		return fmt.Errorf("%w: weight_kg must be between 0 and 400", ErrValidation)
	}
	if r.HeightCm != nil && (*r.HeightCm <= 0 || *r.HeightCm > 260) {
		return fmt.Errorf("%w: height_cm must be between 0 and 260", ErrValidation)
	}
	if r.Goal != nil {
		if _, ok := goalMultipliers[*r.Goal]; !ok {
			return fmt.Errorf("%w: unknown goal %q", ErrValidation, *r.Goal)
		}
	}
	if r.ActivityLevel != nil {
		if _, ok := activityFactors[*r.ActivityLevel]; !ok {
			return fmt.Errorf("%w: unknown activity_level %q", ErrValidation, *r.ActivityLevel)
		}
	}
	for _, restriction := range r.Restrictions {
		if !slices.Contains(Restrictions, restriction) {
			return fmt.Errorf("%w: unknown restriction %q", ErrValidation, restriction)
		}
	}
	if r.MealsPerDay != nil && (*r.MealsPerDay < 1 || *r.MealsPerDay > 6) {
		return fmt.Errorf("%w: meals_per_day must be between 1 and 6", ErrValidation)
	}
	return nil
}

// CompatibilityResponse: ответ для GET /v1/profiles/{client_id}/compatibility
type CompatibilityResponse struct {
	FoodID     string `json:"food_id"`
	Compatible bool   `json:"compatible"`
}

func toDTO(p storage.NutritionProfile) ProfileDTO {
	return ProfileDTO{
		ID:               p.ID,
		ClientID:         p.ClientID,
		Age:              p.Age,
		Sex:              p.Sex,
		WeightKg:         p.WeightKg,
		HeightCm:         p.HeightCm,
		Goal:             p.Goal,
		ActivityLevel:    p.ActivityLevel,
		Restrictions:     nonNil(p.Restrictions),
		CompatibleDiets:  nonNil(p.CompatibleDiets),
		PreferredFoodIDs: nonNil(p.PreferredFoodIDs),
		ExcludedFoodIDs:  nonNil(p.ExcludedFoodIDs),
		MealsPerDay:      p.MealsPerDay,
		DerivedValues: DerivedValues{
			BMR:          p.BMR,
			CalorieNeeds: p.CalorieNeeds,
			Macros: Macros{
				ProteinG:   p.Macros.ProteinG,
				CarbsG:     p.Macros.CarbsG,
				FatG:       p.Macros.FatG,
				ProteinPct: p.Macros.ProteinPct,
				CarbsPct:   p.Macros.CarbsPct,
				FatPct:     p.Macros.FatPct,
			},
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
