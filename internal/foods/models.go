package foods

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fdg312/coach-hub/internal/storage"
)

// FoodDTO represents a catalog food with its derived metrics.
type FoodDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Category          string   `json:"category,omitempty"`
	DietType          string   `json:"diet_type,omitempty"`
	KcalPer100g       float64  `json:"kcal_100g"`
	ProteinPer100g    float64  `json:"protein_100g"`
	CarbsPer100g      float64  `json:"carbs_100g"`
	FatPer100g        float64  `json:"fat_100g"`
	FiberPer100g      *float64 `json:"fiber_100g,omitempty"`
	BaseUnit          string   `json:"base_unit"`
	HealthyIndex      *int     `json:"healthy_index,omitempty"`
	CommonIndex       *int     `json:"common_index,omitempty"`
	GlycemicEstimate  int      `json:"glycemic_estimate"`
	NutrientDensity   float64  `json:"nutrient_density"`
	OptimalMacroRatio bool     `json:"optimal_macro_ratio"`
}

// FoodsResponse is the response for list and search endpoints.
type FoodsResponse struct {
	Foods []FoodDTO `json:"foods"`
}

// PortionDTO represents a portion of a food.
type PortionDTO struct {
	ID              string  `json:"id"`
	FoodID          string  `json:"food_id"`
	Description     string  `json:"description"`
	GramsEquivalent float64 `json:"grams_equivalent"`
}

// PortionsResponse is the response for GET /v1/foods/{id}/portions.
type PortionsResponse struct {
	Portions []PortionDTO `json:"portions"`
}

// FoodRequest is the request body for POST /v1/foods and PUT /v1/foods/{id}.
type FoodRequest struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	DietType       string   `json:"diet_type"`
	KcalPer100g    float64  `json:"kcal_100g"`
	ProteinPer100g float64  `json:"protein_100g"`
	CarbsPer100g   float64  `json:"carbs_100g"`
	FatPer100g     float64  `json:"fat_100g"`
	FiberPer100g   *float64 `json:"fiber_100g,omitempty"`
	BaseUnit       string   `json:"base_unit"`
	HealthyIndex   *int     `json:"healthy_index,omitempty"`
	CommonIndex    *int     `json:"common_index,omitempty"`
}

// Validate validates the food request.
func (r *FoodRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Name) > 200 {
		return fmt.Errorf("name must be at most 200 characters")
	}
	if r.Category != "" && !slices.Contains(Categories, r.Category) {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if r.DietType != "" && !slices.Contains(Diets, r.DietType) {
		return fmt.Errorf("unknown diet_type %q", r.DietType)
	}
	if r.KcalPer100g < 0 || r.KcalPer100g > 900 {
		return fmt.Errorf("kcal_100g must be between 0 and 900")
	}
	for name, v := range map[string]float64{
		"protein_100g": r.ProteinPer100g,
		"carbs_100g":   r.CarbsPer100g,
		"fat_100g":     r.FatPer100g,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if r.FiberPer100g != nil && (*r.FiberPer100g < 0 || *r.FiberPer100g > 100) {
		return fmt.Errorf("fiber_100g must be between 0 and 100")
	}
	if r.HealthyIndex != nil && (*r.HealthyIndex < 0 || *r.HealthyIndex > 10) {
		return fmt.Errorf("healthy_index must be between 0 and 10")
	}
	if r.CommonIndex != nil && (*r.CommonIndex < 0 || *r.CommonIndex > 10) {
		return fmt.Errorf("common_index must be between 0 and 10")
	}
	return nil
}

func (r *FoodRequest) toUpsert() storage.FoodUpsert {
	unit := strings.TrimSpace(r.BaseUnit)
	if unit == "" {
		unit = DefaultBaseUnit
	}
	return storage.FoodUpsert{
		Name:           strings.TrimSpace(r.Name),
		Category:       r.Category,
		DietType:       r.DietType,
		KcalPer100g:    r.KcalPer100g,
		ProteinPer100g: r.ProteinPer100g,
		CarbsPer100g:   r.CarbsPer100g,
		FatPer100g:     r.FatPer100g,
		FiberPer100g:   r.FiberPer100g,
		BaseUnit:       unit,
		HealthyIndex:   r.HealthyIndex,
		CommonIndex:    r.CommonIndex,
	}
}

// PortionRequest is the request body for POST /v1/foods/{id}/portions.
type PortionRequest struct {
	Description     string  `json:"description"`
	GramsEquivalent float64 `json:"grams_equivalent"`
}

// Validate validates the portion request.
func (r *PortionRequest) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if r.GramsEquivalent <= 0 || r.GramsEquivalent > 5000 {
		return fmt.Errorf("grams_equivalent must be between 0 and 5000")
	}
	return nil
}

// ToDTO converts a storage food, computing derived metrics.
func ToDTO(f storage.Food) FoodDTO {
	return FoodDTO{
		ID:                f.ID,
		Name:              f.Name,
		Category:          f.Category,
		DietType:          f.DietType,
		KcalPer100g:       f.KcalPer100g,
		ProteinPer100g:    f.ProteinPer100g,
		CarbsPer100g:      f.CarbsPer100g,
		FatPer100g:        f.FatPer100g,
		FiberPer100g:      f.FiberPer100g,
		BaseUnit:          f.BaseUnit,
		HealthyIndex:      f.HealthyIndex,
		CommonIndex:       f.CommonIndex,
		GlycemicEstimate:  GlycemicEstimate(f),
		NutrientDensity:   NutrientDensity(f),
		OptimalMacroRatio: HasOptimalMacroRatio(f),
	}
}

// ToDTOs converts a slice of storage foods.
func ToDTOs(foods []storage.Food) []FoodDTO {
	dtos := make([]FoodDTO, 0, len(foods))
	for _, f := range foods {
		dtos = append(dtos, ToDTO(f))
	}
	return dtos
}

func toPortionDTO(p storage.Portion) PortionDTO {
	return PortionDTO{
		ID:              p.ID,
		FoodID:          p.FoodID,
		Description:     p.Description,
		GramsEquivalent: p.GramsEquivalent,
	}
}
