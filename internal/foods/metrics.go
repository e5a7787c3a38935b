package foods

import (
	"slices"

	"github.com/fdg312/coach-hub/internal/storage"
)

// Categories of the food catalog.
const (
	CategoryVegetables = "Légumes"
	CategoryFruits     = "Fruits"
	CategoryCereals    = "Céréales et dérivés"
	CategoryLegumes    = "Légumineuses"
	CategoryMeat       = "Viandes"
	CategoryFish       = "Poissons et fruits de mer"
	CategoryEggs       = "Œufs"
	CategoryDairy      = "Produits laitiers"
	CategoryFats       = "Matières grasses"
	CategorySugars     = "Sucres et produits sucrés"
	CategoryDrinks     = "Boissons"
	CategoryCondiments = "Condiments et épices"
	CategoryOther      = "Autres"
)

// Diet labels.
const (
	DietOmnivore    = "Omnivore"
	DietVegetarian  = "Végétarien"
	DietVegan       = "Vegan"
	DietGlutenFree  = "Sans gluten"
	DietKetogenic   = "Cétogène"
	DietPaleo       = "Paléo"
	DefaultBaseUnit = "g"
)

var Categories = []string{
	CategoryVegetables, CategoryFruits, CategoryCereals, CategoryLegumes, CategoryMeat,
	CategoryFish, CategoryEggs, CategoryDairy, CategoryFats, CategorySugars,
	CategoryDrinks, CategoryCondiments, CategoryOther,
}

var Diets = []string{DietOmnivore, DietVegetarian, DietVegan, DietGlutenFree, DietKetogenic, DietPaleo}

// dietFits lists, per food diet type, the diets the food can be served in.
var dietFits = map[string][]string{
	DietVegan:      {DietVegan},
	DietVegetarian: {DietVegetarian, DietVegan},
	DietOmnivore:   Diets,
}

// Nutrition holds absolute values for a quantity of food.
type Nutrition struct {
	Grams    float64 `json:"grams"`
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
}

// NutritionFor scales per-100g values to grams.
func NutritionFor(f storage.Food, grams float64) Nutrition {
	k := grams / 100
	return Nutrition{
		Grams:    grams,
		Kcal:     f.KcalPer100g * k,
		ProteinG: f.ProteinPer100g * k,
		CarbsG:   f.CarbsPer100g * k,
		FatG:     f.FatPer100g * k,
		FiberG:   fiber(f) * k,
	}
}

// GlycemicEstimate guesses a glycemic index from category and fibre.
func GlycemicEstimate(f storage.Food) int {
	if f.CarbsPer100g < 1 {
		return 0
	}

	gi := 50
	switch f.Category {
	case CategoryFruits:
		gi = 35
	case CategoryVegetables:
		gi = 15
	case CategoryCereals:
		gi = 70
	case CategorySugars:
		gi = 85
	}

	if fb := fiber(f); fb > 3 {
		gi = max(10, gi-int(fb*2))
	}
	return min(100, max(0, gi))
}

// NutrientDensity is (protein*4 + fibre*2) / kcal.
func NutrientDensity(f storage.Food) float64 {
	if f.KcalPer100g <= 0 {
		return 0
	}
	return (f.ProteinPer100g*4 + fiber(f)*2) / f.KcalPer100g
}

// HasOptimalMacroRatio reports protein >= 15% and fat in 20..35% of macro grams.
func HasOptimalMacroRatio(f storage.Food) bool {
	total := f.ProteinPer100g + f.CarbsPer100g + f.FatPer100g
	if total <= 0 {
		return false
	}
	protein := f.ProteinPer100g / total
	fat := f.FatPer100g / total
	return protein >= 0.15 && fat >= 0.20 && fat <= 0.35
}

// IsCompatibleWithDiet reports whether a food may be served in the given diet.
// Untyped foods fit every diet.
func IsCompatibleWithDiet(f storage.Food, diet string) bool {
	if f.DietType == "" {
		return true
	}
	return slices.Contains(dietFits[f.DietType], diet)
}

func fiber(f storage.Food) float64 {
	if f.FiberPer100g == nil {
		return 0
	}
	return *f.FiberPer100g
}
