// Package mealgen builds multi-day meal plans from the food catalog and daily targets.
package mealgen

import (
	"errors"
	"math"
	"math/rand"
	"slices"

	"github.com/fdg312/coach-hub/internal/foods"
	"github.com/fdg312/coach-hub/internal/storage"
)

// ErrNoCompatibleFoods is returned when the diet and exclusion filters leave no food.
var ErrNoCompatibleFoods = errors.New("no compatible foods for the selected diet")

const (
	DefaultDays        = 7
	DefaultMealsPerDay = 4
	DefaultDiet        = foods.DietOmnivore
	DefaultTolerance   = 0.1
)

// Macros: калории и макронутриенты
type Macros struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

func (m Macros) scale(k float64) Macros {
	return Macros{Kcal: m.Kcal * k, ProteinG: m.ProteinG * k, CarbsG: m.CarbsG * k, FatG: m.FatG * k}
}

func (m *Macros) add(o Macros) {
	m.Kcal += o.Kcal
	m.ProteinG += o.ProteinG
	m.CarbsG += o.CarbsG
	m.FatG += o.FatG
}

// Config: параметры генерации; нулевые поля заменяются значениями по умолчанию
type Config struct {
	Days               int      `json:"days"`
	MealsPerDay        int      `json:"meals_per_day"`
	Diet               string   `json:"diet"`
	ExcludedCategories []string `json:"excluded_categories,omitempty"`
	ExcludedFoodIDs    []string `json:"excluded_food_ids,omitempty"`
	Tolerance          float64  `json:"tolerance"`
}

func (c Config) withDefaults() Config {
	if c.Days <= 0 {
		c.Days = DefaultDays
	}
	if c.MealsPerDay <= 0 {
		c.MealsPerDay = DefaultMealsPerDay
	}
	if c.Diet == "" {
		c.Diet = DefaultDiet
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	return c
}

type FoodPortion struct {
	FoodID   string  `json:"food_id"`
	FoodName string  `json:"food_name"`
	Category string  `json:"category"`
	Grams    float64 `json:"grams"`
	Macros
}

type Slot struct {
	Name            string        `json:"name"`
	MealType        string        `json:"meal_type"`
	Fraction        float64       `json:"fraction"`
	Target          Macros        `json:"target"`
	Foods           []FoodPortion `json:"foods"`
	Totals          Macros        `json:"totals"`
	WithinTolerance bool          `json:"within_tolerance"`
}

type Day struct {
	Day    int    `json:"day"`
	Slots  []Slot `json:"slots"`
	Totals Macros `json:"totals"`
}

type GeneratedPlan struct {
	Config       Config `json:"config"`
	DailyTargets Macros `json:"daily_targets"`
	Days         []Day  `json:"days"`
	Totals       Macros `json:"totals"`
}

// CompatibleFoods оставляет продукты, подходящие диете и не исключённые конфигом
func CompatibleFoods(catalog []storage.Food, cfg Config) []storage.Food {
	cfg = cfg.withDefaults()
	out := make([]storage.Food, 0, len(catalog))
	for _, f := range catalog {
		if !foods.IsCompatibleWithDiet(f, cfg.Diet) {
			continue
		}
		if slices.Contains(cfg.ExcludedCategories, f.Category) || slices.Contains(cfg.ExcludedFoodIDs, f.ID) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Generate строит план на cfg.Days дней. Выбор продуктов зависит только от rng,
// поэтому одинаковый seed и каталог дают одинаковый план.
func Generate(catalog []storage.Food, cfg Config, daily Macros, rng *rand.Rand) (GeneratedPlan, error) {
	cfg = cfg.withDefaults()
	pool := CompatibleFoods(catalog, cfg)
	if len(pool) == 0 {
		return GeneratedPlan{}, ErrNoCompatibleFoods
	}

	plan := GeneratedPlan{
		Config:       cfg,
		DailyTargets: daily,
		Days:         make([]Day, 0, cfg.Days),
	}
	tpl := TemplateFor(cfg.MealsPerDay)

	for d := 1; d <= cfg.Days; d++ {
		day := Day{Day: d, Slots: make([]Slot, 0, len(tpl))}
		for _, t := range tpl {
			slot := generateSlot(t, pool, daily, cfg.Tolerance, rng)
			day.Totals.add(slot.Totals)
			day.Slots = append(day.Slots, slot)
		}
		plan.Totals.add(day.Totals)
		plan.Days = append(plan.Days, day)
	}
	return plan, nil
}

func generateSlot(t MealTemplate, pool []storage.Food, daily Macros, tolerance float64, rng *rand.Rand) Slot {
	slot := Slot{
		Name:     t.Name,
		MealType: t.MealType,
		Fraction: t.Fraction,
		Target:   daily.scale(t.Fraction),
	}

	picked := pick(pool, foodCount(t, len(pool), rng), rng)
	grams := Optimize(picked, slot.Target.Kcal)

	slot.Foods = make([]FoodPortion, 0, len(picked))
	for i, f := range picked {
		n := foods.NutritionFor(f, grams[i])
		portion := FoodPortion{
			FoodID:   f.ID,
			FoodName: f.Name,
			Category: f.Category,
			Grams:    grams[i],
			Macros:   Macros{Kcal: n.Kcal, ProteinG: n.ProteinG, CarbsG: n.CarbsG, FatG: n.FatG},
		}
		slot.Totals.add(portion.Macros)
		slot.Foods = append(slot.Foods, portion)
	}

	slot.WithinTolerance = math.Abs(slot.Totals.Kcal-slot.Target.Kcal) <= tolerance*slot.Target.Kcal
	return slot
}

// foodCount: случайное число в [max(2, min), min(4, max, pool)], не меньше 1
func foodCount(t MealTemplate, poolSize int, rng *rand.Rand) int {
	lo := max(2, t.MinFoods)
	hi := min(4, t.MaxFoods, poolSize)
	if hi < 1 {
		hi = 1
	}
	if lo > hi {
		lo = hi
	}
	return lo + rng.Intn(hi-lo+1)
}

// pick выбирает n продуктов без повторов
func pick(pool []storage.Food, n int, rng *rand.Rand) []storage.Food {
	perm := rng.Perm(len(pool))
	out := make([]storage.Food, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, pool[idx])
	}
	return out
}
