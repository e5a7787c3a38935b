package mealgen

// MealTemplate описывает слот дня: доля калорий и число продуктов
type MealTemplate struct {
	Name     string  `json:"name"`
	MealType string  `json:"meal_type"`
	Fraction float64 `json:"fraction"`
	MinFoods int     `json:"min_foods"`
	MaxFoods int     `json:"max_foods"`
}

const (
	minMealsPerDay = 3
	maxMealsPerDay = 6
)

var templates = map[int][]MealTemplate{
	3: {
		{Name: "Petit-déjeuner", MealType: "petit_dejeuner", Fraction: 0.25, MinFoods: 2, MaxFoods: 3},
		{Name: "Déjeuner", MealType: "dejeuner", Fraction: 0.40, MinFoods: 3, MaxFoods: 4},
		{Name: "Dîner", MealType: "diner", Fraction: 0.35, MinFoods: 3, MaxFoods: 4},
	},
	4: {
		{Name: "Petit-déjeuner", MealType: "petit_dejeuner", Fraction: 0.20, MinFoods: 2, MaxFoods: 3},
		{Name: "Déjeuner", MealType: "dejeuner", Fraction: 0.35, MinFoods: 3, MaxFoods: 4},
		{Name: "Dîner", MealType: "diner", Fraction: 0.30, MinFoods: 3, MaxFoods: 4},
		{Name: "Collation", MealType: "collation", Fraction: 0.15, MinFoods: 1, MaxFoods: 2},
	},
	5: {
		{Name: "Petit-déjeuner", MealType: "petit_dejeuner", Fraction: 0.15, MinFoods: 2, MaxFoods: 3},
		{Name: "Collation matinale", MealType: "collation_matin", Fraction: 0.10, MinFoods: 1, MaxFoods: 2},
		{Name: "Déjeuner", MealType: "dejeuner", Fraction: 0.30, MinFoods: 3, MaxFoods: 4},
		{Name: "Collation après-midi", MealType: "collation_aprem", Fraction: 0.15, MinFoods: 1, MaxFoods: 2},
		{Name: "Dîner", MealType: "diner", Fraction: 0.30, MinFoods: 3, MaxFoods: 4},
	},
	6: {
		{Name: "Petit-déjeuner", MealType: "petit_dejeuner", Fraction: 0.15, MinFoods: 2, MaxFoods: 3},
		{Name: "Collation matinale", MealType: "collation_matin", Fraction: 0.10, MinFoods: 1, MaxFoods: 2},
		{Name: "Déjeuner", MealType: "dejeuner", Fraction: 0.30, MinFoods: 3, MaxFoods: 4},
		{Name: "Collation après-midi", MealType: "collation_aprem", Fraction: 0.15, MinFoods: 1, MaxFoods: 2},
		{Name: "Dîner", MealType: "diner", Fraction: 0.25, MinFoods: 3, MaxFoods: 4},
		{Name: "Collation soirée", MealType: "collation_soir", Fraction: 0.05, MinFoods: 1, MaxFoods: 2},
	},
}

// TemplateFor возвращает шаблон дня; число приёмов ограничивается диапазоном 3..6
func TemplateFor(mealsPerDay int) []MealTemplate {
	n := min(max(mealsPerDay, minMealsPerDay), maxMealsPerDay)
	out := make([]MealTemplate, len(templates[n]))
	copy(out, templates[n])
	return out
}
