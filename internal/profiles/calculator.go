package profiles

import (
	"math"
	"slices"
	"strings"
)

// Activity levels of a nutritional profile.
const (
	ActivitySedentary   = "Sédentaire"
	ActivityLight       = "Activité légère"
	ActivityModerate    = "Activité modérée"
	ActivityIntense     = "Activité intense"
	ActivityVeryIntense = "Très intense"
)

// Nutritional goals.
const (
	GoalWeightLoss    = "Perte de poids"
	GoalMuscleGain    = "Prise de muscle"
	GoalMaintenance   = "Maintenance"
	GoalPerformance   = "Performance sportive"
	GoalGeneralHealth = "Santé générale"
)

// Restriction labels.
var Restrictions = []string{
	"Aucune",
	"Allergies aux noix",
	"Intolérance lactose",
	"Intolérance gluten",
	"Diabète",
	"Hypertension",
	"Hypercholestérolémie",
}

const (
	defaultActivityFactor  = 1.55
	defaultHydrationFactor = 1.2
	mlPerKg                = 35
	glassMl                = 200
	defaultFiberG          = 25.0
)

var activityFactors = map[string]float64{
	ActivitySedentary:   1.2,
	ActivityLight:       1.375,
	ActivityModerate:    1.55,
	ActivityIntense:     1.725,
	ActivityVeryIntense: 1.9,
}

var goalMultipliers = map[string]float64{
	GoalWeightLoss:    0.85,
	GoalMuscleGain:    1.10,
	GoalMaintenance:   1.0,
	GoalPerformance:   1.05,
	GoalGeneralHealth: 1.0,
}

var hydrationFactors = map[string]float64{
	ActivitySedentary:   1.0,
	ActivityLight:       1.1,
	ActivityModerate:    1.2,
	ActivityIntense:     1.4,
	ActivityVeryIntense: 1.6,
}

type macroSplit struct{ protein, carbs, fat float64 }

var macroSplits = map[string]macroSplit{
	GoalWeightLoss:    {0.30, 0.35, 0.35},
	GoalMuscleGain:    {0.25, 0.45, 0.30},
	GoalMaintenance:   {0.20, 0.50, 0.30},
	GoalPerformance:   {0.20, 0.55, 0.25},
	GoalGeneralHealth: {0.20, 0.50, 0.30},
}

// ProfileInput holds the raw inputs every derived value depends on.
type ProfileInput struct {
	Age           int
	Sex           string
	WeightKg      float64
	HeightCm      float64
	Goal          string
	ActivityLevel string
}

// Macros is a macro split in grams and percent of calories.
type Macros struct {
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
	ProteinPct float64 `json:"protein_pct"`
	CarbsPct   float64 `json:"carbs_pct"`
	FatPct     float64 `json:"fat_pct"`
}

// DerivedValues are recomputed together from a ProfileInput.
type DerivedValues struct {
	BMR          float64 `json:"bmr"`
	CalorieNeeds float64 `json:"calorie_needs"`
	Macros       Macros  `json:"macros"`
}

// Hydration is the daily water recommendation.
type Hydration struct {
	MlPerDay float64 `json:"ml_per_day"`
	Glasses  float64 `json:"glasses_200ml"`
	Liters   float64 `json:"liters"`
}

// BMR uses Mifflin-St Jeor; sex is male only for "M" (case-insensitive).
func BMR(weightKg, heightCm float64, age int, sex string) float64 {
	base := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if strings.ToUpper(strings.TrimSpace(sex)) == "M" {
		return base + 5
	}
	return base - 161
}

// ActivityFactor returns 1.55 for unknown levels.
func ActivityFactor(level string) float64 {
	if f, ok := activityFactors[level]; ok {
		return f
	}
	return defaultActivityFactor
}

// GoalMultiplier returns 1.0 for unknown goals.
func GoalMultiplier(goal string) float64 {
	if m, ok := goalMultipliers[goal]; ok {
		return m
	}
	return 1.0
}

// Derive computes BMR, then calorie needs, then the macro split.
func Derive(in ProfileInput) DerivedValues {
	bmr := BMR(in.WeightKg, in.HeightCm, in.Age, in.Sex)
	calories := bmr * ActivityFactor(in.ActivityLevel) * GoalMultiplier(in.Goal)

	split, ok := macroSplits[in.Goal]
	if !ok {
		split = macroSplits[GoalMaintenance]
	}

	return DerivedValues{
		BMR:          bmr,
		CalorieNeeds: calories,
		Macros: Macros{
			ProteinG:   calories * split.protein / 4,
			CarbsG:     calories * split.carbs / 4,
			FatG:       calories * split.fat / 9,
			ProteinPct: percent(split.protein),
			CarbsPct:   percent(split.carbs),
			FatPct:     percent(split.fat),
		},
	}
}

// HydrationFor returns weight*35 ml scaled by the activity level (1.2 when unknown).
func HydrationFor(weightKg float64, level string) Hydration {
	factor, ok := hydrationFactors[level]
	if !ok {
		factor = defaultHydrationFactor
	}
	ml := weightKg * mlPerKg * factor
	return Hydration{
		MlPerDay: ml,
		Glasses:  ml / glassMl,
		Liters:   ml / 1000,
	}
}

// IsCompatibleWithFood reports false only for excluded foods.
// Restrictions and diets are not matched against foods yet.
func IsCompatibleWithFood(excludedFoodIDs []string, foodID string) bool {
	return !slices.Contains(excludedFoodIDs, foodID)
}

// MacroTarget is a macro objective with an optional tolerance margin.
type MacroTarget struct {
	ProteinG  float64 `json:"protein_g"`
	CarbsG    float64 `json:"carbs_g"`
	FatG      float64 `json:"fat_g"`
	FiberG    float64 `json:"fiber_g"`
	KcalTotal float64 `json:"kcal_total"`
}

// NewMacroTarget fills fibre with 25 g and kcal from the macros.
func NewMacroTarget(proteinG, carbsG, fatG float64) MacroTarget {
	return MacroTarget{
		ProteinG:  proteinG,
		CarbsG:    carbsG,
		FatG:      fatG,
		FiberG:    defaultFiberG,
		KcalTotal: proteinG*4 + carbsG*4 + fatG*9,
	}
}

// WithTolerance scales every field by 1 + pct/100.
func (t MacroTarget) WithTolerance(pct float64) MacroTarget {
	k := 1 + pct/100
	return MacroTarget{
		ProteinG:  t.ProteinG * k,
		CarbsG:    t.CarbsG * k,
		FatG:      t.FatG * k,
		FiberG:    t.FiberG * k,
		KcalTotal: t.KcalTotal * k,
	}
}

func percent(share float64) float64 {
	return math.RoundToEven(share*10000) / 100
}
