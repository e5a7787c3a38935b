package mealgen

import "math"

// Analysis сравнивает фактические значения за день с целями
type Analysis struct {
	Totals          Macros  `json:"totals"`
	Targets         Macros  `json:"targets"`
	DeltaPct        Macros  `json:"delta_pct"`
	ProteinPct      float64 `json:"protein_pct"`
	CarbsPct        float64 `json:"carbs_pct"`
	FatPct          float64 `json:"fat_pct"`
	MealCount       int     `json:"meal_count"`
	WithinTolerance bool    `json:"within_tolerance"`
}

// Analyze считает отклонения в процентах от цели и доли макронутриентов в калориях.
// Для нулевой цели отклонение равно 0.
func Analyze(totals, targets Macros, mealCount int, tolerance float64) Analysis {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	a := Analysis{
		Totals:    totals,
		Targets:   targets,
		MealCount: mealCount,
		DeltaPct: Macros{
			Kcal:     deltaPct(totals.Kcal, targets.Kcal),
			ProteinG: deltaPct(totals.ProteinG, targets.ProteinG),
			CarbsG:   deltaPct(totals.CarbsG, targets.CarbsG),
			FatG:     deltaPct(totals.FatG, targets.FatG),
		},
	}

	macroKcal := totals.ProteinG*4 + totals.CarbsG*4 + totals.FatG*9
	if macroKcal > 0 {
		a.ProteinPct = round1(totals.ProteinG * 4 / macroKcal * 100)
		a.CarbsPct = round1(totals.CarbsG * 4 / macroKcal * 100)
		a.FatPct = round1(totals.FatG * 9 / macroKcal * 100)
	}

	a.WithinTolerance = math.Abs(a.DeltaPct.Kcal) <= tolerance*100
	return a
}

func deltaPct(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return round1((actual - target) / target * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
