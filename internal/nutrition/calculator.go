package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidInput is returned when biometrics are missing or not positive.
var ErrInvalidInput = errors.New("invalid input")

// DefaultProteinPerKg is used when the request does not carry a protein target.
const DefaultProteinPerKg = 1.8

// Activity level labels.
const (
	ActivitySedentary   = "Sédentaire"
	ActivityLight       = "Activité légère"
	ActivityModerate    = "Activité modérée"
	ActivityVeryActive  = "Très actif"
	ActivityExtreme     = "Extrêmement actif"
	DefaultActivityRate = 1.2
)

// Goal labels.
const (
	GoalWeightLoss  = "Perte de poids"
	GoalMaintenance = "Maintenance"
	GoalMassGain    = "Prise de masse"
)

var activityFactors = map[string]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityVeryActive: 1.725,
	ActivityExtreme:    1.9,
}

var goalAdjustments = map[string]float64{
	GoalWeightLoss:  -300,
	GoalMaintenance: 0,
	GoalMassGain:    300,
}

// TargetInput holds client biometrics for a one-shot target calculation.
type TargetInput struct {
	WeightKg      float64  `json:"weight_kg"`
	HeightCm      float64  `json:"height_cm"`
	Age           int      `json:"age"`
	Sex           string   `json:"sex"`
	ActivityLevel string   `json:"activity_level"`
	Goal          string   `json:"goal"`
	ProteinPerKg  *float64 `json:"protein_per_kg,omitempty"`
	CarbRatio     *float64 `json:"carb_ratio,omitempty"`
}

// Validate validates the input record.
func (in TargetInput) Validate() error {
	if in.WeightKg <= 0 {
		return fmt.Errorf("%w: weight_kg must be positive", ErrInvalidInput)
	}
	if in.HeightCm <= 0 {
		return fmt.Errorf("%w: height_cm must be positive", ErrInvalidInput)
	}
	if in.Age <= 0 {
		return fmt.Errorf("%w: age must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Sex) == "" {
		return fmt.Errorf("%w: sex is required", ErrInvalidInput)
	}
	if in.ProteinPerKg != nil && *in.ProteinPerKg <= 0 {
		return fmt.Errorf("%w: protein_per_kg must be positive", ErrInvalidInput)
	}
	if in.CarbRatio != nil && (*in.CarbRatio < 0 || *in.CarbRatio > 100) {
		return fmt.Errorf("%w: carb_ratio must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

// Targets is the result of CalculateTargets.
type Targets struct {
	BMR             float64 `json:"bmr"`
	MaintenanceKcal int     `json:"maintenance_kcal"`
	ObjectiveKcal   int     `json:"objective_kcal"`
	ProteinG        int     `json:"protein_g"`
	CarbsG          int     `json:"carbs_g"`
	FatG            int     `json:"fat_g"`
	ProteinPerKg    float64 `json:"protein_per_kg"`
	CarbRatio       float64 `json:"carb_ratio"`
}

// BMR computes the Mifflin-St Jeor basal metabolic rate.
// Sex is male when it starts with "h" ("homme"), case-insensitive.
func BMR(weightKg, heightCm float64, age int, sex string) float64 {
	base := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(sex)), "h") {
		return base + 5
	}
	return base - 161
}

// ActivityFactor returns the multiplier for an activity label, DefaultActivityRate when unknown.
func ActivityFactor(level string) float64 {
	if f, ok := activityFactors[level]; ok {
		return f
	}
	return DefaultActivityRate
}

// GoalAdjustment returns the kcal delta for a goal label, 0 when unknown.
func GoalAdjustment(goal string) float64 {
	return goalAdjustments[goal]
}

// CalculateTargets derives calorie and macro targets. It has no side effects.
// Grams and kcal round half to even.
func CalculateTargets(in TargetInput) (Targets, error) {
	if err := in.Validate(); err != nil {
		return Targets{}, err
	}

	ppk := DefaultProteinPerKg
	if in.ProteinPerKg != nil {
		ppk = *in.ProteinPerKg
	}

	bmr := BMR(in.WeightKg, in.HeightCm, in.Age, in.Sex)
	maintenance := bmr * ActivityFactor(in.ActivityLevel)
	objective := maintenance + GoalAdjustment(in.Goal)

	proteinG := math.RoundToEven(ppk * in.WeightKg)
	proteinKcal := proteinG * 4

	var carbsG, fatG, ratio float64
	if in.CarbRatio != nil {
		ratio = *in.CarbRatio
		remaining := objective - proteinKcal
		carbKcal := remaining * ratio / 100
		fatKcal := remaining - carbKcal
		carbsG = math.RoundToEven(carbKcal / 4)
		fatG = math.RoundToEven(fatKcal / 9)
	} else {
		fatG = math.RoundToEven(in.WeightKg)
		remaining := objective - proteinKcal - fatG*9
		carbsG = math.RoundToEven(remaining / 4)
		if denom := objective - proteinKcal; denom > 0 {
			ratio = carbsG * 4 / denom * 100
		}
	}

	return Targets{
		BMR:             bmr,
		MaintenanceKcal: int(math.RoundToEven(maintenance)),
		ObjectiveKcal:   int(math.RoundToEven(objective)),
		ProteinG:        int(proteinG),
		CarbsG:          int(carbsG),
		FatG:            int(fatG),
		ProteinPerKg:    ppk,
		CarbRatio:       round2(ratio),
	}, nil
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
