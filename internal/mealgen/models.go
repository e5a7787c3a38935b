package mealgen

import (
	"fmt"
	"strings"
)

// GenerateRequest: запрос POST /v1/mealgen/generate
type GenerateRequest struct {
	ClientID           *string  `json:"client_id,omitempty"`
	Targets            *Macros  `json:"targets,omitempty"`
	Days               int      `json:"days"`
	MealsPerDay        int      `json:"meals_per_day"`
	Diet               string   `json:"diet"`
	ExcludedCategories []string `json:"excluded_categories"`
	ExcludedFoodIDs    []string `json:"excluded_food_ids"`
	Tolerance          *float64 `json:"tolerance,omitempty"`
	Seed               *int64   `json:"seed,omitempty"`
	Save               bool     `json:"save"`
	PlanName           string   `json:"plan_name"`
}

func (r *GenerateRequest) Validate(maxDays int) error {
	if r.Targets == nil && (r.ClientID == nil || strings.TrimSpace(*r.ClientID) == "") {
		return fmt.Errorf("targets or client_id is required")
	}
	if r.Targets != nil {
		if err := r.Targets.validate(); err != nil {
			return err
		}
	}
	if r.Days < 0 || (maxDays > 0 && r.Days > maxDays) {
		return fmt.Errorf("days must be between 1 and %d", maxDays)
	}
	if r.MealsPerDay < 0 || r.MealsPerDay > 10 {
		return fmt.Errorf("meals_per_day must be between 1 and 10")
	}
	if !validDiet(r.Diet) {
		return fmt.Errorf("unknown diet %q", r.Diet)
	}
	if r.Tolerance != nil && (*r.Tolerance <= 0 || *r.Tolerance > 1) {
		return fmt.Errorf("tolerance must be between 0 and 1")
	}
	if len(r.PlanName) > 200 {
		return fmt.Errorf("plan_name must be at most 200 characters")
	}
	return nil
}

func (m Macros) validate() error {
	if m.Kcal <= 0 || m.Kcal > 10000 {
		return fmt.Errorf("targets.kcal must be between 0 and 10000")
	}
	if m.ProteinG < 0 || m.CarbsG < 0 || m.FatG < 0 {
		return fmt.Errorf("targets macros must not be negative")
	}
	return nil
}

type GenerateResponse struct {
	Seed        int64         `json:"seed"`
	Plan        GeneratedPlan `json:"plan"`
	SavedPlanID *string       `json:"saved_plan_id,omitempty"`
}

// AnalyzeRequest: запрос POST /v1/mealgen/analyze
type AnalyzeRequest struct {
	PlanID    string   `json:"plan_id"`
	ClientID  *string  `json:"client_id,omitempty"`
	Targets   *Macros  `json:"targets,omitempty"`
	Days      int      `json:"days"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

func (r *AnalyzeRequest) Validate() error {
	if strings.TrimSpace(r.PlanID) == "" {
		return fmt.Errorf("plan_id is required")
	}
	if r.Targets != nil {
		if err := r.Targets.validate(); err != nil {
			return err
		}
	}
	if r.Days < 0 || r.Days > 366 {
		return fmt.Errorf("days must be between 1 and 366")
	}
	if r.Tolerance != nil && (*r.Tolerance <= 0 || *r.Tolerance > 1) {
		return fmt.Errorf("tolerance must be between 0 and 1")
	}
	return nil
}
