package mealplans

import (
	"fmt"
	"strings"
	"time"
)

// Названия приёмов пищи нового плана клиента
var DefaultMealNames = []string{"Petit-déjeuner", "Déjeuner", "Collation", "Dîner"}

const maxQuantityGrams = 5000

// Totals: калории и макронутриенты
type Totals struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

func (t *Totals) add(o Totals) {
	t.Kcal += o.Kcal
	t.ProteinG += o.ProteinG
	t.CarbsG += o.CarbsG
	t.FatG += o.FatG
}

type ItemDTO struct {
	ID        string  `json:"id"`
	MealID    string  `json:"meal_id"`
	FoodID    string  `json:"food_id"`
	FoodName  string  `json:"food_name"`
	PortionID *string `json:"portion_id,omitempty"`
	Quantity  float64 `json:"quantity"`
	Totals    Totals  `json:"totals"`
}

type MealDTO struct {
	ID       string    `json:"id"`
	PlanID   string    `json:"plan_id"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
	Items    []ItemDTO `json:"items"`
	Totals   Totals    `json:"totals"`
}

type PlanDTO struct {
	ID          string    `json:"id"`
	ClientID    *string   `json:"client_id,omitempty"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Tags        *string   `json:"tags,omitempty"`
	Meals       []MealDTO `json:"meals"`
	Totals      Totals    `json:"totals"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlanSummaryDTO: план без приёмов пищи для списка
type PlanSummaryDTO struct {
	ID          string    `json:"id"`
	ClientID    *string   `json:"client_id,omitempty"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Tags        *string   `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PlansResponse struct {
	Plans []PlanSummaryDTO `json:"plans"`
}

type MealTotalsDTO struct {
	MealID string `json:"meal_id"`
	Name   string `json:"name"`
	Totals Totals `json:"totals"`
}

// TotalsResponse: ответ GET /v1/plans/{id}/totals
type TotalsResponse struct {
	PlanID string          `json:"plan_id"`
	Meals  []MealTotalsDTO `json:"meals"`
	Totals Totals          `json:"totals"`
}

type ItemRequest struct {
	FoodID    string  `json:"food_id"`
	PortionID *string `json:"portion_id,omitempty"`
	Quantity  float64 `json:"quantity"`
}

func (r *ItemRequest) Validate() error {
	if strings.TrimSpace(r.FoodID) == "" {
		return fmt.Errorf("food_id is required")
	}
	if r.Quantity <= 0 || r.Quantity > maxQuantityGrams {
		return fmt.Errorf("quantity must be between 0 and %d grams", maxQuantityGrams)
	}
	return nil
}

type MealRequest struct {
	Name     string        `json:"name"`
	Position *int          `json:"position,omitempty"`
	Items    []ItemRequest `json:"items"`
}

func (r *MealRequest) Validate() error {
	if len(strings.TrimSpace(r.Name)) < 1 || len(r.Name) > 200 {
		return fmt.Errorf("name must be between 1 and 200 characters")
	}
	if r.Position != nil && *r.Position < 0 {
		return fmt.Errorf("position must not be negative")
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return fmt.Errorf("item[%d]: %w", i, err)
		}
	}
	return nil
}

// MealUpdateRequest: запрос PATCH /v1/meals/{id}
type MealUpdateRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

func (r *MealUpdateRequest) Validate() error {
	if len(strings.TrimSpace(r.Name)) < 1 || len(r.Name) > 200 {
		return fmt.Errorf("name must be between 1 and 200 characters")
	}
	if r.Position < 0 {
		return fmt.Errorf("position must not be negative")
	}
	return nil
}

// PlanRequest: запрос POST /v1/plans и PUT /v1/plans/{id}
type PlanRequest struct {
	ClientID    *string       `json:"client_id,omitempty"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Tags        *string       `json:"tags,omitempty"`
	Meals       []MealRequest `json:"meals"`
}

func (r *PlanRequest) Validate() error {
	if len(strings.TrimSpace(r.Name)) < 1 || len(r.Name) > 200 {
		return fmt.Errorf("name must be between 1 and 200 characters")
	}
	if len(r.Meals) > 100 {
		return fmt.Errorf("meals cannot exceed 100")
	}
	for i := range r.Meals {
		if err := r.Meals[i].Validate(); err != nil {
			return fmt.Errorf("meal[%d]: %w", i, err)
		}
	}
	return nil
}

// GeneratedMeal: приём пищи сгенерированного плана для сохранения
type GeneratedMeal struct {
	Day   int
	Slot  string
	Items []GeneratedItem
}

type GeneratedItem struct {
	FoodID string
	Grams  float64
}
