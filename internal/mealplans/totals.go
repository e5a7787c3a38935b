package mealplans

import (
	"github.com/fdg312/coach-hub/internal/foods"
	"github.com/fdg312/coach-hub/internal/storage"
)

// ItemTotals считает вклад позиции: quantity в граммах, значения продукта на 100 г.
// Позиция без продукта даёт нули.
func ItemTotals(item storage.MealItem, food *storage.Food) Totals {
	if food == nil {
		return Totals{}
	}
	n := foods.NutritionFor(*food, item.Quantity)
	return Totals{Kcal: n.Kcal, ProteinG: n.ProteinG, CarbsG: n.CarbsG, FatG: n.FatG}
}

// Aggregate строит дерево плана с итогами по позициям, приёмам пищи и плану.
// Итоги не кэшируются: считаются при каждом чтении.
func Aggregate(plan storage.MealPlan, catalog map[string]storage.Food) PlanDTO {
	dto := PlanDTO{
		ID:          plan.ID,
		ClientID:    plan.ClientID,
		Name:        plan.Name,
		Description: plan.Description,
		Tags:        plan.Tags,
		Meals:       make([]MealDTO, 0, len(plan.Meals)),
		CreatedAt:   plan.CreatedAt,
		UpdatedAt:   plan.UpdatedAt,
	}

	for _, meal := range plan.Meals {
		m := aggregateMeal(meal, catalog)
		dto.Totals.add(m.Totals)
		dto.Meals = append(dto.Meals, m)
	}
	return dto
}

func aggregateMeal(meal storage.Meal, catalog map[string]storage.Food) MealDTO {
	m := MealDTO{
		ID:       meal.ID,
		PlanID:   meal.PlanID,
		Name:     meal.Name,
		Position: meal.Position,
		Items:    make([]ItemDTO, 0, len(meal.Items)),
	}
	for _, item := range meal.Items {
		it := itemDTO(item, catalog)
		m.Totals.add(it.Totals)
		m.Items = append(m.Items, it)
	}
	return m
}

func itemDTO(item storage.MealItem, catalog map[string]storage.Food) ItemDTO {
	dto := ItemDTO{
		ID:        item.ID,
		MealID:    item.MealID,
		FoodID:    item.FoodID,
		PortionID: item.PortionID,
		Quantity:  item.Quantity,
	}
	if food, ok := catalog[item.FoodID]; ok {
		dto.FoodName = food.Name
		dto.Totals = ItemTotals(item, &food)
	}
	return dto
}

// TotalsOf сворачивает агрегированный план в ответ для /totals
func TotalsOf(plan PlanDTO) TotalsResponse {
	resp := TotalsResponse{
		PlanID: plan.ID,
		Meals:  make([]MealTotalsDTO, 0, len(plan.Meals)),
		Totals: plan.Totals,
	}
	for _, m := range plan.Meals {
		resp.Meals = append(resp.Meals, MealTotalsDTO{MealID: m.ID, Name: m.Name, Totals: m.Totals})
	}
	return resp
}

func summaryOf(plan storage.MealPlan) PlanSummaryDTO {
	return PlanSummaryDTO{
		ID:          plan.ID,
		ClientID:    plan.ClientID,
		Name:        plan.Name,
		Description: plan.Description,
		Tags:        plan.Tags,
		CreatedAt:   plan.CreatedAt,
		UpdatedAt:   plan.UpdatedAt,
	}
}
