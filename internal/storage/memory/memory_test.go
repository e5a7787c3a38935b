package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

func TestDeleteClientCascades(t *testing.T) {
	ctx := context.Background()
	st := New()

	client := &storage.Client{OwnerUserID: "default", FirstName: "Léa", LastName: "Martin"}
	if err := st.CreateClient(ctx, client); err != nil {
		t.Fatalf("create client: %v", err)
	}

	sheets := st.GetNutritionSheetsStorage()
	if err := sheets.InsertSheet(ctx, &storage.NutritionSheet{ClientID: client.ID, WeightKg: 60}); err != nil {
		t.Fatalf("insert sheet: %v", err)
	}
	profiles := st.GetNutritionProfilesStorage()
	if err := profiles.UpsertProfile(ctx, &storage.NutritionProfile{ClientID: client.ID, Age: 30}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	clientID := client.ID.String()
	plan := &storage.MealPlan{OwnerUserID: "default", ClientID: &clientID, Name: "Plan"}
	if err := st.GetMealPlansStorage().CreatePlan(ctx, plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	if err := st.DeleteClient(ctx, client.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}

	if latest, _ := sheets.GetLatestSheet(ctx, client.ID); latest != nil {
		t.Error("expected sheets to be deleted with the client")
	}
	if p, _ := profiles.GetProfileByClient(ctx, client.ID); p != nil {
		t.Error("expected profile to be deleted with the client")
	}
	kept, _ := st.GetMealPlansStorage().GetPlan(ctx, "default", plan.ID)
	if kept == nil || kept.ClientID != nil {
		t.Errorf("expected plan to be kept and detached, got %+v", kept)
	}

	if err := st.DeleteClient(ctx, client.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestSheetIsLastInserted(t *testing.T) {
	ctx := context.Background()
	sheets := New().GetNutritionSheetsStorage()
	clientID := uuid.New()

	for _, w := range []float64{70, 71, 72} {
		if err := sheets.InsertSheet(ctx, &storage.NutritionSheet{ClientID: clientID, WeightKg: w}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	latest, err := sheets.GetLatestSheet(ctx, clientID)
	if err != nil || latest == nil {
		t.Fatalf("expected latest sheet, got %v, %v", latest, err)
	}
	if latest.WeightKg != 72 {
		t.Errorf("expected weight 72, got %v", latest.WeightKg)
	}

	list, _ := sheets.ListSheets(ctx, clientID, 2)
	if len(list) != 2 || list[1].WeightKg != 71 {
		t.Errorf("expected two newest sheets, got %+v", list)
	}
}

func TestMealPlanTree(t *testing.T) {
	ctx := context.Background()
	plans := New().GetMealPlansStorage()

	plan := &storage.MealPlan{
		OwnerUserID: "coach",
		Name:        "Sèche",
		Meals: []storage.Meal{
			{Name: "Dîner", Position: 2},
			{Name: "Petit-déjeuner", Position: 0, Items: []storage.MealItem{{FoodID: "f1", Quantity: 40}}},
		},
	}
	if err := plans.CreatePlan(ctx, plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	got, _ := plans.GetPlan(ctx, "coach", plan.ID)
	if got == nil || len(got.Meals) != 2 || got.Meals[0].Name != "Petit-déjeuner" {
		t.Fatalf("expected meals ordered by position, got %+v", got)
	}
	if other, _ := plans.GetPlan(ctx, "someone-else", plan.ID); other != nil {
		t.Error("expected plan to be hidden from another owner")
	}

	lunch := &storage.Meal{Name: "Déjeuner", Position: 1}
	if err := plans.AddMeal(ctx, "coach", plan.ID, lunch); err != nil {
		t.Fatalf("add meal: %v", err)
	}
	item := &storage.MealItem{FoodID: "f2", Quantity: 150}
	if err := plans.AddItem(ctx, "coach", lunch.ID, item); err != nil {
		t.Fatalf("add item: %v", err)
	}
	item.Quantity = 200
	if err := plans.UpdateItem(ctx, "coach", *item); err != nil {
		t.Fatalf("update item: %v", err)
	}

	meal, err := plans.GetMeal(ctx, "coach", lunch.ID)
	if err != nil || meal == nil {
		t.Fatalf("expected meal, got %v, %v", meal, err)
	}
	if meal.PlanID != plan.ID || len(meal.Items) != 1 || meal.Items[0].Quantity != 200 {
		t.Errorf("expected lunch with updated item, got %+v", meal)
	}
	if other, _ := plans.GetMeal(ctx, "someone-else", lunch.ID); other != nil {
		t.Error("expected meal to be hidden from another owner")
	}
	if missing, _ := plans.GetMeal(ctx, "coach", "unknown"); missing != nil {
		t.Error("expected nil for unknown meal")
	}

	got, _ = plans.GetPlan(ctx, "coach", plan.ID)
	if got.Meals[1].Name != "Déjeuner" || got.Meals[1].Items[0].Quantity != 200 {
		t.Errorf("expected updated lunch in the middle, got %+v", got.Meals)
	}

	breakfastItem := got.Meals[0].Items[0].ID
	if err := plans.DeleteMeal(ctx, "coach", got.Meals[0].ID); err != nil {
		t.Fatalf("delete meal: %v", err)
	}
	if err := plans.DeleteItem(ctx, "coach", breakfastItem); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected items to go with their meal, got %v", err)
	}

	if err := plans.DeletePlan(ctx, "coach", plan.ID); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	if err := plans.AddItem(ctx, "coach", lunch.ID, &storage.MealItem{FoodID: "f3", Quantity: 10}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after plan deletion, got %v", err)
	}
}

func TestExportsListAndExpiry(t *testing.T) {
	ctx := context.Background()
	exports := NewExportsMemoryStorage()
	now := time.Now().UTC()

	old := &storage.ExportMeta{OwnerUserID: "default", Kind: "sheet", Format: "pdf", CreatedAt: now.Add(-48 * time.Hour), Data: []byte("%PDF")}
	fresh := &storage.ExportMeta{OwnerUserID: "default", Kind: "plan", Format: "csv", CreatedAt: now}
	for _, e := range []*storage.ExportMeta{old, fresh} {
		if err := exports.CreateExport(ctx, e); err != nil {
			t.Fatalf("create export: %v", err)
		}
	}

	list, _ := exports.ListExports(ctx, "default", nil, 10, 0)
	if len(list) != 2 || list[0].ID != fresh.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[1].Data != nil {
		t.Error("expected list to omit data")
	}

	expired, _ := exports.ListExpiredExports(ctx, now.Add(-24*time.Hour))
	if len(expired) != 1 || expired[0].ID != old.ID {
		t.Errorf("expected only the old export to be expired, got %+v", expired)
	}

	got, _ := exports.GetExport(ctx, old.ID)
	if got == nil || string(got.Data) != "%PDF" {
		t.Errorf("expected data to be kept, got %+v", got)
	}
}
