package mealgen

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/coach-hub/internal/mealplans"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/storage/memory"
	"github.com/fdg312/coach-hub/internal/userctx"
	"github.com/google/uuid"
)

type testEnv struct {
	handler  *Handler
	plans    *mealplans.Service
	store    *memory.MemoryStorage
	clientID uuid.UUID
	foods    []storage.Food
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	client := &storage.Client{OwnerUserID: userctx.DefaultUserID, FirstName: "Léa", LastName: "Martin"}
	if err := store.CreateClient(ctx, client); err != nil {
		t.Fatalf("create client: %v", err)
	}

	catalog := store.GetFoodCatalogStorage()
	var created []storage.Food
	for _, req := range []storage.FoodUpsert{
		{Name: "Poulet", Category: "Viandes", DietType: "Omnivore", KcalPer100g: 165, ProteinPer100g: 31, FatPer100g: 3.6},
		{Name: "Riz", Category: "Céréales et dérivés", KcalPer100g: 130, ProteinPer100g: 2.7, CarbsPer100g: 28, FatPer100g: 0.3},
		{Name: "Lentilles", Category: "Légumineuses", KcalPer100g: 116, ProteinPer100g: 9, CarbsPer100g: 20, FatPer100g: 0.4},
		{Name: "Huile d'olive", Category: "Matières grasses", KcalPer100g: 884, FatPer100g: 100},
	} {
		f, err := catalog.CreateFood(ctx, req)
		if err != nil {
			t.Fatalf("create food: %v", err)
		}
		created = append(created, f)
	}

	plans := mealplans.NewService(store, store.GetMealPlansStorage(), catalog)
	service := NewService(
		store, catalog,
		store.GetNutritionSheetsStorage(), store.GetNutritionProfilesStorage(),
		plans,
		Defaults{Days: 2, MealsPerDay: 3, Tolerance: 0.1, MaxDays: 14},
		log.New(io.Discard, "", 0),
	)
	return testEnv{handler: NewHandler(service), plans: plans, store: store, clientID: client.ID, foods: created}
}

func do(t *testing.T, h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]map[string]string](t, w)
	return body["error"]["code"]
}

func TestHandleGenerateWithTargets(t *testing.T) {
	env := newTestEnv(t)

	body := `{"targets": {"kcal": 2000, "protein_g": 140, "carbs_g": 220, "fat_g": 60}, "seed": 99}`
	w := do(t, env.handler.HandleGenerate, http.MethodPost, "/v1/mealgen/generate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[GenerateResponse](t, w)
	if resp.Seed != 99 {
		t.Errorf("expected seed 99, got %d", resp.Seed)
	}
	if resp.SavedPlanID != nil {
		t.Error("expected plan not to be saved")
	}
	if len(resp.Plan.Days) != 2 || len(resp.Plan.Days[0].Slots) != 3 {
		t.Errorf("expected configured defaults 2x3, got %d days", len(resp.Plan.Days))
	}

	again := decode[GenerateResponse](t, do(t, env.handler.HandleGenerate, http.MethodPost, "/v1/mealgen/generate", body))
	if again.Plan.Totals != resp.Plan.Totals {
		t.Errorf("expected same totals for the same seed, got %+v and %+v", resp.Plan.Totals, again.Plan.Totals)
	}
}

func TestHandleGenerateUsesSheetAndProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sheet := &storage.NutritionSheet{ClientID: env.clientID, WeightKg: 70, Goal: "Maintien", ObjectiveKcal: 1800, ProteinG: 126, CarbsG: 200, FatG: 55}
	if err := env.store.GetNutritionSheetsStorage().InsertSheet(ctx, sheet); err != nil {
		t.Fatalf("insert sheet: %v", err)
	}
	oil := env.foods[3]
	profile := &storage.NutritionProfile{ClientID: env.clientID, Age: 30, Sex: "F", WeightKg: 70, HeightCm: 168, MealsPerDay: 3, ExcludedFoodIDs: []string{oil.ID}}
	if err := env.store.GetNutritionProfilesStorage().UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	body := `{"client_id": "` + env.clientID.String() + `", "days": 3, "seed": 5}`
	w := do(t, env.handler.HandleGenerate, http.MethodPost, "/v1/mealgen/generate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[GenerateResponse](t, w)
	if resp.Plan.DailyTargets.Kcal != 1800 || resp.Plan.DailyTargets.ProteinG != 126 {
		t.Errorf("expected targets from sheet, got %+v", resp.Plan.DailyTargets)
	}
	for _, day := range resp.Plan.Days {
		if len(day.Slots) != 3 {
			t.Errorf("expected 3 slots from profile meals_per_day, got %d", len(day.Slots))
		}
		for _, slot := range day.Slots {
			for _, f := range slot.Foods {
				if f.FoodID == oil.ID {
					t.Errorf("expected excluded food %s to be skipped", oil.Name)
				}
			}
		}
	}
}

func TestHandleGenerateAndSave(t *testing.T) {
	env := newTestEnv(t)

	body := `{"client_id": "` + env.clientID.String() + `", "targets": {"kcal": 1600}, "days": 2, "meals_per_day": 4, "seed": 1, "save": true, "plan_name": "Semaine test"}`
	w := do(t, env.handler.HandleGenerate, http.MethodPost, "/v1/mealgen/generate", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[GenerateResponse](t, w)
	if resp.SavedPlanID == nil {
		t.Fatal("expected saved plan id")
	}

	plan, err := env.plans.Get(context.Background(), *resp.SavedPlanID)
	if err != nil {
		t.Fatalf("get saved plan: %v", err)
	}
	if plan.Name != "Semaine test" {
		t.Errorf("expected plan name 'Semaine test', got %q", plan.Name)
	}
	if plan.ClientID == nil || *plan.ClientID != env.clientID.String() {
		t.Errorf("expected plan linked to client, got %v", plan.ClientID)
	}
	if len(plan.Meals) != 8 {
		t.Fatalf("expected 8 meals, got %d", len(plan.Meals))
	}
	if plan.Meals[0].Name != "J1 - Petit-déjeuner" {
		t.Errorf("expected first meal 'J1 - Petit-déjeuner', got %q", plan.Meals[0].Name)
	}
	if math.Abs(plan.Totals.Kcal-resp.Plan.Totals.Kcal) > 1e-6 {
		t.Errorf("expected saved totals %v, got %v", resp.Plan.Totals.Kcal, plan.Totals.Kcal)
	}
}

func TestHandleGenerateErrors(t *testing.T) {
	env := newTestEnv(t)
	allFoods := `["` + env.foods[0].ID + `","` + env.foods[1].ID + `","` + env.foods[2].ID + `","` + env.foods[3].ID + `"]`

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"bad json", `{`, http.StatusBadRequest, "invalid_request"},
		{"no targets nor client", `{"days": 2}`, http.StatusBadRequest, "invalid_request"},
		{"unknown diet", `{"targets": {"kcal": 2000}, "diet": "Carnivore"}`, http.StatusBadRequest, "invalid_request"},
		{"too many days", `{"targets": {"kcal": 2000}, "days": 30}`, http.StatusBadRequest, "invalid_request"},
		{"zero kcal", `{"targets": {"kcal": 0}}`, http.StatusBadRequest, "invalid_request"},
		{"invalid client id", `{"client_id": "nope"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown client", `{"client_id": "` + uuid.NewString() + `"}`, http.StatusNotFound, "client_not_found"},
		{"client without sheet", `{"client_id": "` + env.clientID.String() + `"}`, http.StatusUnprocessableEntity, "no_targets"},
		{"everything excluded", `{"targets": {"kcal": 2000}, "excluded_food_ids": ` + allFoods + `}`, http.StatusUnprocessableEntity, "no_compatible_foods"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, env.handler.HandleGenerate, http.MethodPost, "/v1/mealgen/generate", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if code := errorCode(t, w); code != tt.wantErr {
				t.Errorf("expected error code %q, got %q", tt.wantErr, code)
			}
		})
	}
}

func TestHandleAnalyze(t *testing.T) {
	env := newTestEnv(t)

	gen := decode[GenerateResponse](t, do(t, env.handler.HandleGenerate, http.MethodPost, "/v1/mealgen/generate",
		`{"targets": {"kcal": 2000, "protein_g": 120}, "days": 2, "meals_per_day": 3, "seed": 11, "save": true}`))
	if gen.SavedPlanID == nil {
		t.Fatal("expected saved plan id")
	}

	body := `{"plan_id": "` + *gen.SavedPlanID + `", "targets": {"kcal": 2000, "protein_g": 120}, "days": 2}`
	w := do(t, env.handler.HandleAnalyze, http.MethodPost, "/v1/mealgen/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	a := decode[Analysis](t, w)
	if a.MealCount != 3 {
		t.Errorf("expected 3 meals per day, got %d", a.MealCount)
	}
	if math.Abs(a.Totals.Kcal-gen.Plan.Totals.Kcal/2) > 1e-6 {
		t.Errorf("expected daily kcal %v, got %v", gen.Plan.Totals.Kcal/2, a.Totals.Kcal)
	}
	if a.Targets.Kcal != 2000 {
		t.Errorf("expected target 2000, got %v", a.Targets.Kcal)
	}

	w = do(t, env.handler.HandleAnalyze, http.MethodPost, "/v1/mealgen/analyze", `{"plan_id": "missing", "targets": {"kcal": 2000}}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	w = do(t, env.handler.HandleAnalyze, http.MethodPost, "/v1/mealgen/analyze", `{"plan_id": "`+*gen.SavedPlanID+`"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422 without targets, got %d", w.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	env := newTestEnv(t)

	w := do(t, env.handler.HandleSuggestions, http.MethodGet, "/v1/foods/suggestions?goal=Perte%20de%20poids&limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Foods []struct {
			Name        string  `json:"name"`
			KcalPer100g float64 `json:"kcal_100g"`
		} `json:"foods"`
	}](t, w)
	if len(resp.Foods) != 2 {
		t.Fatalf("expected 2 low-calorie foods, got %d", len(resp.Foods))
	}

	w = do(t, env.handler.HandleSuggestions, http.MethodGet, "/v1/foods/suggestions?limit=0", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for limit=0, got %d", w.Code)
	}
}
