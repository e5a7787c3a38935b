package mealplans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/storage/memory"
	"github.com/fdg312/coach-hub/internal/userctx"
	"github.com/google/uuid"
)

type testEnv struct {
	handler  *Handler
	service  *Service
	store    *memory.MemoryStorage
	clientID uuid.UUID
	chicken  storage.Food
	rice     storage.Food
	portion  storage.Portion
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
	chicken, err := catalog.CreateFood(ctx, storage.FoodUpsert{Name: "Poulet", Category: "Viandes", KcalPer100g: 165, ProteinPer100g: 31, FatPer100g: 3.6})
	if err != nil {
		t.Fatalf("create food: %v", err)
	}
	rice, err := catalog.CreateFood(ctx, storage.FoodUpsert{Name: "Riz", Category: "Céréales et dérivés", KcalPer100g: 130, ProteinPer100g: 2.7, CarbsPer100g: 28, FatPer100g: 0.3})
	if err != nil {
		t.Fatalf("create food: %v", err)
	}
	portion, err := catalog.CreatePortion(ctx, rice.ID, "1 bol", 150)
	if err != nil {
		t.Fatalf("create portion: %v", err)
	}

	service := NewService(store, store.GetMealPlansStorage(), catalog)
	return testEnv{
		handler: NewHandler(service), service: service, store: store,
		clientID: client.ID, chicken: chicken, rice: rice, portion: portion,
	}
}

func do(t *testing.T, h http.HandlerFunc, method, target, body string, pathValues map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
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

func TestHandleCreateAndGetPlan(t *testing.T) {
	env := newTestEnv(t)

	body := fmt.Sprintf(`{
		"name": "Semaine 1",
		"client_id": %q,
		"meals": [
			{"name": "Dîner", "position": 1, "items": [{"food_id": %q, "quantity": 150}]},
			{"name": "Déjeuner", "position": 0, "items": [{"food_id": %q, "portion_id": %q, "quantity": 200}]}
		]
	}`, env.clientID, env.chicken.ID, env.rice.ID, env.portion.ID)

	w := do(t, env.handler.HandleCreate, http.MethodPost, "/v1/plans", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[PlanDTO](t, w)

	if len(created.Meals) != 2 || created.Meals[0].Name != "Déjeuner" {
		t.Fatalf("expected meals ordered by position, got %+v", created.Meals)
	}
	if created.Meals[0].Items[0].FoodName != "Riz" || created.Meals[0].Items[0].PortionID == nil {
		t.Errorf("expected rice item with portion, got %+v", created.Meals[0].Items[0])
	}
	if !approx(created.Totals.Kcal, 507.5) {
		t.Errorf("expected plan kcal 507.5, got %v", created.Totals.Kcal)
	}

	w = do(t, env.handler.HandleTotals, http.MethodGet, "/v1/plans/"+created.ID+"/totals", "", map[string]string{"id": created.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	totals := decode[TotalsResponse](t, w)
	if len(totals.Meals) != 2 || !approx(totals.Meals[1].Totals.Kcal, 247.5) {
		t.Errorf("unexpected totals: %+v", totals)
	}

	w = do(t, env.handler.HandleList, http.MethodGet, "/v1/plans?client_id="+env.clientID.String(), "", nil)
	list := decode[PlansResponse](t, w)
	if len(list.Plans) != 1 || list.Plans[0].Name != "Semaine 1" {
		t.Errorf("expected one plan for the client, got %+v", list.Plans)
	}
}

func TestHandleCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing name", `{"meals": []}`, http.StatusBadRequest, "invalid_request"},
		{"zero quantity", fmt.Sprintf(`{"name":"P","meals":[{"name":"M","items":[{"food_id":%q,"quantity":0}]}]}`, env.chicken.ID), http.StatusBadRequest, "invalid_request"},
		{"unknown food", `{"name":"P","meals":[{"name":"M","items":[{"food_id":"nope","quantity":10}]}]}`, http.StatusBadRequest, "food_not_found"},
		{"portion of another food", fmt.Sprintf(`{"name":"P","meals":[{"name":"M","items":[{"food_id":%q,"portion_id":%q,"quantity":10}]}]}`, env.chicken.ID, env.portion.ID), http.StatusBadRequest, "invalid_request"},
		{"unknown client", fmt.Sprintf(`{"name":"P","client_id":%q}`, uuid.New()), http.StatusNotFound, "client_not_found"},
		{"bad json", `{`, http.StatusBadRequest, "invalid_payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, env.handler.HandleCreate, http.MethodPost, "/v1/plans", tt.body, nil)
			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			resp := decode[map[string]map[string]string](t, w)
			if resp["error"]["code"] != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp["error"]["code"])
			}
		})
	}
}

func TestMealAndItemOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	plan, err := env.service.Create(ctx, PlanRequest{Name: "Plan", Meals: []MealRequest{{Name: "Déjeuner"}}})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	w := do(t, env.handler.HandleAddMeal, http.MethodPost, "/v1/plans/"+plan.ID+"/meals", `{"name":"Dîner"}`, map[string]string{"id": plan.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	dinner := decode[MealDTO](t, w)
	if dinner.Position != 1 {
		t.Errorf("expected new meal at position 1, got %d", dinner.Position)
	}

	w = do(t, env.handler.HandleAddItem, http.MethodPost, "/v1/meals/"+dinner.ID+"/items",
		fmt.Sprintf(`{"food_id":%q,"quantity":100}`, env.chicken.ID), map[string]string{"id": dinner.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	item := decode[ItemDTO](t, w)
	if !approx(item.Totals.Kcal, 165) {
		t.Errorf("expected 165 kcal, got %v", item.Totals.Kcal)
	}

	w = do(t, env.handler.HandleUpdateItem, http.MethodPatch, "/v1/items/"+item.ID,
		fmt.Sprintf(`{"food_id":%q,"quantity":50}`, env.chicken.ID), map[string]string{"id": item.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, env.handler.HandleUpdateMeal, http.MethodPatch, "/v1/meals/"+dinner.ID, `{"name":"Souper","position":5}`, map[string]string{"id": dinner.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decode[MealDTO](t, w)
	if updated.PlanID != plan.ID || updated.Name != "Souper" {
		t.Errorf("expected renamed meal of plan %s, got %+v", plan.ID, updated)
	}
	if len(updated.Items) != 1 || !approx(updated.Totals.Kcal, 82.5) {
		t.Errorf("expected updated meal to keep its item with 82.5 kcal, got %+v", updated)
	}

	got, err := env.service.Get(ctx, plan.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if len(got.Meals) != 2 || got.Meals[1].Name != "Souper" || got.Meals[1].Position != 5 {
		t.Errorf("expected renamed meal last, got %+v", got.Meals)
	}
	if !approx(got.Totals.Kcal, 82.5) {
		t.Errorf("expected plan kcal 82.5 after update, got %v", got.Totals.Kcal)
	}

	w = do(t, env.handler.HandleDeleteItem, http.MethodDelete, "/v1/items/"+item.ID, "", map[string]string{"id": item.ID})
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	w = do(t, env.handler.HandleDeleteItem, http.MethodDelete, "/v1/items/"+item.ID, "", map[string]string{"id": item.ID})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	w = do(t, env.handler.HandleDeleteMeal, http.MethodDelete, "/v1/meals/"+dinner.ID, "", map[string]string{"id": dinner.ID})
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}

	w = do(t, env.handler.HandleDelete, http.MethodDelete, "/v1/plans/"+plan.ID, "", map[string]string{"id": plan.ID})
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	w = do(t, env.handler.HandleGet, http.MethodGet, "/v1/plans/"+plan.ID, "", map[string]string{"id": plan.ID})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandleClientPlanCreatesDefaultsOnce(t *testing.T) {
	env := newTestEnv(t)
	path := map[string]string{"id": env.clientID.String()}

	w := do(t, env.handler.HandleClientPlan, http.MethodPost, "/v1/clients/"+env.clientID.String()+"/plan", "", path)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	first := decode[PlanDTO](t, w)
	if len(first.Meals) != len(DefaultMealNames) {
		t.Fatalf("expected %d default meals, got %d", len(DefaultMealNames), len(first.Meals))
	}
	for i, name := range DefaultMealNames {
		if first.Meals[i].Name != name {
			t.Errorf("expected meal %d to be %s, got %s", i, name, first.Meals[i].Name)
		}
	}

	w = do(t, env.handler.HandleClientPlan, http.MethodPost, "/v1/clients/"+env.clientID.String()+"/plan", "", path)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	second := decode[PlanDTO](t, w)
	if second.ID != first.ID {
		t.Errorf("expected the same plan, got %s and %s", first.ID, second.ID)
	}

	w = do(t, env.handler.HandleClientPlan, http.MethodPost, "/v1/clients/x/plan", "", map[string]string{"id": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestSaveGenerated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	meals := []GeneratedMeal{
		{Day: 1, Slot: "Petit-déjeuner", Items: []GeneratedItem{{FoodID: env.rice.ID, Grams: 80}}},
		{Day: 1, Slot: "Déjeuner", Items: []GeneratedItem{{FoodID: env.chicken.ID, Grams: 120}, {FoodID: env.rice.ID, Grams: 100}}},
	}
	plan, err := env.service.SaveGenerated(ctx, &env.clientID, "", meals)
	if err != nil {
		t.Fatalf("save generated: %v", err)
	}
	if plan.Name != "Plan généré" || plan.ClientID == nil {
		t.Errorf("unexpected plan header: %+v", plan)
	}
	if len(plan.Meals) != 2 || plan.Meals[1].Name != "J1 - Déjeuner" || len(plan.Meals[1].Items) != 2 {
		t.Errorf("unexpected meals: %+v", plan.Meals)
	}

	other := uuid.New()
	if _, err := env.service.SaveGenerated(ctx, &other, "x", meals); err == nil {
		t.Error("expected error for unknown client")
	}
}

func TestPlansAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)

	plan, err := env.service.Create(context.Background(), PlanRequest{Name: "Privé"})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	other := userctx.WithUserID(context.Background(), "someone-else")
	if _, err := env.service.Get(other, plan.ID); err != ErrPlanNotFound {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
}
