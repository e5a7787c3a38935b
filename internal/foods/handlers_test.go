package foods

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/storage/memory"
)

func intPtr(v int) *int { return &v }

func newTestHandler(t *testing.T) (*Handler, storage.FoodCatalogStorage) {
	t.Helper()
	catalog := memory.New().GetFoodCatalogStorage()
	ctx := context.Background()
	for _, f := range []storage.FoodUpsert{
		{Name: "Blanc de poulet", Category: CategoryMeat, DietType: DietOmnivore, KcalPer100g: 121, ProteinPer100g: 26.2, FatPer100g: 1.8, HealthyIndex: intPtr(8), CommonIndex: intPtr(9)},
		{Name: "Lentilles", Category: CategoryLegumes, DietType: DietVegan, KcalPer100g: 116, ProteinPer100g: 9, CarbsPer100g: 20, FiberPer100g: fptr(7.9), HealthyIndex: intPtr(9), CommonIndex: intPtr(7)},
		{Name: "Brocoli", Category: CategoryVegetables, KcalPer100g: 34, ProteinPer100g: 2.8, CarbsPer100g: 6.6, FiberPer100g: fptr(2.6), HealthyIndex: intPtr(10)},
		{Name: "Poulet rôti", Category: CategoryMeat, DietType: DietOmnivore, KcalPer100g: 190, ProteinPer100g: 27, FatPer100g: 9},
	} {
		if _, err := catalog.CreateFood(ctx, f); err != nil {
			t.Fatalf("create food: %v", err)
		}
	}
	return NewHandler(NewService(catalog)), catalog
}

func decodeFoods(t *testing.T, w *httptest.ResponseRecorder) []FoodDTO {
	t.Helper()
	var resp FoodsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.Foods
}

func TestHandleListAndSearchByName(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/v1/foods", nil))
	all := decodeFoods(t, w)
	if len(all) != 4 || all[0].Name != "Blanc de poulet" {
		t.Fatalf("expected 4 foods sorted by name, got %+v", all)
	}

	w = httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/v1/foods?q=POULET", nil))
	found := decodeFoods(t, w)
	if len(found) != 2 {
		t.Errorf("expected 2 case-insensitive matches, got %d", len(found))
	}
}

func TestHandleSearchFilters(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSearch(w, httptest.NewRequest(http.MethodGet, "/v1/foods/search?min_protein=5&max_kcal=150", nil))
	got := decodeFoods(t, w)
	if len(got) != 2 {
		t.Fatalf("expected 2 foods, got %d", len(got))
	}
	if got[0].Name != "Lentilles" {
		t.Errorf("expected highest healthy index first, got %s", got[0].Name)
	}

	w = httptest.NewRecorder()
	h.HandleSearch(w, httptest.NewRequest(http.MethodGet, "/v1/foods/search?diet=Vegan", nil))
	vegan := decodeFoods(t, w)
	if len(vegan) != 2 {
		t.Errorf("expected vegan and untyped foods, got %d", len(vegan))
	}

	w = httptest.NewRecorder()
	h.HandleSearch(w, httptest.NewRequest(http.MethodGet, "/v1/foods/search?max_kcal=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandleTop(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleTop(w, httptest.NewRequest(http.MethodGet, "/v1/foods/top?metric=fibres_100g&limit=1", nil))
	got := decodeFoods(t, w)
	if len(got) != 1 || got[0].Name != "Lentilles" {
		t.Errorf("expected Lentilles on top for fibre, got %+v", got)
	}

	w = httptest.NewRecorder()
	h.HandleTop(w, httptest.NewRequest(http.MethodGet, "/v1/foods/top?metric=proteines_100g&exclude=Viandes", nil))
	got = decodeFoods(t, w)
	for _, f := range got {
		if f.Category == CategoryMeat {
			t.Errorf("expected meat to be excluded, got %s", f.Name)
		}
	}

	w = httptest.NewRecorder()
	h.HandleTop(w, httptest.NewRequest(http.MethodGet, "/v1/foods/top?metric=kcal_100g", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown metric, got %d", w.Code)
	}
}

func TestHandleCreateUpdateDelete(t *testing.T) {
	h, catalog := newTestHandler(t)

	body, _ := json.Marshal(FoodRequest{Name: "Skyr", Category: CategoryDairy, DietType: DietVegetarian, KcalPer100g: 63, ProteinPer100g: 11, CarbsPer100g: 4})
	w := httptest.NewRecorder()
	h.HandleCreate(w, httptest.NewRequest(http.MethodPost, "/v1/foods", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created FoodDTO
	json.NewDecoder(w.Body).Decode(&created)
	if created.BaseUnit != "g" {
		t.Errorf("expected base unit g, got %q", created.BaseUnit)
	}

	w = httptest.NewRecorder()
	h.HandleCreate(w, httptest.NewRequest(http.MethodPost, "/v1/foods", bytes.NewReader(body)))
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 for duplicate, got %d", w.Code)
	}

	bad, _ := json.Marshal(FoodRequest{Name: "X", Category: "Minéraux"})
	w = httptest.NewRecorder()
	h.HandleCreate(w, httptest.NewRequest(http.MethodPost, "/v1/foods", bytes.NewReader(bad)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown category, got %d", w.Code)
	}

	portionBody, _ := json.Marshal(PortionRequest{Description: "1 pot", GramsEquivalent: 150})
	preq := httptest.NewRequest(http.MethodPost, "/v1/foods/"+created.ID+"/portions", bytes.NewReader(portionBody))
	preq.SetPathValue("id", created.ID)
	w = httptest.NewRecorder()
	h.HandleAddPortion(w, preq)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	dreq := httptest.NewRequest(http.MethodDelete, "/v1/foods/"+created.ID, nil)
	dreq.SetPathValue("id", created.ID)
	w = httptest.NewRecorder()
	h.HandleDelete(w, dreq)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	portions, _ := catalog.ListPortions(context.Background(), created.ID)
	if len(portions) != 0 {
		t.Errorf("expected portions to be deleted with the food, got %d", len(portions))
	}

	greq := httptest.NewRequest(http.MethodGet, "/v1/foods/"+created.ID, nil)
	greq.SetPathValue("id", created.ID)
	w = httptest.NewRecorder()
	h.HandleGet(w, greq)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}
