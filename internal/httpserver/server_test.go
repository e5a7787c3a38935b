package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/coach-hub/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		Port:            8080,
		AuthMode:        "none",
		SeedFoodCatalog: true,
		JWTSecret:       "test-secret",
		JWTIssuer:       "coach-hub-test",
		JWTTTLMinutes:   60,
		ExportsTTLHours: 24,
		MealGen: config.MealGenConfig{
			DefaultDays:      1,
			DefaultMeals:     4,
			DefaultTolerance: 0.1,
			MaxDays:          14,
		},
	}
}

func doJSON(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	srv := New(testConfig())

	w := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	decode(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", resp["status"])
	}
	if resp["storage"] != "memory" {
		t.Errorf("expected storage=memory, got %s", resp["storage"])
	}
	if resp["blob"] != config.BlobModeLocal {
		t.Errorf("expected blob=local, got %s", resp["blob"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := New(testConfig())

	w := doJSON(t, srv.Handler(), http.MethodPost, "/healthz", "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestDevAuthRouteOnlyInDevMode(t *testing.T) {
	srv := New(testConfig())

	w := doJSON(t, srv.Handler(), http.MethodPost, "/v1/auth/dev", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 with AUTH_MODE=none, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = "dev"
	cfg.AuthEnabled = true
	cfg.AuthRequired = true
	h := New(cfg).Handler()

	if w := doJSON(t, h, http.MethodGet, "/v1/clients", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", w.Code)
	}

	w := doJSON(t, h, http.MethodPost, "/v1/auth/dev", `{"user_id": "coach-a"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 from dev auth, got %d: %s", w.Code, w.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &tok)

	w = doJSON(t, h, http.MethodPost, "/v1/clients", `{"first_name": "Léa", "last_name": "Martin"}`, tok.AccessToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	// другой тренер не видит чужих клиентов
	w = doJSON(t, h, http.MethodPost, "/v1/auth/dev", `{"user_id": "coach-b"}`, "")
	var other struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &other)

	w = doJSON(t, h, http.MethodGet, "/v1/clients", "", other.AccessToken)
	var list struct {
		Clients []json.RawMessage `json:"clients"`
	}
	decode(t, w, &list)
	if len(list.Clients) != 0 {
		t.Errorf("expected 0 clients for another coach, got %d", len(list.Clients))
	}
}

func TestClientToExportFlow(t *testing.T) {
	h := New(testConfig()).Handler()

	w := doJSON(t, h, http.MethodPost, "/v1/clients", `{"first_name": "Léa", "last_name": "Martin"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create client: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var client struct {
		ID string `json:"id"`
	}
	decode(t, w, &client)

	sheetBody := `{"client_id": "` + client.ID + `", "weight_kg": 62, "height_cm": 168, "age": 34, "sex": "Femme",
		"activity_level": "Activité modérée", "goal": "Perte de poids"}`
	w = doJSON(t, h, http.MethodPost, "/v1/nutrition/sheets", sheetBody, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("calculate sheet: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/v1/mealgen/generate", `{"client_id": "`+client.ID+`", "seed": 7, "save": true}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("generate: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var gen struct {
		SavedPlanID *string `json:"saved_plan_id"`
	}
	decode(t, w, &gen)
	if gen.SavedPlanID == nil {
		t.Fatal("expected saved_plan_id")
	}

	w = doJSON(t, h, http.MethodGet, "/v1/plans/"+*gen.SavedPlanID+"/totals", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("plan totals: expected 200, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/exports", `{"kind": "plan", "format": "csv", "subject_id": "`+*gen.SavedPlanID+`"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create export: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var export struct {
		DownloadURL string `json:"download_url"`
	}
	decode(t, w, &export)

	w = doJSON(t, h, http.MethodGet, export.DownloadURL, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "TOTAL") {
		t.Errorf("expected csv with TOTAL row, got %q", w.Body.String())
	}
}

func TestFoodRoutes(t *testing.T) {
	h := New(testConfig()).Handler()

	w := doJSON(t, h, http.MethodGet, "/v1/foods", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var list struct {
		Foods []json.RawMessage `json:"foods"`
	}
	decode(t, w, &list)
	if len(list.Foods) == 0 {
		t.Error("expected seeded catalog")
	}

	if w := doJSON(t, h, http.MethodGet, "/v1/foods/suggestions?goal=muscle&limit=5", "", ""); w.Code != http.StatusOK {
		t.Errorf("suggestions: expected 200, got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/v1/foods/top?metric=unknown", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("top with unknown metric: expected 400, got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/v1/foods/missing", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown food: expected 404, got %d", w.Code)
	}
}
