package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/storage/memory"
	"github.com/fdg312/coach-hub/internal/userctx"
	"github.com/google/uuid"
)

func newTestHandler(t *testing.T) (*Handler, uuid.UUID) {
	t.Helper()
	store := memory.New()
	client := &storage.Client{OwnerUserID: userctx.DefaultUserID, FirstName: "Paul", LastName: "Bernard"}
	if err := store.CreateClient(context.Background(), client); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return NewHandler(NewService(store, store.GetNutritionSheetsStorage())), client.ID
}

func postSheet(t *testing.T, h *Handler, clientID uuid.UUID, weight float64) SheetDTO {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"client_id":      clientID,
		"weight_kg":      weight,
		"height_cm":      180,
		"age":            30,
		"sex":            "Homme",
		"activity_level": ActivityModerate,
		"goal":           GoalMaintenance,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/nutrition/sheets", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleCalculate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var sheet SheetDTO
	if err := json.NewDecoder(w.Body).Decode(&sheet); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return sheet
}

func TestHandleCalculateAppendsSheets(t *testing.T) {
	h, clientID := newTestHandler(t)

	first := postSheet(t, h, clientID, 80)
	second := postSheet(t, h, clientID, 78)

	if first.ID == second.ID {
		t.Fatal("expected a new sheet per calculation")
	}
	if first.CarbsG != 366 {
		t.Errorf("expected 366 g carbs on first sheet, got %d", first.CarbsG)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/nutrition/sheets/latest?client_id="+clientID.String(), nil)
	w := httptest.NewRecorder()
	h.HandleLatest(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var latest SheetDTO
	if err := json.NewDecoder(w.Body).Decode(&latest); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if latest.ID != second.ID || latest.WeightKg != 78 {
		t.Errorf("expected latest to be the second sheet, got %+v", latest)
	}

	histReq := httptest.NewRequest(http.MethodGet, "/v1/nutrition/sheets?client_id="+clientID.String(), nil)
	histW := httptest.NewRecorder()
	h.HandleHistory(histW, histReq)

	var hist SheetsResponse
	if err := json.NewDecoder(histW.Body).Decode(&hist); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(hist.Sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %d", len(hist.Sheets))
	}
	if hist.Sheets[0].ID != second.ID {
		t.Errorf("expected newest first")
	}
}

func TestHandleLatestWithoutSheet(t *testing.T) {
	h, clientID := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/nutrition/sheets/latest?client_id="+clientID.String(), nil)
	w := httptest.NewRecorder()
	h.HandleLatest(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandleCalculateErrors(t *testing.T) {
	h, clientID := newTestHandler(t)

	t.Run("invalid biometrics", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"client_id": clientID, "weight_kg": 0, "height_cm": 180, "age": 30, "sex": "Homme"})
		req := httptest.NewRequest(http.MethodPost, "/v1/nutrition/sheets", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.HandleCalculate(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("foreign client", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"client_id": clientID, "weight_kg": 80, "height_cm": 180, "age": 30, "sex": "Homme"})
		req := httptest.NewRequest(http.MethodPost, "/v1/nutrition/sheets", bytes.NewReader(body))
		req = req.WithContext(userctx.WithUserID(context.Background(), "someone-else"))
		w := httptest.NewRecorder()
		h.HandleCalculate(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("missing client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/nutrition/sheets", bytes.NewReader([]byte(`{"weight_kg":80}`)))
		w := httptest.NewRecorder()
		h.HandleCalculate(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandlePreviewDoesNotPersist(t *testing.T) {
	h, clientID := newTestHandler(t)

	body := []byte(`{"weight_kg":80,"height_cm":180,"age":30,"sex":"Homme","activity_level":"Activité modérée","goal":"Maintenance"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/nutrition/targets/preview", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandlePreview(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp PreviewResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Targets.ObjectiveKcal != 2759 {
		t.Errorf("expected objective 2759, got %d", resp.Targets.ObjectiveKcal)
	}

	latestReq := httptest.NewRequest(http.MethodGet, "/v1/nutrition/sheets/latest?client_id="+clientID.String(), nil)
	latestW := httptest.NewRecorder()
	h.HandleLatest(latestW, latestReq)
	if latestW.Code != http.StatusNotFound {
		t.Errorf("expected no stored sheet after preview, got status %d", latestW.Code)
	}
}
