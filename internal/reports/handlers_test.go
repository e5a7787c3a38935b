package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/coach-hub/internal/blob"
	"github.com/fdg312/coach-hub/internal/mealplans"
	"github.com/fdg312/coach-hub/internal/nutrition"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/storage/memory"
	"github.com/fdg312/coach-hub/internal/userctx"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// mockBlobStore хранит объекты в памяти и умеет выдавать ссылки
type mockBlobStore struct {
	objects map[string][]byte
	deleted []string
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{objects: make(map[string][]byte)}
}

func (m *mockBlobStore) PutObject(ctx context.Context, key string, data []byte, contentType string) (int64, error) {
	m.objects[key] = data
	return int64(len(data)), nil
}

func (m *mockBlobStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return data, nil
}

func (m *mockBlobStore) PresignGet(ctx context.Context, key string, ttlSeconds int) (string, error) {
	return fmt.Sprintf("https://s3.example.test/bucket/%s?ttl=%d", key, ttlSeconds), nil
}

func (m *mockBlobStore) DeleteObject(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type testEnv struct {
	service  *Service
	handler  *Handlers
	store    *memory.MemoryStorage
	clientID uuid.UUID
	planID   string
}

func setupTestService(t *testing.T, store blob.Store, opts Options) testEnv {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	client := &storage.Client{OwnerUserID: userctx.DefaultUserID, FirstName: "Léa", LastName: "Martin"}
	if err := st.CreateClient(ctx, client); err != nil {
		t.Fatalf("create client: %v", err)
	}
	sheet := &storage.NutritionSheet{ClientID: client.ID, WeightKg: 62, Goal: "Perte de poids", ProteinPerKg: 2, CarbRatio: 0.45,
		MaintenanceKcal: 2100, ObjectiveKcal: 1800, ProteinG: 124, CarbsG: 190, FatG: 58}
	if err := st.GetNutritionSheetsStorage().InsertSheet(ctx, sheet); err != nil {
		t.Fatalf("insert sheet: %v", err)
	}

	catalog := st.GetFoodCatalogStorage()
	chicken, err := catalog.CreateFood(ctx, storage.FoodUpsert{Name: "Poulet", Category: "Viandes", KcalPer100g: 165, ProteinPer100g: 31, FatPer100g: 3.6})
	if err != nil {
		t.Fatalf("create food: %v", err)
	}

	plans := mealplans.NewService(st, st.GetMealPlansStorage(), catalog)
	cid := client.ID.String()
	plan, err := plans.Create(ctx, mealplans.PlanRequest{
		ClientID: &cid,
		Name:     "Semaine 1",
		Meals: []mealplans.MealRequest{
			{Name: "Déjeuner", Items: []mealplans.ItemRequest{{FoodID: chicken.ID, Quantity: 150}}},
		},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	sheets := nutrition.NewService(st, st.GetNutritionSheetsStorage())
	service := NewService(st.GetExportsStorage(), st, sheets, plans, store, opts, nil)
	return testEnv{service: service, handler: NewHandlers(service), store: st, clientID: client.ID, planID: plan.ID}
}

func postExport(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/exports", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	h.HandleCreate(w, req)
	return w
}

func download(t *testing.T, h *Handlers, id uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/exports/"+id.String()+"/download", nil)
	req.SetPathValue("id", id.String())
	w := httptest.NewRecorder()
	h.HandleDownload(w, req)
	return w
}

func decodeExport(t *testing.T, w *httptest.ResponseRecorder) ExportDTO {
	t.Helper()
	var dto ExportDTO
	if err := json.NewDecoder(w.Body).Decode(&dto); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return dto
}

func TestHandleCreatePlanCSV(t *testing.T) {
	env := setupTestService(t, nil, Options{})

	w := postExport(t, env.handler, `{"kind": "plan", "format": "csv", "subject_id": "`+env.planID+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	dto := decodeExport(t, w)
	if dto.ClientID == nil || *dto.ClientID != env.clientID {
		t.Errorf("expected export linked to plan client, got %v", dto.ClientID)
	}
	if dto.DownloadURL != "/v1/exports/"+dto.ID.String()+"/download" {
		t.Errorf("unexpected download url %q", dto.DownloadURL)
	}

	dl := download(t, env.handler, dto.ID)
	if dl.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", dl.Code)
	}
	if ct := dl.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected content type text/csv, got %s", ct)
	}
	body := dl.Body.String()
	if !strings.HasPrefix(body, "meal,food,quantity_g,kcal,protein_g,carbs_g,fat_g\n") {
		t.Errorf("unexpected csv header: %q", body)
	}
	if !strings.Contains(body, "Déjeuner,Poulet,150.0,247.5,46.5,0.0,5.4") || !strings.Contains(body, "TOTAL,,,247.5") {
		t.Errorf("unexpected csv body: %q", body)
	}
}

func TestHandleCreateSheetPDF(t *testing.T) {
	env := setupTestService(t, nil, Options{})

	w := postExport(t, env.handler, `{"kind": "sheet", "client_id": "`+env.clientID.String()+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	dto := decodeExport(t, w)
	if dto.Format != FormatPDF {
		t.Errorf("expected default format pdf, got %s", dto.Format)
	}

	dl := download(t, env.handler, dto.ID)
	if !bytes.HasPrefix(dl.Body.Bytes(), []byte("%PDF")) {
		t.Error("expected a PDF document")
	}
	if dl.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", dl.Header().Get("Content-Type"))
	}
}

func TestHandleCreatePlanXLSX(t *testing.T) {
	env := setupTestService(t, nil, Options{})

	dto := decodeExport(t, postExport(t, env.handler, `{"kind": "plan", "format": "xlsx", "subject_id": "`+env.planID+`"}`))
	dl := download(t, env.handler, dto.ID)

	f, err := excelize.OpenReader(bytes.NewReader(dl.Body.Bytes()))
	if err != nil {
		t.Fatalf("failed to open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows (header, item, meal total, plan total), got %d", len(rows))
	}
	if rows[0][0] != "meal" || rows[1][1] != "Poulet" || rows[3][0] != "TOTAL" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestHandleCreateErrors(t *testing.T) {
	env := setupTestService(t, nil, Options{})
	other := &storage.Client{OwnerUserID: userctx.DefaultUserID, FirstName: "Sans", LastName: "Fiche"}
	if err := env.store.CreateClient(context.Background(), other); err != nil {
		t.Fatalf("create client: %v", err)
	}

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"bad json", `{`, http.StatusBadRequest, "invalid_request"},
		{"unknown kind", `{"kind": "workout"}`, http.StatusBadRequest, "invalid_request"},
		{"sheet as csv", `{"kind": "sheet", "format": "csv", "client_id": "` + env.clientID.String() + `"}`, http.StatusBadRequest, "invalid_request"},
		{"plan without subject", `{"kind": "plan"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown format", `{"kind": "plan", "format": "docx", "subject_id": "x"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown plan", `{"kind": "plan", "subject_id": "missing"}`, http.StatusNotFound, "plan_not_found"},
		{"unknown client", `{"kind": "sheet", "client_id": "` + uuid.NewString() + `"}`, http.StatusNotFound, "client_not_found"},
		{"client without sheet", `{"kind": "sheet", "client_id": "` + other.ID.String() + `"}`, http.StatusNotFound, "sheet_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postExport(t, env.handler, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			var resp map[string]map[string]string
			json.NewDecoder(w.Body).Decode(&resp)
			if resp["error"]["code"] != tt.wantErr {
				t.Errorf("expected error code %s, got %s", tt.wantErr, resp["error"]["code"])
			}
		})
	}
}

func TestHandleListAndDelete(t *testing.T) {
	env := setupTestService(t, nil, Options{})
	ctx := context.Background()

	cid := env.clientID
	if _, err := env.service.Create(ctx, CreateExportRequest{Kind: KindSheet, ClientID: &cid}); err != nil {
		t.Fatalf("create export: %v", err)
	}
	created, err := env.service.Create(ctx, CreateExportRequest{Kind: KindPlan, Format: FormatCSV, SubjectID: env.planID})
	if err != nil {
		t.Fatalf("create export: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/exports?client_id="+env.clientID.String(), nil)
	w := httptest.NewRecorder()
	env.handler.HandleList(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp ExportsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Exports) != 2 {
		t.Errorf("expected 2 exports, got %d", len(resp.Exports))
	}

	del := httptest.NewRequest(http.MethodDelete, "/v1/exports/"+created.ID.String(), nil)
	del.SetPathValue("id", created.ID.String())
	w = httptest.NewRecorder()
	env.handler.HandleDelete(w, del)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	env.handler.HandleDelete(w, del)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 on second delete, got %d", w.Code)
	}
}

func TestExportsAreScopedToOwner(t *testing.T) {
	env := setupTestService(t, nil, Options{})

	created, err := env.service.Create(context.Background(), CreateExportRequest{Kind: KindPlan, Format: FormatCSV, SubjectID: env.planID})
	if err != nil {
		t.Fatalf("create export: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/exports/"+created.ID.String()+"/download", nil)
	req = req.WithContext(userctx.WithUserID(req.Context(), "someone-else"))
	req.SetPathValue("id", created.ID.String())
	w := httptest.NewRecorder()
	env.handler.HandleDownload(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for another owner, got %d", w.Code)
	}
}

func TestDownloadFromBlobStore(t *testing.T) {
	t.Run("presigned redirect", func(t *testing.T) {
		store := newMockBlobStore()
		env := setupTestService(t, store, Options{PresignTTLSeconds: 60})

		dto := decodeExport(t, postExport(t, env.handler, `{"kind": "plan", "format": "csv", "subject_id": "`+env.planID+`"}`))
		if len(store.objects) != 1 {
			t.Fatalf("expected 1 uploaded object, got %d", len(store.objects))
		}

		w := download(t, env.handler, dto.ID)
		if w.Code != http.StatusFound {
			t.Fatalf("expected status 302, got %d", w.Code)
		}
		if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "https://s3.example.test/bucket/exports/default/") {
			t.Errorf("unexpected redirect %q", loc)
		}
	})

	t.Run("public url", func(t *testing.T) {
		env := setupTestService(t, newMockBlobStore(), Options{PublicBaseURL: "https://cdn.example.test/", PreferPublicURL: true})

		dto := decodeExport(t, postExport(t, env.handler, `{"kind": "plan", "format": "pdf", "subject_id": "`+env.planID+`"}`))
		w := download(t, env.handler, dto.ID)
		want := "https://cdn.example.test/exports/default/" + dto.ID.String() + ".pdf"
		if loc := w.Header().Get("Location"); loc != want {
			t.Errorf("expected redirect %q, got %q", want, loc)
		}
	})

	t.Run("dir store serves bytes", func(t *testing.T) {
		store, err := blob.NewDirStore(t.TempDir())
		if err != nil {
			t.Fatalf("new dir store: %v", err)
		}
		env := setupTestService(t, store, Options{})

		dto := decodeExport(t, postExport(t, env.handler, `{"kind": "plan", "format": "csv", "subject_id": "`+env.planID+`"}`))
		w := download(t, env.handler, dto.ID)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "TOTAL") {
			t.Errorf("expected csv body, got %q", w.Body.String())
		}
	})
}

func TestJanitorPurgesExpiredExports(t *testing.T) {
	store := newMockBlobStore()
	env := setupTestService(t, store, Options{})
	ctx := context.Background()

	created, err := env.service.Create(ctx, CreateExportRequest{Kind: KindPlan, Format: FormatCSV, SubjectID: env.planID})
	if err != nil {
		t.Fatalf("create export: %v", err)
	}

	janitor := NewJanitor(env.store.GetExportsStorage(), store, time.Hour, nil)
	if n, err := janitor.PurgeExpired(ctx); err != nil || n != 0 {
		t.Fatalf("expected nothing to purge yet, got n=%d err=%v", n, err)
	}

	janitor.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err := janitor.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged export, got %d", n)
	}
	if len(store.deleted) != 1 || len(store.objects) != 0 {
		t.Errorf("expected blob object to be deleted, got deleted=%v", store.deleted)
	}
	if meta, _ := env.store.GetExportsStorage().GetExport(ctx, created.ID); meta != nil {
		t.Error("expected export metadata to be deleted")
	}
}

func TestJanitorStart(t *testing.T) {
	janitor := NewJanitor(memory.NewExportsMemoryStorage(), nil, time.Hour, nil)
	if err := janitor.Start("not a schedule"); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if err := janitor.Start("@every 1h"); err != nil {
		t.Fatalf("expected valid schedule, got %v", err)
	}
	janitor.Stop()

	disabled := NewJanitor(memory.NewExportsMemoryStorage(), nil, 0, nil)
	if err := disabled.Start("not a schedule"); err != nil {
		t.Errorf("expected disabled janitor to ignore schedule, got %v", err)
	}
}
