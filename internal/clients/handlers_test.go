package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/coach-hub/internal/storage/memory"
	"github.com/fdg312/coach-hub/internal/userctx"
)

func TestHandleCreateAndList(t *testing.T) {
	store := memory.New()
	handler := NewHandler(NewService(store))

	body, _ := json.Marshal(ClientRequest{FirstName: "Camille", LastName: "Durand"})
	req := httptest.NewRequest(http.MethodPost, "/v1/clients", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleCreate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	var created ClientDTO
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.OwnerUserID != userctx.DefaultUserID {
		t.Errorf("expected owner %q, got %q", userctx.DefaultUserID, created.OwnerUserID)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
	listW := httptest.NewRecorder()
	handler.HandleList(listW, listReq)

	var resp ClientsResponse
	if err := json.NewDecoder(listW.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Clients) != 1 || resp.Clients[0].LastName != "Durand" {
		t.Errorf("expected 1 client Durand, got %+v", resp.Clients)
	}
}

func TestHandleCreateValidation(t *testing.T) {
	handler := NewHandler(NewService(memory.New()))

	tests := []struct {
		name string
		req  ClientRequest
		code string
	}{
		{"empty name", ClientRequest{}, "empty_name"},
		{"bad email", ClientRequest{FirstName: "Léa", Email: strPtr("not-an-email")}, "invalid_email"},
		{"bad birth date", ClientRequest{FirstName: "Léa", BirthDate: strPtr("12/03/1990")}, "invalid_birth_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.req)
			req := httptest.NewRequest(http.MethodPost, "/v1/clients", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.HandleCreate(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("expected error code %q, got %q", tt.code, resp.Error.Code)
			}
		})
	}
}

func TestHandleUpdateOtherOwner(t *testing.T) {
	store := memory.New()
	service := NewService(store)
	handler := NewHandler(service)

	ownerCtx := userctx.WithUserID(context.Background(), "coach-a")
	client, err := service.CreateClient(ownerCtx, ClientRequest{FirstName: "Hugo"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	body, _ := json.Marshal(ClientRequest{FirstName: "Intrus"})
	req := httptest.NewRequest(http.MethodPatch, "/v1/clients/"+client.ID.String(), bytes.NewReader(body))
	req = req.WithContext(userctx.WithUserID(context.Background(), "coach-b"))
	req.SetPathValue("id", client.ID.String())
	w := httptest.NewRecorder()

	handler.HandleUpdate(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	got, err := service.GetClient(ownerCtx, client.ID)
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	if got.FirstName != "Hugo" {
		t.Errorf("expected name to stay Hugo, got %s", got.FirstName)
	}
}

func TestHandleDelete(t *testing.T) {
	store := memory.New()
	service := NewService(store)
	handler := NewHandler(service)

	client, _ := service.CreateClient(context.Background(), ClientRequest{FirstName: "Inès", LastName: "Martin"})

	req := httptest.NewRequest(http.MethodDelete, "/v1/clients/"+client.ID.String(), nil)
	req.SetPathValue("id", client.ID.String())
	w := httptest.NewRecorder()

	handler.HandleDelete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}

	if _, err := service.GetClient(context.Background(), client.ID); err == nil {
		t.Error("expected client to be deleted")
	}
}

func strPtr(s string) *string {
	return &s
}
