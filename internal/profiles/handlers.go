package profiles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/google/uuid"
)

// Handler содержит HTTP обработчики для профилей питания
type Handler struct {
	service *Service
}

// NewHandler создаёт новый handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGet обрабатывает GET /v1/profiles/{client_id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Get(r.Context(), clientID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, profile)
}

// HandleUpsert обрабатывает PUT /v1/profiles/{client_id}
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	var req UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	profile, err := h.service.Upsert(r.Context(), clientID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, profile)
}

// HandleDelete обрабатывает DELETE /v1/profiles/{client_id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), clientID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHydration обрабатывает GET /v1/profiles/{client_id}/hydration
func (h *Handler) HandleHydration(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	hydration, err := h.service.Hydration(r.Context(), clientID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, hydration)
}

// HandleCompatibility обрабатывает GET /v1/profiles/{client_id}/compatibility?food_id=
func (h *Handler) HandleCompatibility(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	foodID := strings.TrimSpace(r.URL.Query().Get("food_id"))
	if foodID == "" {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "food_id is required")
		return
	}

	resp, err := h.service.Compatibility(r.Context(), clientID, foodID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, resp)
}

func (h *Handler) clientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("client_id"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_id", "Invalid client ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		h.sendError(w, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), "validation failed: "))
	case errors.Is(err, clients.ErrNotFound):
		h.sendError(w, http.StatusNotFound, "client_not_found", "Client not found")
	case errors.Is(err, ErrNotFound):
		h.sendError(w, http.StatusNotFound, "profile_not_found", "Nutrition profile not found")
	case errors.Is(err, ErrFoodNotFound):
		h.sendError(w, http.StatusNotFound, "food_not_found", "Food not found")
	default:
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to process nutrition profile")
	}
}

// sendJSON отправляет JSON ответ
func (h *Handler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// sendError отправляет ошибку в стандартном формате
func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string) {
	h.sendJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
