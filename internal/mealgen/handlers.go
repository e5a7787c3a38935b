package mealgen

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/fdg312/coach-hub/internal/foods"
	"github.com/fdg312/coach-hub/internal/mealplans"
)

// Handler handles HTTP requests for the meal plan generator.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGenerate handles POST /v1/mealgen/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if resp.SavedPlanID != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// HandleAnalyze handles POST /v1/mealgen/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	analysis, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// HandleSuggestions handles GET /v1/foods/suggestions?goal=&limit=
func (h *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 100")
			return
		}
		limit = v
	}

	list, err := h.service.Suggestions(r.Context(), r.URL.Query().Get("goal"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load suggestions")
		return
	}
	writeJSON(w, http.StatusOK, foods.FoodsResponse{Foods: foods.ToDTOs(list)})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", strings.TrimPrefix(err.Error(), "validation failed: "))
	case errors.Is(err, ErrNoCompatibleFoods):
		writeError(w, http.StatusUnprocessableEntity, "no_compatible_foods", "No foods match the selected diet and exclusions")
	case errors.Is(err, ErrNoTargets):
		writeError(w, http.StatusUnprocessableEntity, "no_targets", "Provide targets or create a nutrition sheet for the client")
	case errors.Is(err, clients.ErrNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", "Client not found")
	case errors.Is(err, mealplans.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "plan_not_found", "Meal plan not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate meal plan")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
