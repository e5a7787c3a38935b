package foods

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fdg312/coach-hub/internal/storage"
)

// Handler handles HTTP requests for the food catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a new food catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleList handles GET /v1/foods?q=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list foods")
		return
	}
	writeJSON(w, http.StatusOK, FoodsResponse{Foods: ToDTOs(list)})
}

// HandleSearch handles GET /v1/foods/search?q=&category=&min_protein=&max_kcal=&min_fiber=&diet=&limit=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.FoodSearchFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Diet:     q.Get("diet"),
	}

	var err error
	if filter.MinProtein, err = optionalFloat(q.Get("min_protein")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "min_protein must be a number")
		return
	}
	if filter.MaxKcal, err = optionalFloat(q.Get("max_kcal")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "max_kcal must be a number")
		return
	}
	if filter.MinFiber, err = optionalFloat(q.Get("min_fiber")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "min_fiber must be a number")
		return
	}
	if filter.Limit, err = optionalInt(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
		return
	}

	list, err := h.service.Search(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to search foods")
		return
	}
	writeJSON(w, http.StatusOK, FoodsResponse{Foods: ToDTOs(list)})
}

// HandleTop handles GET /v1/foods/top?metric=&limit=&exclude=
func (h *Handler) HandleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		metric = storage.MetricProtein
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
		return
	}

	list, err := h.service.Top(r.Context(), metric, limit, splitList(q.Get("exclude")))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidMetric) {
			writeError(w, http.StatusBadRequest, "invalid_metric", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to rank foods")
		return
	}
	writeJSON(w, http.StatusOK, FoodsResponse{Foods: ToDTOs(list)})
}

// HandleByCategories handles GET /v1/foods/by-category?categories=
func (h *Handler) HandleByCategories(w http.ResponseWriter, r *http.Request) {
	categories := splitList(r.URL.Query().Get("categories"))
	if len(categories) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "categories is required")
		return
	}

	grouped, err := h.service.ByCategories(r.Context(), categories)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list foods")
		return
	}

	resp := make(map[string][]FoodDTO, len(grouped))
	for c, list := range grouped {
		resp[c] = ToDTOs(list)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": resp})
}

// HandleGet handles GET /v1/foods/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get food")
		return
	}
	writeJSON(w, http.StatusOK, ToDTO(f))
}

// HandleCreate handles POST /v1/foods
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req FoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	f, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "Failed to create food")
		return
	}
	writeJSON(w, http.StatusCreated, ToDTO(f))
}

// HandleUpdate handles PUT /v1/foods/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req FoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	f, err := h.service.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "Failed to update food")
		return
	}
	writeJSON(w, http.StatusOK, ToDTO(f))
}

// HandleDelete handles DELETE /v1/foods/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "Failed to delete food")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListPortions handles GET /v1/foods/{id}/portions
func (h *Handler) HandleListPortions(w http.ResponseWriter, r *http.Request) {
	portions, err := h.service.Portions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "Failed to list portions")
		return
	}

	dtos := make([]PortionDTO, 0, len(portions))
	for _, p := range portions {
		dtos = append(dtos, toPortionDTO(p))
	}
	writeJSON(w, http.StatusOK, PortionsResponse{Portions: dtos})
}

// HandleAddPortion handles POST /v1/foods/{id}/portions
func (h *Handler) HandleAddPortion(w http.ResponseWriter, r *http.Request) {
	var req PortionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	p, err := h.service.AddPortion(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "Failed to add portion")
		return
	}
	writeJSON(w, http.StatusCreated, toPortionDTO(p))
}

// HandleDeletePortion handles DELETE /v1/portions/{id}
func (h *Handler) HandleDeletePortion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePortion(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "Failed to delete portion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	errMsg := err.Error()
	switch {
	case strings.HasPrefix(errMsg, "validation failed: "):
		writeError(w, http.StatusBadRequest, "validation_error", strings.TrimPrefix(errMsg, "validation failed: "))
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "food_not_found", "Food not found")
	case errors.Is(err, ErrPortionNotFound):
		writeError(w, http.StatusNotFound, "portion_not_found", "Portion not found")
	case errors.Is(err, ErrDuplicateName):
		writeError(w, http.StatusConflict, "duplicate_name", "A food with this name already exists")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func optionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
