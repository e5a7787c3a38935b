package nutrition

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for nutrition targets and sheets.
type Handler struct {
	service *Service
}

// NewHandler creates a new nutrition handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandlePreview handles POST /v1/nutrition/targets/preview
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var in TargetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	targets, err := h.service.Preview(in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{Targets: targets})
}

// HandleCalculate handles POST /v1/nutrition/sheets
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}
	if req.ClientID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "client_id is required")
		return
	}

	sheet, err := h.service.Calculate(r.Context(), req.ClientID, req.TargetInput)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sheet)
}

// HandleLatest handles GET /v1/nutrition/sheets/latest?client_id=
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	sheet, err := h.service.Latest(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sheet)
}

// HandleHistory handles GET /v1/nutrition/sheets?client_id=&limit=
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseClientID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	sheets, err := h.service.History(r.Context(), clientID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SheetsResponse{Sheets: sheets})
}

func parseClientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("client_id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "client_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid client_id format")
		return uuid.Nil, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, clients.ErrNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", "Client not found")
	case errors.Is(err, ErrSheetNotFound):
		writeError(w, http.StatusNotFound, "sheet_not_found", "No nutrition sheet for this client")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to process nutrition sheet")
	}
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
