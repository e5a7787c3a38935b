package nutrition

import (
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

// SheetDTO represents a stored nutrition sheet.
type SheetDTO struct {
	ID              uuid.UUID `json:"id"`
	ClientID        uuid.UUID `json:"client_id"`
	CreatedAt       time.Time `json:"created_at"`
	WeightKg        float64   `json:"weight_kg"`
	Goal            string    `json:"goal"`
	ProteinPerKg    float64   `json:"protein_per_kg"`
	CarbRatio       float64   `json:"carb_ratio"`
	MaintenanceKcal int       `json:"maintenance_kcal"`
	ObjectiveKcal   int       `json:"objective_kcal"`
	ProteinG        int       `json:"protein_g"`
	CarbsG          int       `json:"carbs_g"`
	FatG            int       `json:"fat_g"`
}

// CalculateSheetRequest is the request body for POST /v1/nutrition/sheets.
type CalculateSheetRequest struct {
	ClientID uuid.UUID `json:"client_id"`
	TargetInput
}

// SheetsResponse is the response for GET /v1/nutrition/sheets.
type SheetsResponse struct {
	Sheets []SheetDTO `json:"sheets"`
}

// PreviewResponse is the response for POST /v1/nutrition/targets/preview.
type PreviewResponse struct {
	Targets Targets `json:"targets"`
}

func toSheetDTO(s storage.NutritionSheet) SheetDTO {
	return SheetDTO{
		ID:              s.ID,
		ClientID:        s.ClientID,
		CreatedAt:       s.CreatedAt,
		WeightKg:        s.WeightKg,
		Goal:            s.Goal,
		ProteinPerKg:    s.ProteinPerKg,
		CarbRatio:       s.CarbRatio,
		MaintenanceKcal: s.MaintenanceKcal,
		ObjectiveKcal:   s.ObjectiveKcal,
		ProteinG:        s.ProteinG,
		CarbsG:          s.CarbsG,
		FatG:            s.FatG,
	}
}
