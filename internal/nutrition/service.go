package nutrition

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

// ErrSheetNotFound is returned when a client has no nutrition sheet yet.
var ErrSheetNotFound = errors.New("nutrition sheet not found")

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Service handles nutrition sheet business logic.
type Service struct {
	clients clients.Lookup
	sheets  storage.NutritionSheetsStorage
}

// NewService creates a new nutrition service.
func NewService(lookup clients.Lookup, sheets storage.NutritionSheetsStorage) *Service {
	return &Service{
		clients: lookup,
		sheets:  sheets,
	}
}

// Preview computes targets without persisting anything.
func (s *Service) Preview(in TargetInput) (Targets, error) {
	return CalculateTargets(in)
}

// Calculate computes targets for a client and appends a new sheet.
// Existing sheets are never updated.
func (s *Service) Calculate(ctx context.Context, clientID uuid.UUID, in TargetInput) (SheetDTO, error) {
	if _, err := clients.EnsureOwned(ctx, s.clients, clientID); err != nil {
		return SheetDTO{}, err
	}

	targets, err := CalculateTargets(in)
	if err != nil {
		return SheetDTO{}, err
	}

	sheet := &storage.NutritionSheet{
		ClientID:        clientID,
		WeightKg:        in.WeightKg,
		Goal:            in.Goal,
		ProteinPerKg:    targets.ProteinPerKg,
		CarbRatio:       targets.CarbRatio,
		MaintenanceKcal: targets.MaintenanceKcal,
		ObjectiveKcal:   targets.ObjectiveKcal,
		ProteinG:        targets.ProteinG,
		CarbsG:          targets.CarbsG,
		FatG:            targets.FatG,
	}
	if err := s.sheets.InsertSheet(ctx, sheet); err != nil {
		return SheetDTO{}, fmt.Errorf("failed to insert nutrition sheet: %w", err)
	}

	return toSheetDTO(*sheet), nil
}

// Latest returns the most recent sheet of a client.
func (s *Service) Latest(ctx context.Context, clientID uuid.UUID) (SheetDTO, error) {
	if _, err := clients.EnsureOwned(ctx, s.clients, clientID); err != nil {
		return SheetDTO{}, err
	}

	sheet, err := s.sheets.GetLatestSheet(ctx, clientID)
	if err != nil {
		return SheetDTO{}, fmt.Errorf("failed to get latest nutrition sheet: %w", err)
	}
	if sheet == nil {
		return SheetDTO{}, ErrSheetNotFound
	}
	return toSheetDTO(*sheet), nil
}

// Get returns a sheet by id if its client belongs to the caller.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (SheetDTO, error) {
	sheet, err := s.sheets.GetSheet(ctx, id)
	if err != nil {
		return SheetDTO{}, fmt.Errorf("failed to get nutrition sheet: %w", err)
	}
	if sheet == nil {
		return SheetDTO{}, ErrSheetNotFound
	}
	if _, err := clients.EnsureOwned(ctx, s.clients, sheet.ClientID); err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return SheetDTO{}, ErrSheetNotFound
		}
		return SheetDTO{}, err
	}
	return toSheetDTO(*sheet), nil
}

// History returns the sheets of a client, newest first.
func (s *Service) History(ctx context.Context, clientID uuid.UUID, limit int) ([]SheetDTO, error) {
	if _, err := clients.EnsureOwned(ctx, s.clients, clientID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	sheets, err := s.sheets.ListSheets(ctx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list nutrition sheets: %w", err)
	}

	dtos := make([]SheetDTO, 0, len(sheets))
	for _, sh := range sheets {
		dtos = append(dtos, toSheetDTO(sh))
	}
	return dtos, nil
}
