package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type nutritionSheetsStorage struct {
	db *gorm.DB
}

func (s *nutritionSheetsStorage) InsertSheet(ctx context.Context, sheet *storage.NutritionSheet) error {
	sheet.ID = uuid.New()
	sheet.CreatedAt = time.Now().UTC()

	m := sheetModel{
		ID:              sheet.ID.String(),
		ClientID:        sheet.ClientID.String(),
		CreatedAt:       sheet.CreatedAt,
		WeightKg:        sheet.WeightKg,
		Goal:            sheet.Goal,
		ProteinPerKg:    sheet.ProteinPerKg,
		CarbRatio:       sheet.CarbRatio,
		MaintenanceKcal: sheet.MaintenanceKcal,
		ObjectiveKcal:   sheet.ObjectiveKcal,
		ProteinG:        sheet.ProteinG,
		CarbsG:          sheet.CarbsG,
		FatG:            sheet.FatG,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to insert nutrition sheet: %w", err)
	}
	return nil
}

func (s *nutritionSheetsStorage) GetSheet(ctx context.Context, id uuid.UUID) (*storage.NutritionSheet, error) {
	var m sheetModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition sheet: %w", err)
	}
	sheet := sheetFromModel(m)
	return &sheet, nil
}

func (s *nutritionSheetsStorage) GetLatestSheet(ctx context.Context, clientID uuid.UUID) (*storage.NutritionSheet, error) {
	list, err := s.ListSheets(ctx, clientID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListSheets: при равном created_at побеждает более поздняя вставка (rowid)
func (s *nutritionSheetsStorage) ListSheets(ctx context.Context, clientID uuid.UUID, limit int) ([]storage.NutritionSheet, error) {
	db := s.db.WithContext(ctx).
		Where("client_id = ?", clientID.String()).
		Order("created_at DESC").Order("rowid DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var models []sheetModel
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list nutrition sheets: %w", err)
	}

	sheets := make([]storage.NutritionSheet, 0, len(models))
	for _, m := range models {
		sheets = append(sheets, sheetFromModel(m))
	}
	return sheets, nil
}

func sheetFromModel(m sheetModel) storage.NutritionSheet {
	id, _ := uuid.Parse(m.ID)
	clientID, _ := uuid.Parse(m.ClientID)
	return storage.NutritionSheet{
		ID:              id,
		ClientID:        clientID,
		CreatedAt:       m.CreatedAt,
		WeightKg:        m.WeightKg,
		Goal:            m.Goal,
		ProteinPerKg:    m.ProteinPerKg,
		CarbRatio:       m.CarbRatio,
		MaintenanceKcal: m.MaintenanceKcal,
		ObjectiveKcal:   m.ObjectiveKcal,
		ProteinG:        m.ProteinG,
		CarbsG:          m.CarbsG,
		FatG:            m.FatG,
	}
}

type nutritionProfilesStorage struct {
	db *gorm.DB
}

func (s *nutritionProfilesStorage) GetProfileByClient(ctx context.Context, clientID uuid.UUID) (*storage.NutritionProfile, error) {
	var m profileModel
	err := s.db.WithContext(ctx).First(&m, "client_id = ?", clientID.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition profile: %w", err)
	}
	p := profileFromModel(m)
	return &p, nil
}

func (s *nutritionProfilesStorage) UpsertProfile(ctx context.Context, p *storage.NutritionProfile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var existing profileModel
		err := tx.First(&existing, "client_id = ?", p.ClientID.String()).Error
		switch {
		case err == nil:
			p.ID, _ = uuid.Parse(existing.ID)
			p.CreatedAt = existing.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			p.CreatedAt = now
		default:
			return fmt.Errorf("failed to get nutrition profile: %w", err)
		}
		p.UpdatedAt = now

		m := profileToModel(*p)
		if err := tx.Save(&m).Error; err != nil {
			return fmt.Errorf("failed to upsert nutrition profile: %w", err)
		}
		return nil
	})
}

func (s *nutritionProfilesStorage) DeleteProfile(ctx context.Context, clientID uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&profileModel{}, "client_id = ?", clientID.String())
	if result.Error != nil {
		return fmt.Errorf("failed to delete nutrition profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func profileToModel(p storage.NutritionProfile) profileModel {
	return profileModel{
		ID:               p.ID.String(),
		ClientID:         p.ClientID.String(),
		Age:              p.Age,
		Sex:              p.Sex,
		WeightKg:         p.WeightKg,
		HeightCm:         p.HeightCm,
		Goal:             p.Goal,
		ActivityLevel:    p.ActivityLevel,
		Restrictions:     StringSlice(p.Restrictions),
		CompatibleDiets:  StringSlice(p.CompatibleDiets),
		PreferredFoodIDs: StringSlice(p.PreferredFoodIDs),
		ExcludedFoodIDs:  StringSlice(p.ExcludedFoodIDs),
		MealsPerDay:      p.MealsPerDay,
		BMR:              p.BMR,
		CalorieNeeds:     p.CalorieNeeds,
		ProteinG:         p.Macros.ProteinG,
		CarbsG:           p.Macros.CarbsG,
		FatG:             p.Macros.FatG,
		ProteinPct:       p.Macros.ProteinPct,
		CarbsPct:         p.Macros.CarbsPct,
		FatPct:           p.Macros.FatPct,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func profileFromModel(m profileModel) storage.NutritionProfile {
	id, _ := uuid.Parse(m.ID)
	clientID, _ := uuid.Parse(m.ClientID)
	return storage.NutritionProfile{
		ID:               id,
		ClientID:         clientID,
		Age:              m.Age,
		Sex:              m.Sex,
		WeightKg:         m.WeightKg,
		HeightCm:         m.HeightCm,
		Goal:             m.Goal,
		ActivityLevel:    m.ActivityLevel,
		Restrictions:     []string(m.Restrictions),
		CompatibleDiets:  []string(m.CompatibleDiets),
		PreferredFoodIDs: []string(m.PreferredFoodIDs),
		ExcludedFoodIDs:  []string(m.ExcludedFoodIDs),
		MealsPerDay:      m.MealsPerDay,
		BMR:              m.BMR,
		CalorieNeeds:     m.CalorieNeeds,
		Macros: storage.MacroBreakdown{
			ProteinG:   m.ProteinG,
			CarbsG:     m.CarbsG,
			FatG:       m.FatG,
			ProteinPct: m.ProteinPct,
			CarbsPct:   m.CarbsPct,
			FatPct:     m.FatPct,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
