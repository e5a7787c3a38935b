package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("profile not found")
	ErrFoodNotFound = errors.New("food not found")
)

// Значения по умолчанию для нового профиля
const (
	DefaultAge         = 30
	DefaultSex         = "M"
	DefaultWeightKg    = 70.0
	DefaultHeightCm    = 175.0
	DefaultMealsPerDay = 3
)

// FoodLookup находит продукт справочника
type FoodLookup interface {
	GetFood(ctx context.Context, id string) (*storage.Food, error)
}

// Service содержит бизнес-логику профилей питания
type Service struct {
	clients  clients.Lookup
	profiles storage.NutritionProfilesStorage
	foods    FoodLookup
}

// NewService создаёт новый сервис
func NewService(lookup clients.Lookup, profiles storage.NutritionProfilesStorage, foods FoodLookup) *Service {
	return &Service{clients: lookup, profiles: profiles, foods: foods}
}

// Get возвращает профиль клиента
func (s *Service) Get(ctx context.Context, clientID uuid.UUID) (ProfileDTO, error) {
	p, err := s.load(ctx, clientID)
	if err != nil {
		return ProfileDTO{}, err
	}
	return toDTO(*p), nil
}

// Upsert создаёт или обновляет профиль и пересчитывает производные значения
func (s *Service) Upsert(ctx context.Context, clientID uuid.UUID, req UpsertProfileRequest) (ProfileDTO, error) {
	if err := req.Validate(); err != nil {
		return ProfileDTO{}, err
	}
	if _, err := clients.EnsureOwned(ctx, s.clients, clientID); err != nil {
		return ProfileDTO{}, err
	}

	p, err := s.profiles.GetProfileByClient(ctx, clientID)
	if err != nil {
		return ProfileDTO{}, fmt.Errorf("failed to get nutrition profile: %w", err)
	}
	if p == nil {
		p = &storage.NutritionProfile{
			ClientID:      clientID,
			Age:           DefaultAge,
			Sex:           DefaultSex,
			WeightKg:      DefaultWeightKg,
			HeightCm:      DefaultHeightCm,
			Goal:          GoalMaintenance,
			ActivityLevel: ActivityModerate,
			MealsPerDay:   DefaultMealsPerDay,
		}
	}

	merge(p, req)
	recompute(p, time.Now().UTC())

	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return ProfileDTO{}, fmt.Errorf("failed to upsert nutrition profile: %w", err)
	}
	return toDTO(*p), nil
}

// Delete удаляет профиль клиента
func (s *Service) Delete(ctx context.Context, clientID uuid.UUID) error {
	if _, err := clients.EnsureOwned(ctx, s.clients, clientID); err != nil {
		return err
	}
	if err := s.profiles.DeleteProfile(ctx, clientID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete nutrition profile: %w", err)
	}
	return nil
}

// Hydration возвращает рекомендацию по воде для профиля клиента
func (s *Service) Hydration(ctx context.Context, clientID uuid.UUID) (Hydration, error) {
	p, err := s.load(ctx, clientID)
	if err != nil {
		return Hydration{}, err
	}
	return HydrationFor(p.WeightKg, p.ActivityLevel), nil
}

// Compatibility проверяет, подходит ли продукт профилю клиента
func (s *Service) Compatibility(ctx context.Context, clientID uuid.UUID, foodID string) (CompatibilityResponse, error) {
	p, err := s.load(ctx, clientID)
	if err != nil {
		return CompatibilityResponse{}, err
	}

	if s.foods != nil {
		food, err := s.foods.GetFood(ctx, foodID)
		if err != nil {
			return CompatibilityResponse{}, fmt.Errorf("failed to get food: %w", err)
		}
		if food == nil {
			return CompatibilityResponse{}, ErrFoodNotFound
		}
	}

	return CompatibilityResponse{
		FoodID:     foodID,
		Compatible: IsCompatibleWithFood(p.ExcludedFoodIDs, foodID),
	}, nil
}

func (s *Service) load(ctx context.Context, clientID uuid.UUID) (*storage.NutritionProfile, error) {
	if _, err := clients.EnsureOwned(ctx, s.clients, clientID); err != nil {
		return nil, err
	}
	p, err := s.profiles.GetProfileByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition profile: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func merge(p *storage.NutritionProfile, req UpsertProfileRequest) {
	if req.Age != nil {
		p.Age = *req.Age
	}
	if req.Sex != nil {
		p.Sex = *req.Sex
	}
	if req.WeightKg != nil {
		p.WeightKg = *req.WeightKg
	}
	if req.HeightCm != nil {
		p.HeightCm = *req.HeightCm
	}
	if req.Goal != nil {
		p.Goal = *req.Goal
	}
	if req.ActivityLevel != nil {
		p.ActivityLevel = *req.ActivityLevel
	}
	if req.Restrictions != nil {
		p.Restrictions = req.Restrictions
	}
	if req.CompatibleDiets != nil {
		p.CompatibleDiets = req.CompatibleDiets
	}
	if req.PreferredFoodIDs != nil {
		p.PreferredFoodIDs = req.PreferredFoodIDs
	}
	if req.ExcludedFoodIDs != nil {
		p.ExcludedFoodIDs = req.ExcludedFoodIDs
	}
	if req.MealsPerDay != nil {
		p.MealsPerDay = *req.MealsPerDay
	}
}

// recompute refreshes every derived field at once, then the update time.
func recompute(p *storage.NutritionProfile, now time.Time) {
	d := Derive(ProfileInput{
		Age:           p.Age,
		Sex:           p.Sex,
		WeightKg:      p.WeightKg,
		HeightCm:      p.HeightCm,
		Goal:          p.Goal,
		ActivityLevel: p.ActivityLevel,
	})
	p.BMR = d.BMR
	p.CalorieNeeds = d.CalorieNeeds
	p.Macros = storage.MacroBreakdown{
		ProteinG:   d.Macros.ProteinG,
		CarbsG:     d.Macros.CarbsG,
		FatG:       d.Macros.FatG,
		ProteinPct: d.Macros.ProteinPct,
		CarbsPct:   d.Macros.CarbsPct,
		FatPct:     d.Macros.FatPct,
	}
	p.UpdatedAt = now
}
