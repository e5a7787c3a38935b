package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

type sheetEntry struct {
	sheet storage.NutritionSheet
	seq   int64
}

type nutritionSheetsStorage struct {
	mu     sync.RWMutex
	sheets map[uuid.UUID]sheetEntry
	seq    int64
}

func newNutritionSheetsStorage() *nutritionSheetsStorage {
	return &nutritionSheetsStorage{
		sheets: make(map[uuid.UUID]sheetEntry),
	}
}

func (s *nutritionSheetsStorage) InsertSheet(ctx context.Context, sheet *storage.NutritionSheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet.ID = uuid.New()
	sheet.CreatedAt = time.Now().UTC()
	s.seq++
	s.sheets[sheet.ID] = sheetEntry{sheet: *sheet, seq: s.seq}

	return nil
}

func (s *nutritionSheetsStorage) GetSheet(ctx context.Context, id uuid.UUID) (*storage.NutritionSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sheets[id]
	if !ok {
		return nil, nil
	}
	sheet := e.sheet
	return &sheet, nil
}

func (s *nutritionSheetsStorage) GetLatestSheet(ctx context.Context, clientID uuid.UUID) (*storage.NutritionSheet, error) {
	list := s.byClient(clientID)
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (s *nutritionSheetsStorage) ListSheets(ctx context.Context, clientID uuid.UUID, limit int) ([]storage.NutritionSheet, error) {
	list := s.byClient(clientID)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// byClient возвращает карточки клиента, новые первыми; при равном времени побеждает последняя вставка
func (s *nutritionSheetsStorage) byClient(clientID uuid.UUID) []storage.NutritionSheet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]sheetEntry, 0)
	for _, e := range s.sheets {
		if e.sheet.ClientID == clientID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].sheet.CreatedAt.Equal(entries[j].sheet.CreatedAt) {
			return entries[i].sheet.CreatedAt.After(entries[j].sheet.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	out := make([]storage.NutritionSheet, len(entries))
	for i, e := range entries {
		out[i] = e.sheet
	}
	return out
}

func (s *nutritionSheetsStorage) deleteByClient(clientID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.sheets {
		if e.sheet.ClientID == clientID {
			delete(s.sheets, id)
		}
	}
}

type nutritionProfilesStorage struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]storage.NutritionProfile // key: client_id
}

func newNutritionProfilesStorage() *nutritionProfilesStorage {
	return &nutritionProfilesStorage{
		profiles: make(map[uuid.UUID]storage.NutritionProfile),
	}
}

func (s *nutritionProfilesStorage) GetProfileByClient(ctx context.Context, clientID uuid.UUID) (*storage.NutritionProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[clientID]
	if !ok {
		return nil, nil
	}
	out := cloneProfile(p)
	return &out, nil
}

func (s *nutritionProfilesStorage) UpsertProfile(ctx context.Context, profile *storage.NutritionProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.profiles[profile.ClientID]; ok {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	} else {
		if profile.ID == uuid.Nil {
			profile.ID = uuid.New()
		}
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	s.profiles[profile.ClientID] = cloneProfile(*profile)
	return nil
}

func (s *nutritionProfilesStorage) DeleteProfile(ctx context.Context, clientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[clientID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.profiles, clientID)
	return nil
}

func (s *nutritionProfilesStorage) deleteByClient(clientID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, clientID)
}

func cloneProfile(p storage.NutritionProfile) storage.NutritionProfile {
	p.Restrictions = slices.Clone(p.Restrictions)
	p.CompatibleDiets = slices.Clone(p.CompatibleDiets)
	p.PreferredFoodIDs = slices.Clone(p.PreferredFoodIDs)
	p.ExcludedFoodIDs = slices.Clone(p.ExcludedFoodIDs)
	return p
}
