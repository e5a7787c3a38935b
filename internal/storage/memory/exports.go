package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

// ExportsMemoryStorage: in-memory storage для экспортов (данные хранятся вместе с метаданными)
type ExportsMemoryStorage struct {
	mu      sync.RWMutex
	exports map[uuid.UUID]*storage.ExportMeta
}

// NewExportsMemoryStorage создаёт новое in-memory хранилище
func NewExportsMemoryStorage() *ExportsMemoryStorage {
	return &ExportsMemoryStorage{
		exports: make(map[uuid.UUID]*storage.ExportMeta),
	}
}

// CreateExport создаёт новый экспорт
func (s *ExportsMemoryStorage) CreateExport(ctx context.Context, export *storage.ExportMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}

	now := time.Now().UTC()
	if export.CreatedAt.IsZero() {
		export.CreatedAt = now
	}
	export.UpdatedAt = now

	stored := *export
	s.exports[export.ID] = &stored
	return nil
}

// GetExport возвращает экспорт по ID
func (s *ExportsMemoryStorage) GetExport(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	export, exists := s.exports[id]
	if !exists {
		return nil, nil
	}

	out := *export
	return &out, nil
}

// ListExports возвращает список экспортов с пагинацией
func (s *ExportsMemoryStorage) ListExports(ctx context.Context, ownerUserID string, clientID *uuid.UUID, limit, offset int) ([]storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]storage.ExportMeta, 0)
	for _, e := range s.exports {
		if e.OwnerUserID != ownerUserID {
			continue
		}
		if clientID != nil && (e.ClientID == nil || *e.ClientID != *clientID) {
			continue
		}
		meta := *e
		meta.Data = nil
		filtered = append(filtered, meta)
	}

	// Сортируем по created_at DESC
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	// Применяем пагинацию
	start := offset
	if start > len(filtered) {
		return []storage.ExportMeta{}, nil
	}

	end := len(filtered)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	return filtered[start:end], nil
}

// ListExpiredExports возвращает экспорты, созданные раньше before
func (s *ExportsMemoryStorage) ListExpiredExports(ctx context.Context, before time.Time) ([]storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.ExportMeta, 0)
	for _, e := range s.exports {
		if e.CreatedAt.Before(before) {
			meta := *e
			meta.Data = nil
			out = append(out, meta)
		}
	}
	return out, nil
}

// DeleteExport удаляет экспорт
func (s *ExportsMemoryStorage) DeleteExport(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.exports[id]; !exists {
		return storage.ErrNotFound
	}

	delete(s.exports, id)
	return nil
}

func (s *ExportsMemoryStorage) detachClient(clientID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.exports {
		if e.ClientID != nil && *e.ClientID == clientID {
			e.ClientID = nil
		}
	}
}
