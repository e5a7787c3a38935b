package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
)

// MemoryStorage: in-memory реализация Storage и всех под-хранилищ
type MemoryStorage struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]storage.Client
	foods    *foodCatalogStorage
	sheets   *nutritionSheetsStorage
	profiles *nutritionProfilesStorage
	plans    *mealPlansStorage
	exports  *ExportsMemoryStorage
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	return &MemoryStorage{
		clients:  make(map[uuid.UUID]storage.Client),
		foods:    newFoodCatalogStorage(),
		sheets:   newNutritionSheetsStorage(),
		profiles: newNutritionProfilesStorage(),
		plans:    newMealPlansStorage(),
		exports:  NewExportsMemoryStorage(),
	}
}

func (m *MemoryStorage) ListClients(ctx context.Context, ownerUserID string) ([]storage.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := make([]storage.Client, 0)
	for _, c := range m.clients {
		if c.OwnerUserID == ownerUserID {
			clients = append(clients, c)
		}
	}

	sort.Slice(clients, func(i, j int) bool {
		li, lj := strings.ToLower(clients[i].LastName), strings.ToLower(clients[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(clients[i].FirstName) < strings.ToLower(clients[j].FirstName)
	})

	return clients, nil
}

func (m *MemoryStorage) GetClient(ctx context.Context, id uuid.UUID) (*storage.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}

	return &c, nil
}

func (m *MemoryStorage) CreateClient(ctx context.Context, client *storage.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	m.clients[client.ID] = *client

	return nil
}

func (m *MemoryStorage) UpdateClient(ctx context.Context, client *storage.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.clients[client.ID]
	if !ok {
		return storage.ErrNotFound
	}

	client.OwnerUserID = existing.OwnerUserID
	client.CreatedAt = existing.CreatedAt
	client.UpdatedAt = time.Now().UTC()
	m.clients[client.ID] = *client

	return nil
}

// DeleteClient удаляет клиента, его карточки и профиль; планы и экспорты отвязываются
func (m *MemoryStorage) DeleteClient(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	if _, ok := m.clients[id]; !ok {
		m.mu.Unlock()
		return storage.ErrNotFound
	}
	delete(m.clients, id)
	m.mu.Unlock()

	m.sheets.deleteByClient(id)
	m.profiles.deleteByClient(id)
	m.plans.detachClient(id.String())
	m.exports.detachClient(id)

	return nil
}

func (m *MemoryStorage) Close() error {
	// no-op для memory
	return nil
}

// GetFoodCatalogStorage returns the food catalog storage
func (m *MemoryStorage) GetFoodCatalogStorage() storage.FoodCatalogStorage {
	return m.foods
}

// GetNutritionSheetsStorage returns nutrition sheets storage
func (m *MemoryStorage) GetNutritionSheetsStorage() storage.NutritionSheetsStorage {
	return m.sheets
}

// GetNutritionProfilesStorage returns nutrition profiles storage
func (m *MemoryStorage) GetNutritionProfilesStorage() storage.NutritionProfilesStorage {
	return m.profiles
}

// GetMealPlansStorage returns meal plans storage
func (m *MemoryStorage) GetMealPlansStorage() storage.MealPlansStorage {
	return m.plans
}

// GetExportsStorage returns the exports storage
func (m *MemoryStorage) GetExportsStorage() *ExportsMemoryStorage {
	return m.exports
}
