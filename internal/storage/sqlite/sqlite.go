// Package sqlite stores coach data in an embedded SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStorage: SQLite реализация Storage и под-хранилищ
type SQLiteStorage struct {
	db       *gorm.DB
	foods    *foodCatalogStorage
	sheets   *nutritionSheetsStorage
	profiles *nutritionProfilesStorage
	plans    *mealPlansStorage
	exports  *SQLiteExportsStorage
}

// New открывает файл базы (":memory:" если путь пустой) и мигрирует схему
func New(path string) (*SQLiteStorage, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if path == ":memory:" {
		// каждое соединение получило бы свою пустую базу
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(
		&clientModel{},
		&foodModel{},
		&portionModel{},
		&sheetModel{},
		&profileModel{},
		&planModel{},
		&mealModel{},
		&itemModel{},
		&exportModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return &SQLiteStorage{
		db:       db,
		foods:    &foodCatalogStorage{db: db},
		sheets:   &nutritionSheetsStorage{db: db},
		profiles: &nutritionProfilesStorage{db: db},
		plans:    &mealPlansStorage{db: db},
		exports:  &SQLiteExportsStorage{db: db},
	}, nil
}

func (s *SQLiteStorage) ListClients(ctx context.Context, ownerUserID string) ([]storage.Client, error) {
	var models []clientModel
	err := s.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("lower(last_name), lower(first_name)").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	clients := make([]storage.Client, 0, len(models))
	for _, m := range models {
		clients = append(clients, clientFromModel(m))
	}
	return clients, nil
}

func (s *SQLiteStorage) GetClient(ctx context.Context, id uuid.UUID) (*storage.Client, error) {
	var m clientModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	c := clientFromModel(m)
	return &c, nil
}

func (s *SQLiteStorage) CreateClient(ctx context.Context, client *storage.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	m := clientToModel(*client)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpdateClient(ctx context.Context, client *storage.Client) error {
	var existing clientModel
	err := s.db.WithContext(ctx).First(&existing, "id = ?", client.ID.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get client: %w", err)
	}

	client.OwnerUserID = existing.OwnerUserID
	client.CreatedAt = existing.CreatedAt
	client.UpdatedAt = time.Now().UTC()

	m := clientToModel(*client)
	if err := s.db.WithContext(ctx).Save(&m).Error; err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

// DeleteClient удаляет клиента, его карточки и профиль; планы и экспорты отвязываются
func (s *SQLiteStorage) DeleteClient(ctx context.Context, id uuid.UUID) error {
	cid := id.String()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&clientModel{}, "id = ?", cid)
		if result.Error != nil {
			return fmt.Errorf("failed to delete client: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return storage.ErrNotFound
		}

		if err := tx.Delete(&sheetModel{}, "client_id = ?", cid).Error; err != nil {
			return fmt.Errorf("failed to delete nutrition sheets: %w", err)
		}
		if err := tx.Delete(&profileModel{}, "client_id = ?", cid).Error; err != nil {
			return fmt.Errorf("failed to delete nutrition profile: %w", err)
		}
		if err := tx.Model(&planModel{}).Where("client_id = ?", cid).Update("client_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach meal plans: %w", err)
		}
		if err := tx.Model(&exportModel{}).Where("client_id = ?", cid).Update("client_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach exports: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetFoodCatalogStorage returns the food catalog storage
func (s *SQLiteStorage) GetFoodCatalogStorage() storage.FoodCatalogStorage {
	return s.foods
}

// GetNutritionSheetsStorage returns nutrition sheets storage
func (s *SQLiteStorage) GetNutritionSheetsStorage() storage.NutritionSheetsStorage {
	return s.sheets
}

// GetNutritionProfilesStorage returns nutrition profiles storage
func (s *SQLiteStorage) GetNutritionProfilesStorage() storage.NutritionProfilesStorage {
	return s.profiles
}

// GetMealPlansStorage returns meal plans storage
func (s *SQLiteStorage) GetMealPlansStorage() storage.MealPlansStorage {
	return s.plans
}

// GetExportsStorage returns the exports storage
func (s *SQLiteStorage) GetExportsStorage() *SQLiteExportsStorage {
	return s.exports
}

func clientToModel(c storage.Client) clientModel {
	return clientModel{
		ID:          c.ID.String(),
		OwnerUserID: c.OwnerUserID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		BirthDate:   c.BirthDate,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func clientFromModel(m clientModel) storage.Client {
	id, _ := uuid.Parse(m.ID)
	return storage.Client{
		ID:          id,
		OwnerUserID: m.OwnerUserID,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Email:       m.Email,
		BirthDate:   m.BirthDate,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
