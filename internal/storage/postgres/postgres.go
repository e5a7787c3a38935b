package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage: Postgres реализация Storage и под-хранилищ
type PostgresStorage struct {
	pool     *pgxpool.Pool
	foods    *foodCatalogStorage
	sheets   *nutritionSheetsStorage
	profiles *nutritionProfilesStorage
	plans    *mealPlansStorage
	exports  *PostgresExportsStorage
}

// New создаёт PostgresStorage и проверяет соединение
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:     pool,
		foods:    newFoodCatalogStorage(pool),
		sheets:   newNutritionSheetsStorage(pool),
		profiles: newNutritionProfilesStorage(pool),
		plans:    newMealPlansStorage(pool),
		exports:  NewPostgresExportsStorage(pool),
	}, nil
}

const clientColumns = `id, owner_user_id, first_name, last_name, email, to_char(birth_date, 'YYYY-MM-DD'), created_at, updated_at`

func scanClient(row pgx.Row) (storage.Client, error) {
	var c storage.Client
	err := row.Scan(
		&c.ID,
		&c.OwnerUserID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.BirthDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func (p *PostgresStorage) ListClients(ctx context.Context, ownerUserID string) ([]storage.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE owner_user_id = $1
		ORDER BY lower(last_name), lower(first_name)
	`

	rows, err := p.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []storage.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}

	return clients, rows.Err()
}

func (p *PostgresStorage) GetClient(ctx context.Context, id uuid.UUID) (*storage.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	c, err := scanClient(p.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return &c, nil
}

func (p *PostgresStorage) CreateClient(ctx context.Context, client *storage.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	query := `
		INSERT INTO clients (id, owner_user_id, first_name, last_name, email, birth_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::text::date, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := p.pool.QueryRow(ctx, query,
		client.ID,
		client.OwnerUserID,
		client.FirstName,
		client.LastName,
		client.Email,
		client.BirthDate,
	).Scan(&client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

func (p *PostgresStorage) UpdateClient(ctx context.Context, client *storage.Client) error {
	query := `
		UPDATE clients
		SET first_name = $2, last_name = $3, email = $4, birth_date = $5::text::date, updated_at = NOW()
		WHERE id = $1
		RETURNING owner_user_id, created_at, updated_at
	`

	err := p.pool.QueryRow(ctx, query,
		client.ID,
		client.FirstName,
		client.LastName,
		client.Email,
		client.BirthDate,
	).Scan(&client.OwnerUserID, &client.CreatedAt, &client.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	return nil
}

// DeleteClient удаляет клиента; карточки и профиль удаляются каскадом, планы и экспорты отвязываются
func (p *PostgresStorage) DeleteClient(ctx context.Context, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// GetFoodCatalogStorage returns the food catalog storage
func (p *PostgresStorage) GetFoodCatalogStorage() storage.FoodCatalogStorage {
	return p.foods
}

// GetNutritionSheetsStorage returns nutrition sheets storage
func (p *PostgresStorage) GetNutritionSheetsStorage() storage.NutritionSheetsStorage {
	return p.sheets
}

// GetNutritionProfilesStorage returns nutrition profiles storage
func (p *PostgresStorage) GetNutritionProfilesStorage() storage.NutritionProfilesStorage {
	return p.profiles
}

// GetMealPlansStorage returns meal plans storage
func (p *PostgresStorage) GetMealPlansStorage() storage.MealPlansStorage {
	return p.plans
}

// GetExportsStorage returns the exports storage
func (p *PostgresStorage) GetExportsStorage() *PostgresExportsStorage {
	return p.exports
}
