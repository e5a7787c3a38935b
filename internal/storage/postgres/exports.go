package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresExportsStorage: Postgres storage для экспортов
type PostgresExportsStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresExportsStorage создаёт новое Postgres хранилище
func NewPostgresExportsStorage(pool *pgxpool.Pool) *PostgresExportsStorage {
	return &PostgresExportsStorage{pool: pool}
}

const exportColumns = `id, owner_user_id, client_id, kind, format, subject_id, file_name, object_key,
	size_bytes, status, error, created_at, updated_at`

func scanExport(row pgx.Row, extra ...any) (storage.ExportMeta, error) {
	var e storage.ExportMeta
	dest := []any{
		&e.ID,
		&e.OwnerUserID,
		&e.ClientID,
		&e.Kind,
		&e.Format,
		&e.SubjectID,
		&e.FileName,
		&e.ObjectKey,
		&e.SizeBytes,
		&e.Status,
		&e.Error,
		&e.CreatedAt,
		&e.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return e, err
}

// CreateExport создаёт новый экспорт; Data сохраняется в bytea, если объект не лежит в S3
func (s *PostgresExportsStorage) CreateExport(ctx context.Context, export *storage.ExportMeta) error {
	query := `
		INSERT INTO exports (id, owner_user_id, client_id, kind, format, subject_id, file_name, object_key,
		                     data, size_bytes, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}

	var data []byte
	if export.ObjectKey == nil {
		data = export.Data
	}

	err := s.pool.QueryRow(ctx, query,
		export.ID,
		export.OwnerUserID,
		export.ClientID,
		export.Kind,
		export.Format,
		export.SubjectID,
		export.FileName,
		export.ObjectKey,
		data,
		export.SizeBytes,
		export.Status,
		export.Error,
	).Scan(&export.CreatedAt, &export.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}

	return nil
}

// GetExport возвращает экспорт по ID вместе с данными
func (s *PostgresExportsStorage) GetExport(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	query := `SELECT ` + exportColumns + `, data FROM exports WHERE id = $1`

	var data []byte
	export, err := scanExport(s.pool.QueryRow(ctx, query, id), &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export: %w", err)
	}
	export.Data = data

	return &export, nil
}

// ListExports возвращает список экспортов с пагинацией
func (s *PostgresExportsStorage) ListExports(ctx context.Context, ownerUserID string, clientID *uuid.UUID, limit, offset int) ([]storage.ExportMeta, error) {
	query := `
		SELECT ` + exportColumns + `
		FROM exports
		WHERE owner_user_id = $1 AND ($2::uuid IS NULL OR client_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	return s.queryExports(ctx, query, ownerUserID, clientID, limit, offset)
}

// ListExpiredExports возвращает экспорты, созданные раньше before
func (s *PostgresExportsStorage) ListExpiredExports(ctx context.Context, before time.Time) ([]storage.ExportMeta, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE created_at < $1 ORDER BY created_at`
	return s.queryExports(ctx, query, before)
}

func (s *PostgresExportsStorage) queryExports(ctx context.Context, query string, args ...any) ([]storage.ExportMeta, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	exports := []storage.ExportMeta{}
	for rows.Next() {
		export, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, export)
	}

	return exports, rows.Err()
}

// DeleteExport удаляет экспорт
func (s *PostgresExportsStorage) DeleteExport(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM exports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}
