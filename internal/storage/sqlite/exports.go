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

// SQLiteExportsStorage: SQLite storage для экспортов
type SQLiteExportsStorage struct {
	db *gorm.DB
}

// CreateExport создаёт экспорт; Data сохраняется, если объект не лежит в S3
func (s *SQLiteExportsStorage) CreateExport(ctx context.Context, export *storage.ExportMeta) error {
	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}
	now := time.Now().UTC()
	if export.CreatedAt.IsZero() {
		export.CreatedAt = now
	}
	export.UpdatedAt = now

	m := exportToModel(*export)
	if export.ObjectKey != nil {
		m.Data = nil
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}
	return nil
}

// GetExport возвращает экспорт по ID вместе с данными
func (s *SQLiteExportsStorage) GetExport(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	var m exportModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export: %w", err)
	}
	e := exportFromModel(m)
	return &e, nil
}

// ListExports возвращает экспорты владельца, новые первыми
func (s *SQLiteExportsStorage) ListExports(ctx context.Context, ownerUserID string, clientID *uuid.UUID, limit, offset int) ([]storage.ExportMeta, error) {
	db := s.db.WithContext(ctx).Omit("data").Where("owner_user_id = ?", ownerUserID)
	if clientID != nil {
		db = db.Where("client_id = ?", clientID.String())
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}
	return s.find(db.Order("created_at DESC"))
}

// ListExpiredExports возвращает экспорты, созданные раньше before
func (s *SQLiteExportsStorage) ListExpiredExports(ctx context.Context, before time.Time) ([]storage.ExportMeta, error) {
	return s.find(s.db.WithContext(ctx).Omit("data").Where("created_at < ?", before).Order("created_at"))
}

func (s *SQLiteExportsStorage) find(db *gorm.DB) ([]storage.ExportMeta, error) {
	var models []exportModel
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	exports := make([]storage.ExportMeta, 0, len(models))
	for _, m := range models {
		exports = append(exports, exportFromModel(m))
	}
	return exports, nil
}

// DeleteExport удаляет экспорт
func (s *SQLiteExportsStorage) DeleteExport(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&exportModel{}, "id = ?", id.String())
	if result.Error != nil {
		return fmt.Errorf("failed to delete export: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func exportToModel(e storage.ExportMeta) exportModel {
	m := exportModel{
		ID:          e.ID.String(),
		OwnerUserID: e.OwnerUserID,
		Kind:        e.Kind,
		Format:      e.Format,
		SubjectID:   e.SubjectID,
		FileName:    e.FileName,
		ObjectKey:   e.ObjectKey,
		Data:        e.Data,
		SizeBytes:   e.SizeBytes,
		Status:      e.Status,
		Error:       e.Error,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.ClientID != nil {
		cid := e.ClientID.String()
		m.ClientID = &cid
	}
	return m
}

func exportFromModel(m exportModel) storage.ExportMeta {
	id, _ := uuid.Parse(m.ID)
	e := storage.ExportMeta{
		ID:          id,
		OwnerUserID: m.OwnerUserID,
		Kind:        m.Kind,
		Format:      m.Format,
		SubjectID:   m.SubjectID,
		FileName:    m.FileName,
		ObjectKey:   m.ObjectKey,
		Data:        m.Data,
		SizeBytes:   m.SizeBytes,
		Status:      m.Status,
		Error:       m.Error,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.ClientID != nil {
		if cid, err := uuid.Parse(*m.ClientID); err == nil {
			e.ClientID = &cid
		}
	}
	return e
}
