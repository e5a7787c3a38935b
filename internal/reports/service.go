package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/coach-hub/internal/blob"
	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/fdg312/coach-hub/internal/mealplans"
	"github.com/fdg312/coach-hub/internal/nutrition"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/userctx"
	"github.com/google/uuid"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrExportNotFound = errors.New("export not found")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Logger interface {
	Printf(format string, v ...any)
}

// SheetSource отдаёт карточки питания с проверкой владельца; реализован nutrition.Service
type SheetSource interface {
	Latest(ctx context.Context, clientID uuid.UUID) (nutrition.SheetDTO, error)
	Get(ctx context.Context, id uuid.UUID) (nutrition.SheetDTO, error)
}

// PlanSource отдаёт планы с итогами; реализован mealplans.Service
type PlanSource interface {
	Get(ctx context.Context, id string) (mealplans.PlanDTO, error)
}

// Options: настройки выдачи файлов из S3
type Options struct {
	PresignTTLSeconds int
	PublicBaseURL     string
	PreferPublicURL   bool
}

// Service renders exports and stores them in the blob store, or inline in
// the exports storage when no blob store is configured.
type Service struct {
	exports   storage.ExportsStorage
	lookup    clients.Lookup
	sheets    SheetSource
	plans     PlanSource
	generator *Generator
	blobStore blob.Store
	opts      Options
	logger    Logger
}

func NewService(
	exports storage.ExportsStorage,
	lookup clients.Lookup,
	sheets SheetSource,
	plans PlanSource,
	blobStore blob.Store,
	opts Options,
	logger Logger,
) *Service {
	if opts.PresignTTLSeconds <= 0 {
		opts.PresignTTLSeconds = 900
	}
	return &Service{
		exports:   exports,
		lookup:    lookup,
		sheets:    sheets,
		plans:     plans,
		generator: NewGenerator(),
		blobStore: blobStore,
		opts:      opts,
		logger:    logger,
	}
}

// Create renders the requested document and saves it.
func (s *Service) Create(ctx context.Context, req CreateExportRequest) (ExportDTO, error) {
	if err := req.Validate(); err != nil {
		return ExportDTO{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var (
		client *storage.Client
		err    error
	)
	if req.ClientID != nil {
		if client, err = clients.EnsureOwned(ctx, s.lookup, *req.ClientID); err != nil {
			return ExportDTO{}, err
		}
	}

	var (
		data      []byte
		subjectID string
	)
	switch req.Kind {
	case KindSheet:
		var sheet nutrition.SheetDTO
		if req.SubjectID != "" {
			sheet, err = s.sheets.Get(ctx, uuid.MustParse(req.SubjectID))
		} else {
			sheet, err = s.sheets.Latest(ctx, *req.ClientID)
		}
		if err != nil {
			return ExportDTO{}, err
		}
		if client == nil || client.ID != sheet.ClientID {
			if client, err = clients.EnsureOwned(ctx, s.lookup, sheet.ClientID); err != nil {
				return ExportDTO{}, err
			}
		}
		subjectID = sheet.ID.String()
		data, err = s.generator.RenderSheetPDF(fullName(client), sheet)

	case KindPlan:
		plan, perr := s.plans.Get(ctx, req.SubjectID)
		if perr != nil {
			return ExportDTO{}, perr
		}
		if client == nil && plan.ClientID != nil {
			if id, perr := uuid.Parse(*plan.ClientID); perr == nil {
				client, _ = clients.EnsureOwned(ctx, s.lookup, id)
			}
		}
		subjectID = plan.ID
		switch req.Format {
		case FormatCSV:
			data, err = s.generator.RenderPlanCSV(plan)
		case FormatXLSX:
			data, err = s.generator.RenderPlanXLSX(plan)
		default:
			data, err = s.generator.RenderPlanPDF(fullName(client), plan)
		}
	}
	if err != nil {
		return ExportDTO{}, fmt.Errorf("failed to render export: %w", err)
	}

	meta := &storage.ExportMeta{
		ID:          uuid.New(),
		OwnerUserID: userctx.OwnerUserID(ctx),
		Kind:        req.Kind,
		Format:      req.Format,
		SubjectID:   subjectID,
		FileName:    fmt.Sprintf("%s_%s.%s", req.Kind, time.Now().UTC().Format("20060102_150405"), req.Format),
		SizeBytes:   int64(len(data)),
		Status:      StatusReady,
	}
	if client != nil {
		id := client.ID
		meta.ClientID = &id
	}

	if s.blobStore == nil {
		meta.Data = data
	} else {
		key := fmt.Sprintf("exports/%s/%s.%s", meta.OwnerUserID, meta.ID, req.Format)
		if _, err := s.blobStore.PutObject(ctx, key, data, contentType(req.Format)); err != nil {
			return ExportDTO{}, fmt.Errorf("failed to upload export: %w", err)
		}
		meta.ObjectKey = &key
	}

	if err := s.exports.CreateExport(ctx, meta); err != nil {
		return ExportDTO{}, fmt.Errorf("failed to save export metadata: %w", err)
	}
	s.logf("INFO exports: created id=%s kind=%s format=%s size=%d", meta.ID, meta.Kind, meta.Format, meta.SizeBytes)
	return toDTO(*meta), nil
}

// List returns the caller's exports, newest first.
func (s *Service) List(ctx context.Context, clientID *uuid.UUID, limit, offset int) ([]ExportDTO, error) {
	if clientID != nil {
		if _, err := clients.EnsureOwned(ctx, s.lookup, *clientID); err != nil {
			return nil, err
		}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.exports.ListExports(ctx, userctx.OwnerUserID(ctx), clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	dtos := make([]ExportDTO, 0, len(list))
	for _, e := range list {
		dtos = append(dtos, toDTO(e))
	}
	return dtos, nil
}

// Download returns the bytes of an export, or a URL to redirect to.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (Download, error) {
	meta, err := s.load(ctx, id)
	if err != nil {
		return Download{}, err
	}

	out := Download{ContentType: contentType(meta.Format), FileName: meta.FileName}
	if meta.ObjectKey == nil {
		out.Data = meta.Data
		return out, nil
	}
	if s.blobStore == nil {
		return Download{}, fmt.Errorf("export %s is stored in a blob store that is not configured", id)
	}

	key := *meta.ObjectKey
	if s.opts.PreferPublicURL && s.opts.PublicBaseURL != "" {
		out.RedirectURL = strings.TrimSuffix(s.opts.PublicBaseURL, "/") + "/" + key
		return out, nil
	}

	url, err := s.blobStore.PresignGet(ctx, key, s.opts.PresignTTLSeconds)
	switch {
	case err == nil:
		out.RedirectURL = url
		return out, nil
	case errors.Is(err, blob.ErrPresignUnsupported):
		data, err := s.blobStore.GetObject(ctx, key)
		if err != nil {
			return Download{}, fmt.Errorf("failed to read export: %w", err)
		}
		out.Data = data
		return out, nil
	default:
		return Download{}, fmt.Errorf("failed to generate presigned URL: %w", err)
	}
}

// Delete removes an export and its stored object.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	meta, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return removeExport(ctx, s.exports, s.blobStore, *meta, s.logger)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	meta, err := s.exports.GetExport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get export: %w", err)
	}
	if meta == nil || meta.OwnerUserID != userctx.OwnerUserID(ctx) {
		return nil, ErrExportNotFound
	}
	return meta, nil
}

func (s *Service) logf(format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	}
}

// removeExport удаляет объект (ошибка только логируется) и метаданные
func removeExport(ctx context.Context, exports storage.ExportsStorage, store blob.Store, meta storage.ExportMeta, logger Logger) error {
	if store != nil && meta.ObjectKey != nil {
		if err := store.DeleteObject(ctx, *meta.ObjectKey); err != nil && logger != nil {
			logger.Printf("WARN exports: failed to delete object %s: %v", *meta.ObjectKey, err)
		}
	}
	if err := exports.DeleteExport(ctx, meta.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrExportNotFound
		}
		return fmt.Errorf("failed to delete export metadata: %w", err)
	}
	return nil
}

func toDTO(e storage.ExportMeta) ExportDTO {
	return ExportDTO{
		ID:          e.ID,
		ClientID:    e.ClientID,
		Kind:        e.Kind,
		Format:      e.Format,
		SubjectID:   e.SubjectID,
		FileName:    e.FileName,
		SizeBytes:   e.SizeBytes,
		Status:      e.Status,
		DownloadURL: fmt.Sprintf("/v1/exports/%s/download", e.ID),
		CreatedAt:   e.CreatedAt,
	}
}

func fullName(c *storage.Client) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
