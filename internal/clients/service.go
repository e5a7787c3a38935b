package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/userctx"
	"github.com/google/uuid"
)

var (
	ErrEmptyName        = errors.New("first or last name is required")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidBirthDate = errors.New("birth_date must be YYYY-MM-DD")
	ErrNotFound         = errors.New("client not found")
)

// Lookup находит клиента по ID; storage.Storage удовлетворяет интерфейсу
type Lookup interface {
	GetClient(ctx context.Context, id uuid.UUID) (*storage.Client, error)
}

// EnsureOwned возвращает клиента, если он принадлежит пользователю из контекста.
// Чужой или отсутствующий клиент даёт ErrNotFound.
func EnsureOwned(ctx context.Context, lookup Lookup, id uuid.UUID) (*storage.Client, error) {
	client, err := lookup.GetClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	if client == nil || client.OwnerUserID != userctx.OwnerUserID(ctx) {
		return nil, ErrNotFound
	}
	return client, nil
}

// Service содержит бизнес-логику клиентов
type Service struct {
	storage storage.Storage
}

// NewService создаёт новый сервис
func NewService(st storage.Storage) *Service {
	return &Service{storage: st}
}

// ListClients возвращает клиентов текущего пользователя
func (s *Service) ListClients(ctx context.Context) ([]ClientDTO, error) {
	clients, err := s.storage.ListClients(ctx, userctx.OwnerUserID(ctx))
	if err != nil {
		return nil, err
	}

	dtos := make([]ClientDTO, 0, len(clients))
	for _, c := range clients {
		dtos = append(dtos, toDTO(c))
	}
	return dtos, nil
}

// GetClient возвращает клиента по ID
func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*ClientDTO, error) {
	client, err := EnsureOwned(ctx, s.storage, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*client)
	return &dto, nil
}

// CreateClient создаёт клиента
func (s *Service) CreateClient(ctx context.Context, req ClientRequest) (*ClientDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client := &storage.Client{
		OwnerUserID: userctx.OwnerUserID(ctx),
	}
	apply(client, req)

	if err := s.storage.CreateClient(ctx, client); err != nil {
		return nil, err
	}

	dto := toDTO(*client)
	return &dto, nil
}

// UpdateClient обновляет данные клиента
func (s *Service) UpdateClient(ctx context.Context, id uuid.UUID, req ClientRequest) (*ClientDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := EnsureOwned(ctx, s.storage, id)
	if err != nil {
		return nil, err
	}
	apply(client, req)

	if err := s.storage.UpdateClient(ctx, client); err != nil {
		return nil, err
	}

	dto := toDTO(*client)
	return &dto, nil
}

// DeleteClient удаляет клиента
func (s *Service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	if _, err := EnsureOwned(ctx, s.storage, id); err != nil {
		return err
	}
	return s.storage.DeleteClient(ctx, id)
}

func apply(client *storage.Client, req ClientRequest) {
	client.FirstName = strings.TrimSpace(req.FirstName)
	client.LastName = strings.TrimSpace(req.LastName)
	client.Email = trimmedOrNil(req.Email)
	client.BirthDate = trimmedOrNil(req.BirthDate)
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// toDTO конвертирует storage.Client в ClientDTO
func toDTO(c storage.Client) ClientDTO {
	return ClientDTO{
		ID:          c.ID,
		OwnerUserID: c.OwnerUserID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		BirthDate:   c.BirthDate,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
