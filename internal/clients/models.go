package clients

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClientDTO: DTO для API
type ClientDTO struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       *string   `json:"email,omitempty"`
	BirthDate   *string   `json:"birth_date,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClientsResponse: ответ для GET /v1/clients
type ClientsResponse struct {
	Clients []ClientDTO `json:"clients"`
}

// ClientRequest: запрос для POST /v1/clients и PATCH /v1/clients/{id}
type ClientRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	BirthDate *string `json:"birth_date,omitempty"`
}

// Validate проверяет имя, email и дату рождения
func (r *ClientRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" && strings.TrimSpace(r.LastName) == "" {
		return ErrEmptyName
	}
	if r.Email != nil && strings.TrimSpace(*r.Email) != "" {
		if _, err := mail.ParseAddress(strings.TrimSpace(*r.Email)); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidEmail, *r.Email)
		}
	}
	if r.BirthDate != nil && strings.TrimSpace(*r.BirthDate) != "" {
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(*r.BirthDate)); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidBirthDate, *r.BirthDate)
		}
	}
	return nil
}

// ErrorResponse: формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
