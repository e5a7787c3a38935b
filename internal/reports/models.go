package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	KindSheet = "sheet"
	KindPlan  = "plan"

	FormatPDF  = "pdf"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	StatusReady  = "ready"
	StatusFailed = "failed"
)

// CreateExportRequest: запрос POST /v1/exports.
// Для sheet достаточно client_id (берётся последняя карточка) или subject_id.
type CreateExportRequest struct {
	Kind      string     `json:"kind"`
	Format    string     `json:"format"`
	ClientID  *uuid.UUID `json:"client_id,omitempty"`
	SubjectID string     `json:"subject_id,omitempty"`
}

func (r *CreateExportRequest) Validate() error {
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	if r.Format == "" {
		r.Format = FormatPDF
	}

	switch r.Kind {
	case KindSheet:
		if r.Format != FormatPDF {
			return fmt.Errorf("sheet exports support only pdf")
		}
		if r.ClientID == nil && r.SubjectID == "" {
			return fmt.Errorf("client_id or subject_id is required")
		}
		if r.SubjectID != "" {
			if _, err := uuid.Parse(r.SubjectID); err != nil {
				return fmt.Errorf("subject_id must be a sheet id")
			}
		}
	case KindPlan:
		if r.Format != FormatPDF && r.Format != FormatCSV && r.Format != FormatXLSX {
			return fmt.Errorf("format must be pdf, csv or xlsx")
		}
		if r.SubjectID == "" {
			return fmt.Errorf("subject_id is required")
		}
	default:
		return fmt.Errorf("kind must be sheet or plan")
	}
	return nil
}

// ExportDTO is the response representation of an export.
type ExportDTO struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    *uuid.UUID `json:"client_id,omitempty"`
	Kind        string     `json:"kind"`
	Format      string     `json:"format"`
	SubjectID   string     `json:"subject_id"`
	FileName    string     `json:"file_name"`
	SizeBytes   int64      `json:"size_bytes"`
	Status      string     `json:"status"`
	DownloadURL string     `json:"download_url"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ExportsResponse struct {
	Exports []ExportDTO `json:"exports"`
}

// Download: содержимое экспорта либо ссылка на объект в S3
type Download struct {
	Data        []byte
	ContentType string
	FileName    string
	RedirectURL string
}

func contentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/pdf"
	}
}
