package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is one corpus source file (automation-rule documentation) tracked
// through the ingestion pipeline.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Title       string         `json:"title,omitempty"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	DocType     string         `json:"doc_type,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
