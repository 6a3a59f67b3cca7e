package ports

import (
	"context"
	"io"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

// RuleAssistant is the inbound contract for rule generation, explanation and
// improvement. Process always returns a ProcessingResult with Success set;
// the error return is reserved for contract misuse (empty request, bad kind).
type RuleAssistant interface {
	Process(ctx context.Context, req domain.ProcessRequest) (*domain.ProcessingResult, error)
}

// DocumentSearcher is the inbound retrieval-only contract.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.RetrievedItem, error)
}

// DocumentIngestor is the inbound contract for corpus upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous corpus indexing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for corpus document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
