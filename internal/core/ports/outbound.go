package ports

import (
	"context"
	"io"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

// Completer is the LLM completion capability shared by the planner,
// generator and refiner. Implementations must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, params domain.GenerationParams) (string, error)
}

// VectorSearcher performs semantic search over the documentation corpus.
// An empty result is not an error. Implementations must be safe for
// concurrent use; the retriever fans out query variants against it.
type VectorSearcher interface {
	Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedItem, error)
}

// EntityMetadataProvider supplies live field/state metadata for an entity
// type. It is optional; a nil provider disables metadata enrichment.
type EntityMetadataProvider interface {
	GetEntityMetadata(ctx context.Context, entityType string) (*domain.EntityMetadata, error)
}

// DocumentRepository persists and reads corpus document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveIndexingResult(ctx context.Context, id, title, docType string, chunkCount int) error
}

// ObjectStorage stores uploaded corpus source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes corpus ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text and a display title from a stored
// corpus document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (text, title string, err error)
}

// Chunker splits extracted text into overlapping retrieval chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndexer writes chunk vectors into the search index.
type VectorIndexer interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
}
