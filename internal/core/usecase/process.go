package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// Indexer runs the asynchronous half of ingestion: extract, classify, chunk,
// embed and index one uploaded document, tracking status transitions on the
// document row.
type Indexer struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndexer
	log       *slog.Logger
}

func NewIndexer(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndexer,
	log *slog.Logger,
) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{repo: repo, extractor: extractor, chunker: chunker, embedder: embedder, index: index, log: log}
}

func (ix *Indexer) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := ix.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc.Status == domain.StatusReady {
		ix.log.Info("document_already_indexed", "document_id", documentID)
		return nil
	}

	if err := ix.repo.UpdateStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if err := ix.process(ctx, doc); err != nil {
		ix.log.Error("document_indexing_failed", "document_id", doc.ID, "error", err)
		if uerr := ix.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); uerr != nil {
			ix.log.Error("mark_failed_error", "document_id", doc.ID, "error", uerr)
		}
		return err
	}
	return nil
}

func (ix *Indexer) process(ctx context.Context, doc *domain.Document) error {
	text, title, err := ix.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("document %s has no extractable text", doc.ID))
	}
	if title == "" {
		title = doc.Filename
	}

	docType := classifyDocType(text)
	chunks := ix.chunker.Split(text)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk text", fmt.Errorf("document %s produced no chunks", doc.ID))
	}

	vectors, err := ix.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	doc.Title = title
	doc.DocType = docType
	doc.ChunkCount = len(chunks)
	if err := ix.index.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}

	if err := ix.repo.SaveIndexingResult(ctx, doc.ID, title, docType, len(chunks)); err != nil {
		return fmt.Errorf("save indexing result: %w", err)
	}

	ix.log.Info("document_indexed",
		"document_id", doc.ID,
		"doc_type", docType,
		"chunks", len(chunks),
	)
	return nil
}

// classifyDocType tags a document by its dominant content so retrieval
// filters and the scorer can favor the right material.
func classifyDocType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "```"+languageMarker) || strings.Contains(lower, entityAccessToken):
		return "code_example"
	case strings.Contains(lower, "custom field") || strings.Contains(lower, "entity state"):
		return "entity_metadata"
	case strings.Contains(lower, "workflow") || strings.Contains(lower, "business rule"):
		return "business_logic"
	default:
		return "general"
	}
}
