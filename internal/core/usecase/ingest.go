package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// Ingestor accepts corpus uploads: the file goes to object storage, the
// document row is created and an indexing event is published for the worker.
type Ingestor struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	log     *slog.Logger
	now     func() time.Time
}

func NewIngestor(repo ports.DocumentRepository, storage ports.ObjectStorage, queue ports.MessageQueue, log *slog.Logger) *Ingestor {
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{repo: repo, storage: storage, queue: queue, log: log, now: time.Now}
}

func (i *Ingestor) Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("empty filename"))
	}

	id := uuid.NewString()
	storagePath := path.Join("documents", id+path.Ext(filename))
	if err := i.storage.Save(ctx, storagePath, body); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	now := i.now().UTC()
	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storagePath,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := i.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := i.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		// The row exists and can be reprocessed; surface the failure in the
		// document state instead of losing the upload.
		i.log.Error("publish_ingest_event_failed", "document_id", doc.ID, "error", err)
		_ = i.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, "indexing event not published")
		return nil, fmt.Errorf("publish ingest event: %w", err)
	}

	i.log.Info("document_uploaded", "document_id", doc.ID, "filename", filename)
	return doc, nil
}

func (i *Ingestor) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", fmt.Errorf("empty document id"))
	}
	return i.repo.GetByID(ctx, id)
}
