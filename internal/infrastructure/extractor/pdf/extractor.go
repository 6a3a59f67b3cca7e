package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// Extractor pulls plain text out of PDF documents.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", "", fmt.Errorf("read source document: %w", err)
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", "", fmt.Errorf("parse pdf: %w", err)
	}

	textReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", "", fmt.Errorf("extract pdf text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, textReader); err != nil {
		return "", "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(b.String()), "", nil
}
