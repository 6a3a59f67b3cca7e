package markdown

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// Extractor reads markdown and plain-text documents. The title comes from
// the first heading when one exists.
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

	if !utf8.Valid(raw) {
		return "", "", fmt.Errorf("binary content in text document: %s", doc.Filename)
	}

	text := strings.TrimSpace(string(raw))
	return text, firstHeading(text), nil
}

func firstHeading(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return ""
}
