package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/extractor/markdown"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/extractor/pdf"
	"github.com/akozhevnikov/rule-assistant/internal/infrastructure/extractor/xlsx"
)

// Dispatcher selects the concrete extractor by file extension. Unknown
// extensions fall through to the text extractor, which rejects binary
// content on its own.
type Dispatcher struct {
	text ports.TextExtractor
	pdf  ports.TextExtractor
	xlsx ports.TextExtractor
}

func NewDispatcher(storage ports.ObjectStorage) *Dispatcher {
	return &Dispatcher{
		text: markdown.NewExtractor(storage),
		pdf:  pdf.NewExtractor(storage),
		xlsx: xlsx.NewExtractor(storage),
	}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (string, string, error) {
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return d.pdf.Extract(ctx, doc)
	case ".xlsx", ".xlsm":
		return d.xlsx.Extract(ctx, doc)
	case ".md", ".markdown", ".txt", ".json", ".js", "":
		return d.text.Extract(ctx, doc)
	default:
		text, title, err := d.text.Extract(ctx, doc)
		if err != nil {
			return "", "", fmt.Errorf("unsupported document format %s: %w", doc.Filename, err)
		}
		return text, title, nil
	}
}
