package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// Extractor flattens spreadsheet documents into line-per-row text, one
// section per sheet. The first sheet name doubles as the title.
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

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return "", "", fmt.Errorf("parse xlsx: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		fmt.Fprintf(&b, "## %s\n", sheet)
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " | "))
			if line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
		b.WriteByte('\n')
	}

	title := ""
	if len(sheets) > 0 {
		title = sheets[0]
	}
	return strings.TrimSpace(b.String()), title, nil
}
