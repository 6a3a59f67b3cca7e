package markdown

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

type storageStub struct {
	content string
	err     error
}

func (s *storageStub) Save(context.Context, string, io.Reader) error { return nil }

func (s *storageStub) Open(context.Context, string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func TestExtractUsesFirstHeadingAsTitle(t *testing.T) {
	extractor := NewExtractor(&storageStub{content: "intro line\n\n## Automation Rules\n\nbody text"})

	text, title, err := extractor.Extract(context.Background(), &domain.Document{StoragePath: "documents/a.md"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if title != "Automation Rules" {
		t.Fatalf("title = %q", title)
	}
	if !strings.Contains(text, "body text") {
		t.Fatalf("text = %q", text)
	}
}

func TestExtractWithoutHeadingLeavesTitleEmpty(t *testing.T) {
	extractor := NewExtractor(&storageStub{content: "plain notes only"})

	_, title, err := extractor.Extract(context.Background(), &domain.Document{StoragePath: "documents/a.txt"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if title != "" {
		t.Fatalf("title = %q, want empty", title)
	}
}

func TestExtractRejectsBinaryContent(t *testing.T) {
	extractor := NewExtractor(&storageStub{content: string([]byte{0xff, 0xfe, 0x00, 0x01})})

	_, _, err := extractor.Extract(context.Background(), &domain.Document{StoragePath: "documents/a.bin", Filename: "a.bin"})
	if err == nil {
		t.Fatalf("expected error for binary content")
	}
}

func TestExtractPropagatesStorageErrors(t *testing.T) {
	extractor := NewExtractor(&storageStub{err: errors.New("missing key")})

	_, _, err := extractor.Extract(context.Background(), &domain.Document{StoragePath: "documents/a.md"})
	if err == nil || !strings.Contains(err.Error(), "missing key") {
		t.Fatalf("storage error not propagated: %v", err)
	}
}
