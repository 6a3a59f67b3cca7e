package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

type extractorFake struct {
	text  string
	title string
	err   error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, string, error) {
	return f.text, f.title, f.err
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderFake struct {
	vectors [][]float32
	err     error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type indexerSinkFake struct {
	err    error
	doc    *domain.Document
	chunks []string
}

func (f *indexerSinkFake) IndexChunks(_ context.Context, doc *domain.Document, chunks []string, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	clone := *doc
	f.doc = &clone
	f.chunks = chunks
	return nil
}

func uploadedDoc(repo *repoFake) *domain.Document {
	doc := &domain.Document{ID: "doc-1", Filename: "patterns.md", Status: domain.StatusUploaded}
	repo.docs[doc.ID] = doc
	return doc
}

func TestProcessByIDIndexesDocument(t *testing.T) {
	repo := newRepoFake()
	uploadedDoc(repo)
	sink := &indexerSinkFake{}
	indexer := NewIndexer(
		repo,
		&extractorFake{text: "```javascript\nreturn args.current;\n```", title: "Code patterns"},
		&chunkerFake{chunks: []string{"chunk one", "chunk two"}},
		&embedderFake{},
		sink,
		nil,
	)

	if err := indexer.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(repo.statusLog) != 1 || repo.statusLog[0] != domain.StatusProcessing {
		t.Fatalf("processing transition missing: %v", repo.statusLog)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("indexing result not saved")
	}
	saved := repo.saved[0]
	if saved.title != "Code patterns" || saved.docType != "code_example" || saved.chunkCount != 2 {
		t.Fatalf("unexpected indexing result: %+v", saved)
	}
	if repo.docs["doc-1"].Status != domain.StatusReady {
		t.Fatalf("document not ready: %s", repo.docs["doc-1"].Status)
	}
	if sink.doc == nil || sink.doc.DocType != "code_example" || len(sink.chunks) != 2 {
		t.Fatalf("chunks not indexed with classified document: %+v", sink.doc)
	}
}

func TestProcessByIDFallsBackToFilenameTitle(t *testing.T) {
	repo := newRepoFake()
	uploadedDoc(repo)
	indexer := NewIndexer(
		repo,
		&extractorFake{text: "plain prose"},
		&chunkerFake{chunks: []string{"plain prose"}},
		&embedderFake{},
		&indexerSinkFake{},
		nil,
	)

	if err := indexer.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if repo.saved[0].title != "patterns.md" {
		t.Fatalf("title = %q, want filename fallback", repo.saved[0].title)
	}
}

func TestProcessByIDSkipsReadyDocuments(t *testing.T) {
	repo := newRepoFake()
	repo.docs["doc-1"] = &domain.Document{ID: "doc-1", Status: domain.StatusReady}
	indexer := NewIndexer(repo, &extractorFake{err: errors.New("should not run")}, &chunkerFake{}, &embedderFake{}, &indexerSinkFake{}, nil)

	if err := indexer.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ready document should be a no-op, got %v", err)
	}
	if len(repo.statusLog) != 0 {
		t.Fatalf("status should not change: %v", repo.statusLog)
	}
}

func TestProcessByIDMarksFailureOnExtractError(t *testing.T) {
	repo := newRepoFake()
	uploadedDoc(repo)
	indexer := NewIndexer(repo, &extractorFake{err: errors.New("corrupt pdf")}, &chunkerFake{}, &embedderFake{}, &indexerSinkFake{}, nil)

	err := indexer.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected extract error")
	}

	if repo.docs["doc-1"].Status != domain.StatusFailed {
		t.Fatalf("document not marked failed: %s", repo.docs["doc-1"].Status)
	}
	last := repo.errorLog[len(repo.errorLog)-1]
	if !strings.Contains(last, "corrupt pdf") {
		t.Fatalf("failure message not recorded: %q", last)
	}
}

func TestProcessByIDRejectsEmptyText(t *testing.T) {
	repo := newRepoFake()
	uploadedDoc(repo)
	indexer := NewIndexer(repo, &extractorFake{text: "   \n\t"}, &chunkerFake{}, &embedderFake{}, &indexerSinkFake{}, nil)

	err := indexer.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if repo.docs["doc-1"].Status != domain.StatusFailed {
		t.Fatalf("document not marked failed")
	}
}

func TestProcessByIDRejectsVectorCountMismatch(t *testing.T) {
	repo := newRepoFake()
	uploadedDoc(repo)
	indexer := NewIndexer(
		repo,
		&extractorFake{text: "some text"},
		&chunkerFake{chunks: []string{"a", "b", "c"}},
		&embedderFake{vectors: [][]float32{{0.1}}},
		&indexerSinkFake{},
		nil,
	)

	err := indexer.ProcessByID(context.Background(), "doc-1")
	if err == nil || !strings.Contains(err.Error(), "vectors") {
		t.Fatalf("mismatch not reported: %v", err)
	}
	if repo.docs["doc-1"].Status != domain.StatusFailed {
		t.Fatalf("document not marked failed")
	}
}

func TestClassifyDocType(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"```javascript\nreturn 1;\n```", "code_example"},
		{"access fields through args.current", "code_example"},
		{"the Severity custom field on bugs", "entity_metadata"},
		{"escalation workflow for critical bugs", "business_logic"},
		{"general notes about the product", "general"},
	}
	for _, tc := range cases {
		if got := classifyDocType(tc.text); got != tc.want {
			t.Fatalf("classifyDocType(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}
