package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/ragbot/models"
)

type fakeProvider struct {
	answer     string
	err        error
	lastPrompt string
}

func (f *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.answer, f.err
}

func TestBuildPromptNumbersChunks(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Text: "first chunk"},
		{Text: "second chunk"},
	}
	prompt := BuildPrompt("what happened?", chunks)

	if !strings.Contains(prompt, "[1] first chunk") || !strings.Contains(prompt, "[2] second chunk") {
		t.Fatalf("chunks not numbered:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: what happened?") {
		t.Fatalf("question not last:\n%s", prompt)
	}
	if strings.Index(prompt, "[1]") > strings.Index(prompt, "[2]") {
		t.Fatal("chunk order not preserved")
	}
}

func TestSourcesFromDedupes(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Metadata: models.ChunkMeta{Title: "A", Link: "http://a"}},
		{Metadata: models.ChunkMeta{Title: "A", Link: "http://a"}},
		{Metadata: models.ChunkMeta{Title: "B", Link: "http://b"}},
		{Metadata: models.ChunkMeta{}}, // no metadata, dropped
	}
	sources := SourcesFrom(chunks)
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	if sources[0].Title != "A" || sources[1].Title != "B" {
		t.Fatalf("order not preserved: %+v", sources)
	}
}

func TestGeneratorPassesPromptAndSources(t *testing.T) {
	p := &fakeProvider{answer: "the answer"}
	g := NewGenerator(p)

	chunks := []models.RetrievedChunk{
		{Text: "ctx", Metadata: models.ChunkMeta{Title: "T", Link: "http://t"}},
	}
	answer, sources, err := g.Generate(context.Background(), "q?", chunks)
	if err != nil {
		t.Fatal(err)
	}
	if answer != "the answer" {
		t.Fatalf("answer = %q", answer)
	}
	if len(sources) != 1 || sources[0].Link != "http://t" {
		t.Fatalf("sources = %+v", sources)
	}
	if !strings.Contains(p.lastPrompt, "ctx") || !strings.Contains(p.lastPrompt, "q?") {
		t.Fatalf("prompt missing content:\n%s", p.lastPrompt)
	}
}

func TestGeneratorWrapsProviderError(t *testing.T) {
	provErr := errors.New("rate limited")
	g := NewGenerator(&fakeProvider{err: provErr})

	_, _, err := g.Generate(context.Background(), "q", []models.RetrievedChunk{{Text: "c"}})
	if !errors.Is(err, provErr) {
		t.Fatalf("err = %v, want wrapped %v", err, provErr)
	}
}
