// Package rag defines the retrieval and generation boundaries. The
// vector store and the generative model are external collaborators;
// everything here treats them as possibly slow and possibly failing.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/ragbot/models"
)

// Retriever returns the chunks most similar to a query. An empty result
// is a valid, non-error response.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error)
}

// VectorStore is a retriever that also accepts new chunks.
type VectorStore interface {
	Retriever
	Store(ctx context.Context, chunks []models.Chunk) error
	Clear(ctx context.Context) error
}

// Generator produces an answer grounded in retrieved chunks.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []models.RetrievedChunk) (string, []models.Source, error)
}

// CompletionProvider is the generative-model boundary: prompt in,
// answer out. Failures propagate; no retry at this layer.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type generator struct {
	provider CompletionProvider
}

// NewGenerator wraps a completion provider with prompt construction and
// source extraction.
func NewGenerator(provider CompletionProvider) Generator {
	return &generator{provider: provider}
}

func (g *generator) Generate(ctx context.Context, query string, chunks []models.RetrievedChunk) (string, []models.Source, error) {
	answer, err := g.provider.Complete(ctx, BuildPrompt(query, chunks))
	if err != nil {
		return "", nil, fmt.Errorf("generation failed: %w", err)
	}
	return answer, SourcesFrom(chunks), nil
}

// BuildPrompt concatenates numbered context chunks followed by the
// literal question.
func BuildPrompt(query string, chunks []models.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the numbered context below. If the context does not contain the answer, say so.\n\nContext:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Text)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", query)
	return b.String()
}

// SourcesFrom dedupes chunk metadata into an ordered source list.
func SourcesFrom(chunks []models.RetrievedChunk) []models.Source {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]models.Source, 0, len(chunks))
	for _, c := range chunks {
		if c.Metadata.Link == "" && c.Metadata.Title == "" {
			continue
		}
		key := c.Metadata.Link + "|" + c.Metadata.Title
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, models.Source{Title: c.Metadata.Title, Link: c.Metadata.Link})
	}
	return sources
}
