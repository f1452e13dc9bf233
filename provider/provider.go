package provider

import "context"

// Provider is the generative-model boundary: completions for answers,
// embeddings for the vector store.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}
