// Package chroma implements the vector-store boundary against a Chroma
// server's REST API. Embeddings are computed client-side through the
// configured provider, so the server never needs its own model.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/mohammad-safakhou/ragbot/models"
)

// Embedder is the slice of the provider this store needs.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Store struct {
	baseURL    string
	collection string
	embedder   Embedder
	httpClient *http.Client
	logger     *log.Logger

	mu           sync.Mutex // guards collectionID; the store is shared across goroutines
	collectionID string
}

func New(baseURL, collection string, embedder Embedder, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.Writer(), "[CHROMA] ", log.LstdFlags)
	}
	return &Store{
		baseURL:    baseURL,
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (s *Store) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("chroma returned status %d for %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ensureCollection resolves (or creates) the collection id once and
// returns it. Holding the lock across the POST serializes the first
// resolution so concurrent callers see one id, never a half-written one.
func (s *Store) ensureCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collectionID != "" {
		return s.collectionID, nil
	}
	var created struct {
		ID string `json:"id"`
	}
	err := s.post(ctx, "/api/v1/collections", map[string]interface{}{
		"name":          s.collection,
		"get_or_create": true,
		"metadata":      map[string]string{"hnsw:space": "cosine"},
	}, &created)
	if err != nil {
		return "", fmt.Errorf("initializing collection: %w", err)
	}
	s.collectionID = created.ID
	s.logger.Printf("collection %s ready (%s)", s.collection, s.collectionID)
	return created.ID, nil
}

// Store embeds and upserts chunks into the collection.
func (s *Store) Store(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	collectionID, err := s.ensureCollection(ctx)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = c.ID
		metadatas[i] = map[string]string{
			"source_title": c.Source.Title,
			"source_link":  c.Source.Link,
			"pub_date":     c.Source.PubDate,
		}
	}

	embeddings, err := s.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	err = s.post(ctx, "/api/v1/collections/"+collectionID+"/add", map[string]interface{}{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  texts,
		"metadatas":  metadatas,
	}, nil)
	if err != nil {
		return fmt.Errorf("storing chunks: %w", err)
	}
	s.logger.Printf("stored %d chunks", len(chunks))
	return nil
}

// Retrieve returns the topK closest chunks. An empty result is valid.
func (s *Store) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error) {
	collectionID, err := s.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	qvecs, err := s.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var result struct {
		Documents [][]string            `json:"documents"`
		Metadatas [][]map[string]string `json:"metadatas"`
		Distances [][]float64           `json:"distances"`
	}
	err = s.post(ctx, "/api/v1/collections/"+collectionID+"/query", map[string]interface{}{
		"query_embeddings": qvecs,
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	if len(result.Documents) == 0 {
		return nil, nil
	}
	chunks := make([]models.RetrievedChunk, 0, len(result.Documents[0]))
	for i, doc := range result.Documents[0] {
		chunk := models.RetrievedChunk{Text: doc}
		if len(result.Metadatas) > 0 && i < len(result.Metadatas[0]) {
			m := result.Metadatas[0][i]
			chunk.Metadata = models.ChunkMeta{
				Title:   m["source_title"],
				Link:    m["source_link"],
				PubDate: m["pub_date"],
			}
		}
		if len(result.Distances) > 0 && i < len(result.Distances[0]) {
			chunk.Distance = result.Distances[0][i]
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Clear drops the collection so a re-ingest starts from nothing.
func (s *Store) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", s.baseURL+"/api/v1/collections/"+s.collection, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404 means there was nothing to clear.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("chroma returned status %d deleting collection", resp.StatusCode)
	}
	s.mu.Lock()
	s.collectionID = ""
	s.mu.Unlock()
	return nil
}
