// Package bleve is an in-process vector-store driver backed by a
// memory-only BM25 index. It keeps development and tests free of a
// running Chroma server; ranking quality is keyword-level, not semantic.
package bleve

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/ragbot/models"
)

type Store struct {
	mu    sync.RWMutex
	index bleve.Index
	meta  map[string]models.Chunk
}

func New() (*Store, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Store{index: index, meta: make(map[string]models.Chunk)}, nil
}

func (s *Store) Store(_ context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if err := s.index.Index(c.ID, c); err != nil {
			return err
		}
		s.meta[c.ID] = c
	}
	return nil
}

func (s *Store) Retrieve(_ context.Context, query string, topK int) ([]models.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, topK, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]models.RetrievedChunk, 0, len(res.Hits))
	for _, hit := range res.Hits {
		chunk, ok := s.meta[hit.ID]
		if !ok {
			continue
		}
		out = append(out, models.RetrievedChunk{
			Text:     chunk.Text,
			Metadata: chunk.Source,
			// BM25 scores grow with relevance; the boundary wants a
			// distance where lower is closer.
			Distance: 1.0 / (1.0 + hit.Score),
		})
	}
	return out, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return err
	}
	_ = s.index.Close()
	s.index = index
	s.meta = make(map[string]models.Chunk)
	return nil
}
