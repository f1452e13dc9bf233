// Package chat sequences one question-answering request: cache lookup,
// conditional retrieval and generation, cache population, and session
// mutation, in a fixed order with defined failure handling.
package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/ragbot/internal/cache"
	"github.com/mohammad-safakhou/ragbot/internal/rag"
	"github.com/mohammad-safakhou/ragbot/internal/session"
	"github.com/mohammad-safakhou/ragbot/internal/telemetry"
	"github.com/mohammad-safakhou/ragbot/models"
)

// FallbackAnswer is returned when retrieval finds nothing. Without
// chunks there is no verifiable grounding, so this answer is never
// cached.
const FallbackAnswer = "I couldn't find any relevant information in the news articles to answer your question."

// ValidationError marks client faults detected before any store access.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string { return e.Field + " is required" }

// UpstreamError marks a failure of the retrieval or generation
// collaborators, as opposed to the service's own stores. The transport
// maps these to a gateway error.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type Response struct {
	Query           string          `json:"query"`
	Answer          string          `json:"answer"`
	Sources         []models.Source `json:"sources"`
	FromCache       bool            `json:"from_cache"`
	RetrievedChunks int             `json:"retrieved_chunks,omitempty"`
	RetrievedFrom   string          `json:"retrieved_from"`
}

// Orchestrator owns no shared mutable state of its own; everything it
// touches lives in the TTL store or behind collaborator boundaries, so
// independent requests run concurrently without coordination.
type Orchestrator struct {
	cache     *cache.Cache
	sessions  *session.Store
	retriever rag.Retriever
	generator rag.Generator
	topK      int
	timeout   time.Duration
	logger    *log.Logger
}

func NewOrchestrator(c *cache.Cache, sessions *session.Store, retriever rag.Retriever, generator rag.Generator, topK int, timeout time.Duration, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	if topK <= 0 {
		topK = 3
	}
	return &Orchestrator{
		cache:     c,
		sessions:  sessions,
		retriever: retriever,
		generator: generator,
		topK:      topK,
		timeout:   timeout,
		logger:    logger,
	}
}

// Answer runs the request state machine. After the user message is
// appended (stage 2), any failure surfaces as a request-level error;
// the session already holds the question, so a retry loses nothing.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	defer func() { telemetry.ChatDuration.Observe(time.Since(start).Seconds()) }()

	// Stage 1: validate before touching any store.
	if req.Query == "" {
		return nil, &ValidationError{Field: "query"}
	}
	if req.SessionID == "" {
		return nil, &ValidationError{Field: "session_id"}
	}

	// Stage 2: record the question. Fatal on failure — without a
	// session record the conversation is not reproducible.
	if _, err := o.sessions.AddMessage(ctx, req.SessionID, models.Message{
		Role:    models.RoleUser,
		Content: req.Query,
	}); err != nil {
		return nil, err
	}

	// Stage 3: cache lookup.
	answer, sources, fromCache, retrieved, err := o.resolve(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	// Stage 5: record the answer.
	if _, err := o.sessions.AddMessage(ctx, req.SessionID, models.Message{
		Role:    models.RoleAssistant,
		Content: answer,
		Sources: sources,
	}); err != nil {
		return nil, err
	}

	retrievedFrom := "fresh"
	if fromCache {
		retrievedFrom = "cache"
	} else if retrieved == 0 {
		retrievedFrom = "fallback"
	}
	return &Response{
		Query:           req.Query,
		Answer:          answer,
		Sources:         sources,
		FromCache:       fromCache,
		RetrievedChunks: retrieved,
		RetrievedFrom:   retrievedFrom,
	}, nil
}

// resolve produces the answer: cache hit, or retrieval + generation.
func (o *Orchestrator) resolve(ctx context.Context, query string) (answer string, sources []models.Source, fromCache bool, retrieved int, err error) {
	if cached, ok := o.cache.CachedQueryResult(ctx, query); ok {
		o.logger.Printf("cache hit for %q", query)
		return cached.Answer, cached.Sources, true, 0, nil
	}

	// Stage 4: fresh computation, bounded by the collaborator timeout.
	// Timeouts surface as stage-4 failures; no retry here.
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	chunks, err := o.retriever.Retrieve(ctx, query, o.topK)
	if err != nil {
		return "", nil, false, 0, &UpstreamError{Err: fmt.Errorf("retrieval failed: %w", err)}
	}
	if len(chunks) == 0 {
		// Legitimately nothing found: fixed fallback, no cache entry.
		return FallbackAnswer, []models.Source{}, false, 0, nil
	}

	answer, sources, err = o.generator.Generate(ctx, query, chunks)
	if err != nil {
		return "", nil, false, 0, &UpstreamError{Err: err}
	}

	// Caching is best effort; a degraded cache must not fail the request.
	if !o.cache.CacheQueryResult(ctx, query, answer, sources, false) {
		o.logger.Printf("could not cache result for %q", query)
	}
	return answer, sources, false, len(chunks), nil
}
