package models

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session is absent or expired;
// the store does not distinguish the two.
var ErrSessionNotFound = errors.New("session not found")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Source points at the article a chunk of context came from.
type Source struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Message is one turn of a conversation. Timestamp is assigned by the
// session store at append time.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// SessionSummary is the listing record returned by GET /api/sessions.
type SessionSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"last_message"`
	Timestamp   time.Time `json:"timestamp"`
	TTL         int64     `json:"ttl"`
}

// QueryResult is the cached outcome of one answered query. Warmed marks
// entries produced by the background warmer; it is reported but never
// changes cache behaviour.
type QueryResult struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
	Warmed    bool      `json:"warmed"`
}

// Article is one RSS feed item.
type Article struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PubDate     string `json:"pub_date"`
}

// Chunk is a piece of article text prepared for the vector store.
type Chunk struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Source ChunkMeta `json:"source"`
}

// ChunkMeta travels with a chunk through the vector store and back.
type ChunkMeta struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	PubDate string `json:"pub_date,omitempty"`
}

// RetrievedChunk is a ranked retrieval hit. Lower distance is closer.
type RetrievedChunk struct {
	Text     string    `json:"text"`
	Metadata ChunkMeta `json:"metadata"`
	Distance float64   `json:"distance"`
}

// CacheStats is a computed snapshot of the TTL store, never persisted.
type CacheStats struct {
	TotalKeys   int             `json:"total_keys"`
	Categories  CacheCategories `json:"categories"`
	KeysByTTL   CacheLiveness   `json:"keys_by_ttl"`
	MemoryUsage int64           `json:"memory_usage"`
}

type CacheCategories struct {
	Sessions int `json:"sessions"`
	Queries  int `json:"queries"`
	Vectors  int `json:"vectors"`
	Other    int `json:"other"`
}

type CacheLiveness struct {
	Expiring   int `json:"expiring"`
	Persistent int `json:"persistent"`
}
