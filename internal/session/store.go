// Package session stores conversation history as JSON blobs in redis,
// one key per session, expiring on the configured TTL. Every write
// re-arms the TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/ragbot/models"
)

const keyPrefix = "session:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func New(client *redis.Client, ttlSeconds int, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.Writer(), "[SESSION] ", log.LstdFlags)
	}
	return &Store{client: client, ttl: time.Duration(ttlSeconds) * time.Second, logger: logger}
}

func key(id string) string { return keyPrefix + id }

// Create writes an empty session with the configured TTL and returns
// its id.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	sess := models.Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Messages:  []models.Message{},
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	if err := s.client.SetEx(ctx, key(id), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	s.logger.Printf("session created: %s (ttl %s)", id, s.ttl)
	return id, nil
}

// Get loads a session. An absent key means not found; the store cannot
// tell "never existed" from "expired".
func (s *Store) Get(ctx context.Context, id string) (models.Session, error) {
	val, err := s.client.Get(ctx, key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, models.ErrSessionNotFound
		}
		return models.Session{}, fmt.Errorf("getting session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return models.Session{}, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return sess, nil
}

// AddMessage appends msg with a server-assigned timestamp and persists
// the session back with the TTL reset to the full duration.
//
// The read-modify-write is not atomic: concurrent writers to the same
// session race and the last write wins. A single logical conversation
// is expected to have one writer at a time.
func (s *Store) AddMessage(ctx context.Context, id string, msg models.Message) (models.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return models.Session{}, err
	}

	msg.Timestamp = time.Now().UTC()
	sess.Messages = append(sess.Messages, msg)

	data, err := json.Marshal(sess)
	if err != nil {
		return models.Session{}, err
	}
	if err := s.client.SetEx(ctx, key(id), data, s.ttl).Err(); err != nil {
		return models.Session{}, fmt.Errorf("updating session: %w", err)
	}
	return sess, nil
}

// History returns the ordered message log.
func (s *Store) History(ctx context.Context, id string) ([]models.Message, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// Clear deletes a session. Deleting an absent session is a success.
func (s *Store) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.logger.Printf("cleared session %s", id)
	return nil
}

func (s *Store) Exists(ctx context.Context, id string) bool {
	n, err := s.client.Exists(ctx, key(id)).Result()
	if err != nil {
		s.logger.Printf("error checking session %s: %v", id, err)
		return false
	}
	return n == 1
}

// TTL returns the remaining lifetime in seconds, 0 if absent or expired.
func (s *Store) TTL(ctx context.Context, id string) int64 {
	d, err := s.client.TTL(ctx, key(id)).Result()
	if err != nil || d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Refresh re-arms the TTL without touching content. Returns false when
// the session does not exist.
func (s *Store) Refresh(ctx context.Context, id string) bool {
	if !s.Exists(ctx, id) {
		return false
	}
	if err := s.client.Expire(ctx, key(id), s.ttl).Err(); err != nil {
		s.logger.Printf("error refreshing session %s: %v", id, err)
		return false
	}
	return true
}

// All lists summaries for every live session, newest-created first.
// Entries that fail to parse are skipped, not fatal to the listing.
func (s *Store) All(ctx context.Context) ([]models.SessionSummary, error) {
	keys, err := s.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	summaries := make([]models.SessionSummary, 0, len(keys))
	for _, k := range keys {
		val, err := s.client.Get(ctx, k).Result()
		if err != nil {
			continue // expired between KEYS and GET
		}
		var sess models.Session
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			s.logger.Printf("skipping unparseable session %s: %v", k, err)
			continue
		}

		last := "No messages"
		if n := len(sess.Messages); n > 0 {
			last = sess.Messages[n-1].Content
		}
		ttl := int64(0)
		if d, err := s.client.TTL(ctx, k).Result(); err == nil && d > 0 {
			ttl = int64(d / time.Second)
		}

		title := sess.ID
		if len(title) > 8 {
			title = title[:8]
		}
		summaries = append(summaries, models.SessionSummary{
			ID:          sess.ID,
			Title:       "Chat " + title,
			LastMessage: last,
			Timestamp:   sess.CreatedAt,
			TTL:         ttl,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})
	return summaries, nil
}
