// Package ingest fetches the configured RSS feed and prepares article
// text as chunks for the vector store.
package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/ragbot/models"
)

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

type Service struct {
	feedURL     string
	maxArticles int
	chunkChars  int
	fetchFull   bool
	httpClient  *http.Client
	logger      *log.Logger

	mu       sync.RWMutex
	articles []models.Article
}

func New(feedURL string, maxArticles, chunkChars int, fetchFull bool, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	if maxArticles <= 0 {
		maxArticles = 15
	}
	if chunkChars <= 0 {
		chunkChars = 500
	}
	return &Service{
		feedURL:     feedURL,
		maxArticles: maxArticles,
		chunkChars:  chunkChars,
		fetchFull:   fetchFull,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// FetchFeed downloads and parses the RSS feed, keeping at most
// maxArticles items that carry both a title and a description.
func (s *Service) FetchFeed(ctx context.Context) ([]models.Article, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	articles := make([]models.Article, 0, s.maxArticles)
	for i, item := range feed.Channel.Items {
		if len(articles) >= s.maxArticles {
			break
		}
		title := strings.TrimSpace(item.Title)
		desc := strings.TrimSpace(item.Description)
		if title == "" || desc == "" {
			continue
		}
		a := models.Article{
			ID:          i + 1,
			Title:       title,
			Description: desc,
			Link:        strings.TrimSpace(item.Link),
			PubDate:     strings.TrimSpace(item.PubDate),
		}
		if s.fetchFull {
			if body := s.extractArticle(ctx, a.Link); body != "" {
				a.Description = body
			}
		}
		articles = append(articles, a)
	}

	s.mu.Lock()
	s.articles = articles
	s.mu.Unlock()

	s.logger.Printf("fetched %d articles from feed", len(articles))
	return articles, nil
}

// extractArticle pulls readable body text from an article page. Any
// failure falls back to the RSS description.
func (s *Service) extractArticle(ctx context.Context, link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return ""
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Printf("could not fetch %s: %v", link, err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		s.logger.Printf("could not extract %s: %v", link, err)
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// Articles returns the most recently fetched feed items.
func (s *Service) Articles() []models.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.articles
}

// ChunkText splits text on sentence boundaries and packs sentences
// greedily up to max characters per chunk.
func ChunkText(text string, max int) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var chunks []string
	var current string
	for _, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		if len(current)+len(trimmed) > max && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = trimmed
			continue
		}
		if current == "" {
			current = trimmed
		} else {
			current += ". " + trimmed
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// Chunks turns the fetched articles into vector-store chunks, combining
// title and description for better context.
func (s *Service) Chunks() []models.Chunk {
	s.mu.RLock()
	articles := s.articles
	s.mu.RUnlock()

	var all []models.Chunk
	for _, article := range articles {
		fullText := fmt.Sprintf("%s. %s", article.Title, article.Description)
		for i, text := range ChunkText(fullText, s.chunkChars) {
			all = append(all, models.Chunk{
				ID:   fmt.Sprintf("%d-%d", article.ID, i),
				Text: text,
				Source: models.ChunkMeta{
					Title:   article.Title,
					Link:    article.Link,
					PubDate: article.PubDate,
				},
			})
		}
	}
	s.logger.Printf("created %d text chunks", len(all))
	return all
}
