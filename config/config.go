package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen   string `mapstructure:"listen"`
	LogLevel string `mapstructure:"log_level"`
	Debug    bool   `mapstructure:"debug"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// CacheConfig contains result-cache TTLs and warming settings.
// TTLs are in seconds to match the environment surface.
type CacheConfig struct {
	SessionTTL int           `mapstructure:"session_ttl"`
	VectorTTL  int           `mapstructure:"vector_ttl"`
	QueryTTL   int           `mapstructure:"query_ttl"`
	Warming    WarmingConfig `mapstructure:"warming"`
}

// WarmingConfig controls the background cache warmer.
type WarmingConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	PopularQueries  string `mapstructure:"popular_queries"` // comma-separated
}

// Queries splits the comma-separated popular-query list.
func (w WarmingConfig) Queries() []string {
	var out []string
	for _, q := range strings.Split(w.PopularQueries, ",") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// RAGConfig contains retrieval and generation settings
type RAGConfig struct {
	TopK           int           `mapstructure:"top_k"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Vector         VectorConfig  `mapstructure:"vector"`
}

// VectorConfig selects and configures the vector-store driver
type VectorConfig struct {
	Driver     string `mapstructure:"driver"` // chroma or bleve
	ChromaURL  string `mapstructure:"chroma_url"`
	Collection string `mapstructure:"collection"`
}

func (v VectorConfig) Validate() error {
	switch v.Driver {
	case "bleve":
		return nil
	case "chroma":
		if strings.TrimSpace(v.ChromaURL) == "" {
			return fmt.Errorf("rag.vector.chroma_url required for the chroma driver")
		}
		return nil
	default:
		return fmt.Errorf("rag.vector.driver must be chroma or bleve, got %q", v.Driver)
	}
}

// IngestConfig contains feed ingestion settings
type IngestConfig struct {
	FeedURL           string `mapstructure:"feed_url"`
	MaxArticles       int    `mapstructure:"max_articles"`
	ChunkChars        int    `mapstructure:"chunk_chars"`
	FetchFullArticles bool   `mapstructure:"fetch_full_articles"`
}

// ProvidersConfig contains LLM provider configurations
type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig contains OpenAI API settings
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads config from an optional file plus RAGBOT_* env vars.
// A missing config file is fine; defaults and env cover everything.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.listen", ":3000")
	viper.SetDefault("general.log_level", "info")

	viper.SetDefault("storage.redis.host", "localhost")
	viper.SetDefault("storage.redis.port", "6379")
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.timeout", 15*time.Second)

	viper.SetDefault("cache.session_ttl", 86400) // 24 hours
	viper.SetDefault("cache.vector_ttl", 21600)  // 6 hours
	viper.SetDefault("cache.query_ttl", 3600)    // 1 hour
	viper.SetDefault("cache.warming.enabled", false)
	viper.SetDefault("cache.warming.interval_minutes", 60)
	viper.SetDefault("cache.warming.popular_queries", "latest news,breaking news,today's news")

	viper.SetDefault("rag.top_k", 3)
	viper.SetDefault("rag.request_timeout", 60*time.Second)
	viper.SetDefault("rag.vector.driver", "chroma")
	viper.SetDefault("rag.vector.chroma_url", "http://localhost:8000")
	viper.SetDefault("rag.vector.collection", "news_articles")

	viper.SetDefault("ingest.feed_url", "http://feeds.bbci.co.uk/news/rss.xml")
	viper.SetDefault("ingest.max_articles", 15)
	viper.SetDefault("ingest.chunk_chars", 500)
	viper.SetDefault("ingest.fetch_full_articles", false)

	viper.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("providers.openai.completion_model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("providers.openai.temperature", 0.2)
	viper.SetDefault("providers.openai.max_tokens", 800)
	viper.SetDefault("providers.openai.timeout", 60*time.Second)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("RAGBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.RAG.Vector.Validate(); err != nil {
		panic(err)
	}
	return &config
}
