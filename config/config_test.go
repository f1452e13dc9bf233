package config

import "testing"

func TestWarmingQueries(t *testing.T) {
	w := WarmingConfig{PopularQueries: "latest news, breaking news ,today's news,,"}
	got := w.Queries()
	want := []string{"latest news", "breaking news", "today's news"}
	if len(got) != len(want) {
		t.Fatalf("queries = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queries[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRedisConfigValidate(t *testing.T) {
	if err := (RedisConfig{Host: "localhost", Port: "6379"}).Validate(); err != nil {
		t.Fatal(err)
	}
	if err := (RedisConfig{Port: "6379"}).Validate(); err == nil {
		t.Fatal("missing host should fail")
	}
	if err := (RedisConfig{Host: "localhost"}).Validate(); err == nil {
		t.Fatal("missing port should fail")
	}
}

func TestVectorConfigValidate(t *testing.T) {
	if err := (VectorConfig{Driver: "bleve"}).Validate(); err != nil {
		t.Fatal(err)
	}
	if err := (VectorConfig{Driver: "chroma", ChromaURL: "http://localhost:8000"}).Validate(); err != nil {
		t.Fatal(err)
	}
	if err := (VectorConfig{Driver: "chroma"}).Validate(); err == nil {
		t.Fatal("chroma without url should fail")
	}
	if err := (VectorConfig{Driver: "faiss"}).Validate(); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	if cfg.Cache.SessionTTL != 86400 || cfg.Cache.VectorTTL != 21600 || cfg.Cache.QueryTTL != 3600 {
		t.Fatalf("ttl defaults = %+v", cfg.Cache)
	}
	if cfg.Cache.Warming.IntervalMinutes != 60 {
		t.Fatalf("warming interval = %d", cfg.Cache.Warming.IntervalMinutes)
	}
	if got := cfg.Cache.Warming.Queries(); len(got) != 3 || got[0] != "latest news" {
		t.Fatalf("popular queries = %v", got)
	}
	if cfg.RAG.TopK != 3 {
		t.Fatalf("top_k = %d", cfg.RAG.TopK)
	}
	if cfg.Ingest.MaxArticles != 15 || cfg.Ingest.ChunkChars != 500 {
		t.Fatalf("ingest defaults = %+v", cfg.Ingest)
	}
}
