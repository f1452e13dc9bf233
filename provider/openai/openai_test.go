package openai_provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestComplete(t *testing.T) {
	var gotAuth string
	var gotBody completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "hello from the model"}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", srv.URL, "gpt-4o-mini", "text-embedding-3-small", 0.2, 800, 5*time.Second)
	answer, err := c.Complete(context.Background(), "say hello")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "hello from the model" {
		t.Fatalf("answer = %q", answer)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody.Model != "gpt-4o-mini" || len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "say hello" {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestCompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("k", srv.URL, "m", "e", 0, 0, 5*time.Second)
	if _, err := c.Complete(context.Background(), "p"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient("k", srv.URL, "m", "e", 0, 0, 5*time.Second)
	if _, err := c.Complete(context.Background(), "p"); err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestCreateEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2}, "index": 0},
				{"embedding": []float32{0.3, 0.4}, "index": 1},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient("k", srv.URL, "m", "text-embedding-3-small", 0, 0, 5*time.Second)
	vecs, err := c.CreateEmbedding(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 2 {
		t.Fatalf("vecs = %v", vecs)
	}
	if vecs[1][0] != 0.3 {
		t.Fatalf("vecs[1] = %v", vecs[1])
	}
}

func TestCreateEmbeddingEmptyInput(t *testing.T) {
	c := NewClient("k", "http://unused", "m", "e", 0, 0, time.Second)
	vecs, err := c.CreateEmbedding(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if vecs != nil {
		t.Fatalf("vecs = %v, want nil without a request", vecs)
	}
}
