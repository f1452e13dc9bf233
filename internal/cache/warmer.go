package cache

import (
	"context"
	"log"
	"time"

	"github.com/mohammad-safakhou/ragbot/internal/rag"
	"github.com/mohammad-safakhou/ragbot/internal/telemetry"
)

// Warmer keeps a fixed list of popular queries pre-computed in the
// result cache so first-touch latency for common questions is hidden.
// It runs on its own goroutine and holds no lock shared with request
// handling.
type Warmer struct {
	cache     *Cache
	retriever rag.Retriever
	generator rag.Generator
	queries   []string
	interval  time.Duration
	topK      int
	enabled   bool
	logger    *log.Logger

	started bool
	stop    chan struct{}
	done    chan struct{}
}

func NewWarmer(c *Cache, retriever rag.Retriever, generator rag.Generator, queries []string, interval time.Duration, topK int, enabled bool, logger *log.Logger) *Warmer {
	if logger == nil {
		logger = log.New(log.Writer(), "[WARM] ", log.LstdFlags)
	}
	return &Warmer{
		cache:     c,
		retriever: retriever,
		generator: generator,
		queries:   queries,
		interval:  interval,
		topK:      topK,
		enabled:   enabled,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start warms once immediately, then on every interval tick until Stop
// is called. When warming is disabled no timer is armed at all.
func (w *Warmer) Start() {
	w.started = true
	if !w.enabled {
		w.logger.Printf("cache warming is disabled")
		close(w.done)
		return
	}
	w.logger.Printf("starting cache warming every %s", w.interval)

	ticker := time.NewTicker(w.interval)
	go func() {
		defer close(w.done)
		w.WarmOnce(context.Background())
		for {
			select {
			case <-w.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				w.WarmOnce(context.Background())
			}
		}
	}()
}

// Stop cancels the periodic task and waits for any in-flight cycle.
// Safe to call when warming was never enabled or never started.
func (w *Warmer) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	// Only Start's goroutine closes done; without a Start there is
	// nothing to wait for.
	if w.started {
		<-w.done
	}
	w.logger.Printf("cache warming stopped")
}

// WarmOnce runs a single warming cycle and returns how many entries it
// wrote. Per-query failures are isolated: one bad query never aborts
// the rest, and a query that retrieves nothing is skipped without a
// negative cache entry.
func (w *Warmer) WarmOnce(ctx context.Context) int {
	warmed := 0
	for _, query := range w.queries {
		if w.cache.Exists(ctx, QueryKey(query)) {
			continue
		}

		chunks, err := w.retriever.Retrieve(ctx, query, w.topK)
		if err != nil {
			w.logger.Printf("retrieval failed for %q: %v", query, err)
			continue
		}
		if len(chunks) == 0 {
			w.logger.Printf("no chunks for %q, skipping", query)
			continue
		}

		answer, sources, err := w.generator.Generate(ctx, query, chunks)
		if err != nil {
			w.logger.Printf("generation failed for %q: %v", query, err)
			continue
		}

		if w.cache.CacheQueryResult(ctx, query, answer, sources, true) {
			warmed++
			telemetry.WarmedQueries.Inc()
		}
	}
	telemetry.WarmingCycles.Inc()
	w.logger.Printf("warming cycle complete, %d entries written", warmed)
	return warmed
}
