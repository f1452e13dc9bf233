package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/ragbot/config"
	"github.com/mohammad-safakhou/ragbot/internal/cache"
	"github.com/mohammad-safakhou/ragbot/internal/rag"
	ragbleve "github.com/mohammad-safakhou/ragbot/internal/rag/bleve"
	"github.com/mohammad-safakhou/ragbot/internal/rag/chroma"
	srv "github.com/mohammad-safakhou/ragbot/internal/server"
	"github.com/mohammad-safakhou/ragbot/internal/storage"
	"github.com/mohammad-safakhou/ragbot/provider"
	openai "github.com/mohammad-safakhou/ragbot/provider/openai"
)

func main() {
	var root = &cobra.Command{Use: "ragbot"}

	root.AddCommand(serveCMD(), warmCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			return srv.Run(cfg)
		},
	}
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return serve
}

// warmCMD runs a single cache-warming cycle against the configured
// stores and exits. Useful from cron or before a deploy cutover.
func warmCMD() *cobra.Command {
	var cfgPath string
	var warm = &cobra.Command{
		Use:   "warm",
		Short: "Run one cache warming cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			rdb, err := storage.Conn(ctx,
				cfg.Storage.Redis.Host, cfg.Storage.Redis.Port,
				cfg.Storage.Redis.Password, cfg.Storage.Redis.DB,
				cfg.Storage.Redis.Timeout)
			if err != nil {
				return fmt.Errorf("redis connection failed: %w", err)
			}

			resultCache := cache.New(rdb, cache.TTLConfig{
				Session: cfg.Cache.SessionTTL,
				Vector:  cfg.Cache.VectorTTL,
				Query:   cfg.Cache.QueryTTL,
			}, nil)

			var llm provider.Provider = openai.NewClient(
				cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.BaseURL,
				cfg.Providers.OpenAI.CompletionModel, cfg.Providers.OpenAI.EmbeddingModel,
				cfg.Providers.OpenAI.Temperature, cfg.Providers.OpenAI.MaxTokens,
				cfg.Providers.OpenAI.Timeout)

			var store rag.VectorStore
			switch cfg.RAG.Vector.Driver {
			case "bleve":
				store, err = ragbleve.New()
				if err != nil {
					return fmt.Errorf("opening bleve index: %w", err)
				}
			default:
				store = chroma.New(cfg.RAG.Vector.ChromaURL, cfg.RAG.Vector.Collection, llm, nil)
			}

			warmer := cache.NewWarmer(resultCache, store, rag.NewGenerator(llm),
				cfg.Cache.Warming.Queries(),
				time.Duration(cfg.Cache.Warming.IntervalMinutes)*time.Minute,
				cfg.RAG.TopK, true, nil)

			warmed := warmer.WarmOnce(ctx)
			fmt.Printf("warmed %d entries\n", warmed)
			return nil
		},
	}
	warm.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return warm
}
